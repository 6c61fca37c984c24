// Copyright 2012 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cbob

import (
	"testing"

	"github.com/tallstreet/cbob/testutil"
)

func TestSourceNode_FinalizeIsContentAddressed(t *testing.T) {
	vfs := testutil.NewVirtualFileSystem()
	a := &SourceNode{Path: "a.cc", OrderedIncludes: []string{"x.h", "y.h"}}
	b := &SourceNode{Path: "b.cc", OrderedIncludes: []string{"x.h", "y.h"}}

	if err := a.Finalize("/state", vfs); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize("/state", vfs); err != nil {
		t.Fatal(err)
	}

	if a.HeaderFingerprint != b.HeaderFingerprint {
		t.Fatalf("expected identical inclusion sets to share a fingerprint: %q != %q", a.HeaderFingerprint, b.HeaderFingerprint)
	}
	if a.AggregatedHeaderPath != b.AggregatedHeaderPath {
		t.Fatal("expected identical inclusion sets to share an aggregated header path")
	}
}

func TestSourceNode_FinalizeChangesNameWhenContentChanges(t *testing.T) {
	vfs := testutil.NewVirtualFileSystem()
	a := &SourceNode{Path: "a.cc", OrderedIncludes: []string{"x.h"}}
	b := &SourceNode{Path: "b.cc", OrderedIncludes: []string{"x.h", "y.h"}}

	if err := a.Finalize("/state", vfs); err != nil {
		t.Fatal(err)
	}
	if err := b.Finalize("/state", vfs); err != nil {
		t.Fatal(err)
	}

	if a.AggregatedHeaderPath == b.AggregatedHeaderPath {
		t.Fatal("expected different inclusion sets to produce different aggregated header paths")
	}
}
