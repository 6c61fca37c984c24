// Copyright 2016 Google Inc. All Rights Reserved.
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
	"bytes"
	"testing"
)

func TestStatusPrinter_FormatsPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusPrinter(&buf)
	s.format = "[%s/%t/%r/%u/%f/%p]"
	s.totalEdges = 4
	s.startedEdges = 2
	s.runningEdges = 1
	s.finishedEdges = 1

	got := s.formatStatus()
	want := "[2/4/1/3/1/ 25%]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusPrinter_PercentEscapesLiterally(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusPrinter(&buf)
	s.format = "%%done"
	if got := s.formatStatus(); got != "%done" {
		t.Fatalf("got %q, want %%done", got)
	}
}

func TestStatusPrinter_BuildEdgeFinishedReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatusPrinter(&buf)
	s.PlanHasTotalEdges(1)
	s.BuildStarted()
	s.BuildEdgeStarted("a.cc", 0)
	s.BuildEdgeFinished("a.cc", 1, false, "boom")

	if !bytes.Contains(buf.Bytes(), []byte("FAILED")) {
		t.Fatalf("expected FAILED in output, got %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("boom")) {
		t.Fatalf("expected compiler output in output, got %q", buf.String())
	}
}
