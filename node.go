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
	"fmt"
	"sort"
)

// TimeStamp mirrors the teacher's notion of a comparable modification
// time (disk_interface.go), kept as a plain int64 of nanoseconds so
// VirtualFileSystem doubles in tests can fabricate ordering without
// touching a real clock.
type TimeStamp int64

// HeaderNode is one header file in the shared dependency DAG. Unlike
// the original source's BaseNode/SourceNode duck-typed hierarchy
// (spec.md §9's "duck-typed node base class" anti-pattern), HeaderNode
// and SourceNode are distinct, non-overlapping Go types: nothing is
// gained here from shared inheritance, since the two kinds of node have
// different fields and different finalize/dirty behavior.
type HeaderNode struct {
	Path string
	// Dependencies are the headers this header itself #includes,
	// discovered by the same parent-stack walk that builds the graph
	// (spec.md §4.3).
	Dependencies []*HeaderNode

	mtime      TimeStamp
	mtimeValid bool

	// maxMtime/maxMtimeKnown memoize the destructive, short-circuiting DFS
	// from node.py's get_max_mtime: once a header's max mtime has been
	// computed, Dependencies is drained so later visits through a
	// different parent do O(1) work instead of re-walking the subtree.
	maxMtime      TimeStamp
	maxMtimeKnown bool
}

// SetMtime records a header's on-disk modification time. Nodes are
// built without an mtime; the staleness analyzer stats a node the first
// time it needs one unless SetMtime has already recorded it.
func (h *HeaderNode) SetMtime(t TimeStamp) {
	h.mtime = t
	h.mtimeValid = true
}

// SourceNode is one compiled translation unit. Its aggregated and
// precompiled header paths are computed once, by Finalize, after the
// full ordered include list for the source is known; Fingerprint and
// ObjectPath are set by the Builder. This mirrors SourceNode.__init__'s three mangled
// paths in node.py, except the aggregated/precompiled header paths are
// content-addressed (spec.md §4.1/§9) instead of name-addressed.
type SourceNode struct {
	Path        string
	Fingerprint string
	ObjectPath  string

	// OrderedIncludes is the flattened, order-preserving list of every
	// header this source transitively includes, as produced by the
	// probe (spec.md §4.2/§4.3). It is the input to HeaderFingerprint.
	OrderedIncludes []string

	HeaderFingerprint      string
	AggregatedHeaderPath   string
	PrecompiledHeaderPath  string

	// Dependencies are the HeaderNode objects this source includes
	// directly (depth-1 trace entries), interned into the shared graph;
	// deeper headers are reached through their own Dependencies. Used by
	// the staleness analyzer (C5).
	Dependencies []*HeaderNode

	mtime      TimeStamp
	mtimeValid bool
}

func (s *SourceNode) SetMtime(t TimeStamp) {
	s.mtime = t
	s.mtimeValid = true
}

// Finalize computes the content-addressed header identity for a source
// once its OrderedIncludes is fully known, and (if disk is non-nil)
// writes the aggregated header when no file exists yet under that
// content address. It is the Go analog of
// SourceNode.__init__'s path derivation in node.py, generalized per
// spec.md's content-addressing redesign.
func (s *SourceNode) Finalize(stateDir string, disk DiskInterface) error {
	s.HeaderFingerprint = HeaderFingerprint(s.OrderedIncludes)
	s.AggregatedHeaderPath = AggregatedHeaderPath(stateDir, s.HeaderFingerprint)
	s.PrecompiledHeaderPath = PrecompiledHeaderPath(stateDir, s.HeaderFingerprint)

	if disk == nil {
		return nil
	}
	if mtime, err := disk.Stat(s.AggregatedHeaderPath); err == nil && mtime > 0 {
		// Already materialized by an earlier source with the same
		// inclusion set; nothing to do. This sharing is what lets two
		// sources with an identical inclusion set reuse one precompiled
		// header (IP5).
		return nil
	}
	var content string
	for _, inc := range s.OrderedIncludes {
		content += fmt.Sprintf("#include \"%s\"\n", inc)
	}
	if !disk.WriteFile(s.AggregatedHeaderPath, content) {
		return fmt.Errorf("writing aggregated header %s", s.AggregatedHeaderPath)
	}
	// The aggregated header's name already encodes its content, so a
	// stale precompiled header under the old name is simply orphaned,
	// never resurrected; nothing to delete here. A precompiled header
	// under the *new* name is regenerated lazily by the build
	// orchestrator the next time this source is compiled.
	return nil
}

// SortedIncludes returns a copy of OrderedIncludes in lexical order,
// for checking inclusion-set membership without depending on trace
// ordering.
func (s *SourceNode) SortedIncludes() []string {
	out := make([]string, len(s.OrderedIncludes))
	copy(out, s.OrderedIncludes)
	sort.Strings(out)
	return out
}
