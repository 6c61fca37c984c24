// Copyright 2011 Google Inc. All Rights Reserved.
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
	"context"
	"sync"
)

// Graph is the shared dependency DAG folded from every source's
// preprocessor trace, grounded in DepGraph in original_source's
// dep_graph.py: one probe per source, a parent-stack walk over the
// trace, and a single header_node_index so two sources that include the
// same header share one HeaderNode rather than each getting their own
// copy.
type Graph struct {
	Sources []*SourceNode
	headers map[string]*HeaderNode
}

// NewGraph returns an empty graph ready to be populated by BuildGraph.
func NewGraph() *Graph {
	return &Graph{headers: map[string]*HeaderNode{}}
}

// internHeader returns the existing HeaderNode for path, or creates and
// registers a new one. Callers must hold the graph's build-time lock.
func (g *Graph) internHeader(path string) (h *HeaderNode, isNew bool) {
	if existing, ok := g.headers[path]; ok {
		return existing, false
	}
	h = &HeaderNode{Path: path}
	g.headers[path] = h
	return h, true
}

// BuildGraph probes every source in sourcePaths (bounded by pool) and
// folds the results into a single shared Graph. Probing runs
// concurrently; the parent-stack walk that links each trace into the
// graph runs under a single mutex so header interning stays consistent,
// the same split the teacher uses in manifest_parser_concurrent.go
// between concurrent file reads and a serial statement processor.
func BuildGraph(ctx context.Context, prober Prober, pool *WorkerPool, sourcePaths []string) (*Graph, error) {
	g := NewGraph()
	var mu sync.Mutex

	jobs := make([]Job[*SourceNode], len(sourcePaths))
	for i, path := range sourcePaths {
		path := path
		jobs[i] = func(ctx context.Context) (*SourceNode, error) {
			entries, err := prober.Probe(ctx, path)
			if err != nil {
				return nil, err
			}
			mu.Lock()
			defer mu.Unlock()
			return g.linkSource(path, entries)
		}
	}

	nodes, err := Map(ctx, pool, jobs)
	if err != nil {
		return nil, err
	}
	g.Sources = nodes
	return g, nil
}

// linkSource performs the parent-stack walk for one source's trace,
// matching _get_dep_info/DepGraph.__init__'s construction in
// dep_graph.py: depth 1 entries are the source's direct includes, depth
// N entries are included by whichever depth N-1 header most recently
// appeared.
//
// Open Question resolution (spec.md §9): the original source updates
// its processed set with a node's *dependencies*
// (processed_nodes |= current_node.dependencies), which in a Python
// set-of-sets amounts to re-deriving every header's child list on every
// source that re-encounters it. This implementation instead marks a
// header itself processed the first time its child list is fully
// derived and trusts the interned HeaderNode on every later
// encounter — cheaper, and sufficient because a header's own list of
// includes cannot depend on which source reached it.
func (g *Graph) linkSource(path string, entries []IncludeTraceEntry) (*SourceNode, error) {
	src := &SourceNode{Path: path}
	stack := make([]*HeaderNode, 0, 8)
	processed := map[*HeaderNode]bool{}

	for _, e := range entries {
		depth := e.Depth
		if depth > len(stack)+1 {
			// A jump of more than one level is malformed; clamp to the
			// next valid depth instead of indexing out of range, per
			// spec.md §4.4.
			depth = len(stack) + 1
		}
		stack = stack[:depth-1]

		header, isNew := g.internHeader(e.Path)
		src.OrderedIncludes = append(src.OrderedIncludes, e.Path)

		var parent *HeaderNode
		if depth > 1 {
			parent = stack[depth-2]
		}
		if parent == nil {
			src.Dependencies = appendUniqueHeader(src.Dependencies, header)
		} else if isNew || processed[parent] {
			parent.Dependencies = appendUniqueHeader(parent.Dependencies, header)
		}

		stack = append(stack, header)
		if isNew {
			processed[header] = true
		}
	}
	return src, nil
}

func appendUniqueHeader(list []*HeaderNode, h *HeaderNode) []*HeaderNode {
	for _, existing := range list {
		if existing == h {
			return list
		}
	}
	return append(list, h)
}

// AllHeaders returns every HeaderNode interned into the graph, in no
// particular order, each exactly once.
func (g *Graph) AllHeaders() []*HeaderNode {
	out := make([]*HeaderNode, 0, len(g.headers))
	for _, h := range g.headers {
		out = append(out, h)
	}
	return out
}
