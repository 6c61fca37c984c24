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

// DirtySet is the result of a staleness pass: the sources that need
// recompiling and the content-addressed header groups whose precompiled
// form needs regenerating, mirroring node.py's dirty_source_nodes and
// dirty_header_nodes tuples.
type DirtySet struct {
	Sources []*SourceNode
	Headers []*DirtyHeaderGroup
}

// DirtyHeaderGroup is one entry of DirtySet.Headers: an aggregated
// header whose content is strictly newer than its compiled .gch form
// (t_hdr > t_gch, spec's staleness step 6) and so must be recompiled
// before any source sharing it is compiled.
type DirtyHeaderGroup struct {
	Fingerprint           string
	AggregatedHeaderPath  string
	PrecompiledHeaderPath string
}

// GetMaxMtime returns the latest modification time among h and every
// header h transitively includes. It is the Go equivalent of
// HeaderNode.get_max_mtime in node.py: a destructive, memoizing
// recursion that drains Dependencies as it visits them so a header
// shared by many sources is only ever walked once, no matter how many
// sources reference it.
func (h *HeaderNode) GetMaxMtime(disk DiskInterface) (TimeStamp, error) {
	if h.maxMtimeKnown {
		return h.maxMtime, nil
	}
	if !h.mtimeValid {
		t, err := disk.Stat(h.Path)
		if err != nil {
			return 0, err
		}
		h.SetMtime(t)
	}
	max := h.mtime
	for len(h.Dependencies) > 0 {
		// Pop from the end so a header revisited through another path
		// mid-drain never re-walks the same child twice.
		n := len(h.Dependencies) - 1
		dep := h.Dependencies[n]
		h.Dependencies = h.Dependencies[:n]
		childMax, err := dep.GetMaxMtime(disk)
		if err != nil {
			return 0, err
		}
		if childMax > max {
			max = childMax
		}
	}
	h.maxMtime = max
	h.maxMtimeKnown = true
	return max, nil
}

// headerMaxMtime returns t_hdr: the max mtime across every header src
// transitively includes. Each dependency's subtree is drained exactly
// once via GetMaxMtime's memoization, so calling this after (or before)
// IsDirty never repeats work already paid for.
func (src *SourceNode) headerMaxMtime(disk DiskInterface) (TimeStamp, error) {
	var max TimeStamp
	for _, h := range src.Dependencies {
		m, err := h.GetMaxMtime(disk)
		if err != nil {
			return 0, err
		}
		if m > max {
			max = m
		}
	}
	return max, nil
}

// IsDirty reports whether src needs recompiling: either its own source
// file or any header it transitively includes is strictly newer than
// its object file (spec's fixed decision to use strict `>`, not `>=`,
// so touching a file without changing its mtime resolution never forces
// a spurious rebuild). A source with no header dependencies skips the
// header walk entirely, the same shortcut SourceNode.mark_dirty takes in
// node.py.
func (src *SourceNode) IsDirty(disk DiskInterface, oneshot bool) (bool, error) {
	if oneshot {
		return true, nil
	}
	if !src.mtimeValid {
		t, err := disk.Stat(src.Path)
		if err != nil {
			return false, err
		}
		src.SetMtime(t)
	}
	objMtime, err := disk.Stat(src.ObjectPath)
	if err != nil {
		return false, err
	}
	if objMtime == 0 {
		return true, nil
	}
	if len(src.Dependencies) == 0 {
		return src.mtime > objMtime, nil
	}
	tHdr, err := src.headerMaxMtime(disk)
	if err != nil {
		return false, err
	}
	tAll := tHdr
	if src.mtime > tAll {
		tAll = src.mtime
	}
	return tAll > objMtime, nil
}

// HeaderDirty reports whether src's aggregated header needs its
// precompiled form regenerated: t_hdr > t_gch, the staleness analyzer's
// separate header-side comparison (spec's step 6, second clause). A
// source with no header dependencies or no PrecompiledHeaderPath yet
// derived (Finalize not called) never needs a precompile.
func (src *SourceNode) HeaderDirty(disk DiskInterface) (bool, error) {
	if len(src.Dependencies) == 0 || src.PrecompiledHeaderPath == "" {
		return false, nil
	}
	tHdr, err := src.headerMaxMtime(disk)
	if err != nil {
		return false, err
	}
	tGch, err := disk.Stat(src.PrecompiledHeaderPath)
	if err != nil {
		return false, err
	}
	return tHdr > tGch, nil
}

// AnalyzeStaleness runs IsDirty over every source in g and collects the
// dirty ones, plus the distinct aggregated-header groups among them that
// need a precompile (HeaderDirty), deduplicated by HeaderFingerprint so
// two sources sharing an inclusion set schedule one precompile, not two.
// oneshot forces every source dirty without touching the disk interface,
// and per spec's oneshot override also forces every dirty source's
// header group to precompile without consulting t_hdr/t_gch at all.
func AnalyzeStaleness(g *Graph, disk DiskInterface, oneshot bool) (*DirtySet, error) {
	ds := &DirtySet{}
	seenGroups := map[string]bool{}
	for _, src := range g.Sources {
		dirty, err := src.IsDirty(disk, oneshot)
		if err != nil {
			return nil, err
		}
		if !dirty {
			continue
		}
		ds.Sources = append(ds.Sources, src)

		if src.HeaderFingerprint == "" || len(src.Dependencies) == 0 || seenGroups[src.HeaderFingerprint] {
			continue
		}

		headerDirty := oneshot
		if !oneshot {
			headerDirty, err = src.HeaderDirty(disk)
			if err != nil {
				return nil, err
			}
		}
		if headerDirty {
			seenGroups[src.HeaderFingerprint] = true
			ds.Headers = append(ds.Headers, &DirtyHeaderGroup{
				Fingerprint:           src.HeaderFingerprint,
				AggregatedHeaderPath:  src.AggregatedHeaderPath,
				PrecompiledHeaderPath: src.PrecompiledHeaderPath,
			})
		}
	}
	return ds, nil
}
