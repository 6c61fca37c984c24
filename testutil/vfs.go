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

// Package testutil holds test doubles shared across the cbob test
// suite, adapted from the teacher's VirtualFileSystem in nin_test.go.
package testutil

import (
	"os"

	"github.com/tallstreet/cbob"
)

// entry is an in-memory file.
type entry struct {
	mtime    cbob.TimeStamp
	contents []byte
}

// VirtualFileSystem is an in-memory cbob.DiskInterface, letting
// graph/staleness tests fabricate mtimes and file contents without
// touching the real filesystem. It is the same shape as the teacher's
// VirtualFileSystem, generalized to cbob's DiskInterface method set.
type VirtualFileSystem struct {
	files           map[string]entry
	directoriesMade map[string]struct{}
	filesRemoved    map[string]struct{}
	filesRead       []string
	now             cbob.TimeStamp
}

// NewVirtualFileSystem returns an empty filesystem with its clock
// starting at 1, matching the teacher's convention that 0 means
// "absent".
func NewVirtualFileSystem() *VirtualFileSystem {
	return &VirtualFileSystem{
		files:           map[string]entry{},
		directoriesMade: map[string]struct{}{},
		filesRemoved:    map[string]struct{}{},
		now:             1,
	}
}

// Tick advances the fake clock; files created or written afterward sort
// after everything created before.
func (v *VirtualFileSystem) Tick() cbob.TimeStamp {
	v.now++
	return v.now
}

// Create writes a file's contents at the current tick, the way tests
// seed the graph before asserting on staleness.
func (v *VirtualFileSystem) Create(path, contents string) {
	v.files[path] = entry{mtime: v.now, contents: []byte(contents)}
}

// CreateAt writes a file's contents stamped at an explicit tick, for
// tests that need precise ordering between a source and its object
// file.
func (v *VirtualFileSystem) CreateAt(path string, t cbob.TimeStamp, contents string) {
	v.files[path] = entry{mtime: t, contents: []byte(contents)}
}

func (v *VirtualFileSystem) Stat(path string) (cbob.TimeStamp, error) {
	if e, ok := v.files[path]; ok {
		return e.mtime, nil
	}
	return 0, nil
}

func (v *VirtualFileSystem) WriteFile(path, contents string) bool {
	v.Create(path, contents)
	return true
}

func (v *VirtualFileSystem) MakeDir(path string) bool {
	v.directoriesMade[path] = struct{}{}
	return true
}

func (v *VirtualFileSystem) ReadFile(path string) ([]byte, error) {
	v.filesRead = append(v.filesRead, path)
	if e, ok := v.files[path]; ok {
		out := make([]byte, len(e.contents))
		copy(out, e.contents)
		return out, nil
	}
	return nil, os.ErrNotExist
}

func (v *VirtualFileSystem) RemoveFile(path string) int {
	if _, ok := v.files[path]; ok {
		delete(v.files, path)
		v.filesRemoved[path] = struct{}{}
		return 0
	}
	return 1
}

// FilesRead returns every path ReadFile was called with, in call order,
// for tests asserting on access patterns.
func (v *VirtualFileSystem) FilesRead() []string {
	return append([]string(nil), v.filesRead...)
}

// DirectoriesMade reports whether MakeDir was ever called with path.
func (v *VirtualFileSystem) DirectoriesMade(path string) bool {
	_, ok := v.directoriesMade[path]
	return ok
}
