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
	"errors"
	"os"
	"path/filepath"
)

// DiskInterface is the seam between the engine and the real filesystem,
// grounded in the teacher's DiskInterface/RealDiskInterface split
// (disk_interface.go) and its VirtualFileSystem test double
// (nin_test.go). A mtime of 0 means "does not exist", matching
// RealDiskInterface.Stat's documented convention.
type DiskInterface interface {
	// Stat returns 0 with a nil error if path does not exist.
	Stat(path string) (TimeStamp, error)
	WriteFile(path, contents string) bool
	MakeDir(path string) bool
	ReadFile(path string) ([]byte, error)
	// RemoveFile returns 0 on success, 1 if the file did not exist, and
	// -1 on error, mirroring RealDiskInterface.RemoveFile's tri-state.
	RemoveFile(path string) int
}

// RealDiskInterface hits the actual filesystem.
type RealDiskInterface struct{}

func NewRealDiskInterface() *RealDiskInterface {
	return &RealDiskInterface{}
}

func (r *RealDiskInterface) Stat(path string) (TimeStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return -1, &StatFailedError{Path: path, Err: err}
	}
	return TimeStamp(info.ModTime().UnixNano()), nil
}

func (r *RealDiskInterface) WriteFile(path, contents string) bool {
	if err := r.MakeDirs(path); !err {
		return false
	}
	return os.WriteFile(path, []byte(contents), 0o644) == nil
}

func (r *RealDiskInterface) MakeDir(path string) bool {
	err := os.Mkdir(path, 0o777)
	return err == nil || errors.Is(err, os.ErrExist)
}

// MakeDirs creates every parent directory of path, like the teacher's
// DiskInterface.MakeDirs (disk_interface.go), which recurses up to the
// root creating each missing segment.
func (r *RealDiskInterface) MakeDirs(path string) bool {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o777) == nil
}

func (r *RealDiskInterface) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *RealDiskInterface) RemoveFile(path string) int {
	err := os.Remove(path)
	if err == nil {
		return 0
	}
	if errors.Is(err, os.ErrNotExist) {
		return 1
	}
	return -1
}
