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

import "fmt"

// NotConfiguredError is returned when a target is built before its
// compiler and bin directory collaborators have been resolved.
type NotConfiguredError struct {
	Target string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("target %q is not configured", e.Target)
}

// ProbeFailedError wraps a non-zero exit or spawn failure from the
// preprocessor invoked to trace a source file's includes.
type ProbeFailedError struct {
	Source string
	Err    error
}

func (e *ProbeFailedError) Error() string {
	return fmt.Sprintf("probing %s: %v", e.Source, e.Err)
}

func (e *ProbeFailedError) Unwrap() error { return e.Err }

// MalformedProbeOutputError is returned when the preprocessor's include
// trace cannot be parsed: a depth line with no leading dots, or a blank
// path.
type MalformedProbeOutputError struct {
	Source string
	Line   string
	Reason string
}

func (e *MalformedProbeOutputError) Error() string {
	return fmt.Sprintf("%s: malformed include trace line %q: %s", e.Source, e.Line, e.Reason)
}

// StatFailedError wraps an error reading the mtime of a path that the
// graph expects to exist.
type StatFailedError struct {
	Path string
	Err  error
}

func (e *StatFailedError) Error() string {
	return fmt.Sprintf("stat %s: %v", e.Path, e.Err)
}

func (e *StatFailedError) Unwrap() error { return e.Err }

// CompileFailedError is returned when a compiler invocation for a
// single translation unit or precompiled header exits non-zero.
type CompileFailedError struct {
	Source string
	Output string
	Err    error
}

func (e *CompileFailedError) Error() string {
	return fmt.Sprintf("compiling %s: %v\n%s", e.Source, e.Err, e.Output)
}

func (e *CompileFailedError) Unwrap() error { return e.Err }

// LinkFailedError is returned when the final link invocation exits
// non-zero.
type LinkFailedError struct {
	Target string
	Output string
	Err    error
}

func (e *LinkFailedError) Error() string {
	return fmt.Sprintf("linking %s: %v\n%s", e.Target, e.Err, e.Output)
}

func (e *LinkFailedError) Unwrap() error { return e.Err }

// SkippedLinkError marks a link step that was skipped because one or
// more of its sources failed to compile under keep_going.
type SkippedLinkError struct {
	Target string
}

func (e *SkippedLinkError) Error() string {
	return fmt.Sprintf("link for %q skipped: one or more sources failed to compile", e.Target)
}
