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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// IncludeTraceEntry is one line of a preprocessor's header trace: a
// depth (number of leading dots) and the path it resolved the include
// to. This is the same (depth, path) shape dep_graph.py's
// _get_dep_info produces from "gcc -H -w -E -P" output.
type IncludeTraceEntry struct {
	Depth int
	Path  string
}

// Prober invokes an external preprocessor to trace every header a
// source transitively includes. The real implementation shells out;
// tests supply a fake.
type Prober interface {
	Probe(ctx context.Context, sourcePath string) ([]IncludeTraceEntry, error)
}

// CompilerProber runs CompilerPath with include-trace flags and parses
// the trace it writes to stderr. It is the cbob equivalent of the
// teacher's SubprocessGeneric invocation in subprocess.go, specialized
// to a single synchronous probe instead of a pool of running jobs.
type CompilerProber struct {
	CompilerPath string
	// ExtraArgs are additional flags the external collaborator wants
	// passed to every probe invocation (include search paths, defines).
	ExtraArgs []string
}

// Probe runs `<CompilerPath> -H -w -E -P -o <null device> <ExtraArgs>
// sourcePath`, discards the preprocessed output, and parses the include
// trace off stderr, per spec.md §4.2.
func (c *CompilerProber) Probe(ctx context.Context, sourcePath string) ([]IncludeTraceEntry, error) {
	args := append([]string{"-H", "-w", "-E", "-P", "-o", os.DevNull}, c.ExtraArgs...)
	args = append(args, sourcePath)
	result := CommandRunner{}.Run(ctx, c.CompilerPath, args...)
	if result.Err != nil {
		return nil, &ProbeFailedError{Source: sourcePath, Err: result.Err}
	}
	return ParseIncludeTrace(sourcePath, []byte(result.Output))
}

// ParseIncludeTrace parses GCC-style "-H" output: each traced include
// is a line of one or more leading dots (depth) followed by a space and
// the resolved path. Lines that don't start with a dot (e.g.
// "Multiple include guards...") are not part of the trace and are
// ignored, matching _get_dep_info's "if line[0] == '.'" filter.
func ParseIncludeTrace(sourcePath string, stderr []byte) ([]IncludeTraceEntry, error) {
	var entries []IncludeTraceEntry
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] != '.' {
			continue
		}
		depth := 0
		for depth < len(line) && line[depth] == '.' {
			depth++
		}
		if depth < 1 {
			return nil, &MalformedProbeOutputError{Source: sourcePath, Line: line, Reason: "no leading dots"}
		}
		rest := strings.TrimPrefix(line[depth:], " ")
		if rest == "" {
			return nil, &MalformedProbeOutputError{Source: sourcePath, Line: line, Reason: "empty path"}
		}
		entries = append(entries, IncludeTraceEntry{Depth: depth, Path: rest})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading include trace for %s: %w", sourcePath, err)
	}
	return entries, nil
}
