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
	"io"
	"os"
)

// Logger replaces the package-level g_explaining/g_verbose globals with
// an explicit, constructor-injected value. Nothing in this package
// keeps a package-level *Logger; callers thread one through.
type Logger struct {
	w       io.Writer
	explain bool
	quiet   bool
}

// NewLogger returns a Logger writing to w. explain turns on EXPLAIN-level
// diagnostics; quiet suppresses Info.
func NewLogger(w io.Writer, explain, quiet bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{w: w, explain: explain, quiet: quiet}
}

func (l *Logger) Explain(format string, args ...interface{}) {
	if l == nil || !l.explain {
		return
	}
	fmt.Fprintf(l.w, "cbob explain: "+format+"\n", args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil || l.quiet {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.w, "cbob: warning: "+format+"\n", args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.w, "cbob: error: "+format+"\n", args...)
}

// BuildConfig carries the knobs the original source threaded as
// process-wide state (parallelism, dry-run, load average ceiling).
// It is always passed explicitly; nothing here is a package global.
type BuildConfig struct {
	// Parallelism is the maximum number of concurrent probe/compile
	// jobs. Zero means GOMAXPROCS.
	Parallelism int

	// KeepGoing, when true, continues compiling other sources after one
	// fails instead of aborting the build immediately.
	KeepGoing bool

	// Oneshot forces every node to be treated as dirty, ignoring mtimes.
	Oneshot bool

	// DryRun reports what would be compiled/linked without invoking the
	// compiler.
	DryRun bool

	// MaxLoadAverage caps job dispatch the way the teacher's -l flag
	// does; zero disables the check. Not wired to a real load-average
	// probe here, reserved for callers that want to pass one in.
	MaxLoadAverage float64
}

// DefaultBuildConfig returns the configuration the CLI uses when no
// flags override it. Parallelism is left at zero, which WorkerPool
// resolves to the host's GOMAXPROCS, matching spec's "default to host
// CPU count".
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{Parallelism: 0}
}

// Project is the explicit, constructor-injected replacement for the
// original source's implicit current-working-directory project root:
// every path fingerprint and every state-directory derivation goes
// through a *Project instance instead of a hidden global.
type Project struct {
	// Root is the absolute path sources are fingerprinted relative to.
	Root string

	// StateDir is where object files, aggregated headers and
	// precompiled headers are written, mirroring the external
	// collaborator's per-target state directory (spec.md §6).
	StateDir string

	// CompilerPath and LinkerPath are resolved by the external
	// collaborator (compiler/linker discovery is a Non-goal here) and
	// simply carried through.
	CompilerPath string
	LinkerPath   string

	// BinDir is where the linked target is written.
	BinDir string

	Log *Logger
}

// NewProject constructs a Project with a default, non-nil Logger so
// callers never need a nil check.
func NewProject(root, stateDir, compilerPath, linkerPath, binDir string) *Project {
	return &Project{
		Root:         root,
		StateDir:     stateDir,
		CompilerPath: compilerPath,
		LinkerPath:   linkerPath,
		BinDir:       binDir,
		Log:          NewLogger(os.Stderr, false, false),
	}
}

// Configured reports whether the collaborator-supplied paths needed to
// build are present. Building against an unconfigured Project returns
// NotConfiguredError instead of panicking or dereferencing an empty
// string, per spec.md §7.
func (p *Project) Configured() bool {
	return p.CompilerPath != "" && p.BinDir != ""
}
