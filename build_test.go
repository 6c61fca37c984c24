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
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tallstreet/cbob/testutil"
)

// fakeCall records one invocation a fakeRunner was asked to make.
type fakeCall struct {
	path string
	args []string
}

// fakeRunner is a test double for Runner, shared across Builder tests,
// that records every invocation instead of shelling out to a real
// compiler or linker. fail lists argument values (typically a source,
// aggregated-header, or precompiled-header path) that make the call
// they appear in report failure.
type fakeRunner struct {
	mu    sync.Mutex
	calls []fakeCall
	fail  map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, path string, args ...string) CommandResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]string(nil), args...)
	f.calls = append(f.calls, fakeCall{path: path, args: cp})
	for _, a := range cp {
		if f.fail[a] {
			return CommandResult{Output: "boom", Err: errors.New("exit status 1")}
		}
	}
	return CommandResult{}
}

func (f *fakeRunner) snapshot() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func argsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// compileCallCount counts invocations that compiled a translation unit
// (carrying "-c"), as opposed to a precompile or link invocation.
func (f *fakeRunner) compileCallCount() int {
	n := 0
	for _, c := range f.snapshot() {
		if containsArg(c.args, "-c") {
			n++
		}
	}
	return n
}

// precompileCallCount counts invocations of the form
// `<aggregated-header> -o <precompiled-header>` (no "-c", and the first
// argument isn't "-o" the way a link invocation's is).
func (f *fakeRunner) precompileCallCount() int {
	n := 0
	for _, c := range f.snapshot() {
		if !containsArg(c.args, "-c") && len(c.args) > 0 && c.args[0] != "-o" {
			n++
		}
	}
	return n
}

// linkCallCount counts invocations of the form `-o <target> <objects...>`.
func (f *fakeRunner) linkCallCount() int {
	n := 0
	for _, c := range f.snapshot() {
		if len(c.args) > 0 && c.args[0] == "-o" {
			n++
		}
	}
	return n
}

func (f *fakeRunner) hasCallWithArgs(args ...string) bool {
	for _, c := range f.snapshot() {
		if argsEqual(c.args, args) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) hasCallWithArg(arg string) bool {
	for _, c := range f.snapshot() {
		if containsArg(c.args, arg) {
			return true
		}
	}
	return false
}

func TestBuilder_NotConfigured(t *testing.T) {
	project := NewProject(t.TempDir(), t.TempDir(), "", "", "")
	b := NewBuilder(project, DefaultBuildConfig(), &fakeProber{}, nil, nil, nil)
	_, err := b.Build(context.Background(), "app", []string{"a.cc"})
	var nc *NotConfiguredError
	if !errors.As(err, &nc) {
		t.Fatalf("expected NotConfiguredError, got %v", err)
	}
}

func TestBuilder_NoDirtySourcesSkipsCompile(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "cc", dir)
	a := filepath.Join(dir, "a.cc")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 1, "")
	vfs.CreateAt(ObjectPath(dir, "a.cc"), 2, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{a: nil}}
	runner := &fakeRunner{}
	b := NewBuilder(project, DefaultBuildConfig(), prober, runner, vfs, nil)
	result, err := b.Build(context.Background(), "app", []string{a})
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("got phase %v, want PhaseDone", result.Phase)
	}
	if len(result.Dirty.Sources) != 0 {
		t.Fatalf("expected no dirty sources, got %d", len(result.Dirty.Sources))
	}
	if len(runner.snapshot()) != 0 {
		t.Fatalf("expected zero compiler invocations, got %d", len(runner.snapshot()))
	}
}

func TestBuilder_DryRunReportsWithoutCompiling(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "cc", dir)
	a := filepath.Join(dir, "a.cc")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 2, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{a: nil}}
	runner := &fakeRunner{}
	config := DefaultBuildConfig()
	config.DryRun = true
	b := NewBuilder(project, config, prober, runner, vfs, nil)
	result, err := b.Build(context.Background(), "app", []string{a})
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("got phase %v, want PhaseDone", result.Phase)
	}
	if len(result.Dirty.Sources) != 1 {
		t.Fatal("expected the source to be reported dirty even though nothing was compiled")
	}
	if len(runner.snapshot()) != 0 {
		t.Fatalf("expected zero compiler invocations under dry-run, got %d", len(runner.snapshot()))
	}
}

func TestBuilder_KeepGoingCollectsAllFailures(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "cc", dir)
	a := filepath.Join(dir, "a.cc")
	b2 := filepath.Join(dir, "b.cc")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 2, "")
	vfs.CreateAt(b2, 2, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{a: nil, b2: nil}}
	runner := &fakeRunner{fail: map[string]bool{a: true, b2: true}}
	config := DefaultBuildConfig()
	config.KeepGoing = true
	b := NewBuilder(project, config, prober, runner, vfs, nil)
	result, err := b.Build(context.Background(), "app", []string{a, b2})
	if err == nil {
		t.Fatal("expected an error: both sources fail to compile")
	}
	if result.Phase != PhaseFailedPartial {
		t.Fatalf("got phase %v, want PhaseFailedPartial", result.Phase)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected both failures collected under keep_going, got %d", len(result.Errors))
	}
	if n := runner.compileCallCount(); n != 2 {
		t.Fatalf("expected both sources to be attempted under keep_going, got %d compile calls", n)
	}
	if n := runner.linkCallCount(); n != 0 {
		t.Fatalf("expected link to be skipped, got %d link calls", n)
	}
}

func TestBuilder_CompilesDirtySourceWithPCHFlagsAndLinks(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "", dir)
	a := filepath.Join(dir, "a.cc")
	h := filepath.Join(dir, "a.h")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 1, "")
	vfs.CreateAt(h, 1, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{
		a: {{Depth: 1, Path: h}},
	}}
	runner := &fakeRunner{}
	b := NewBuilder(project, DefaultBuildConfig(), prober, runner, vfs, nil)

	result, err := b.Build(context.Background(), "app", []string{a})
	if err != nil {
		t.Fatal(err)
	}
	if result.Phase != PhaseDone {
		t.Fatalf("got phase %v, want PhaseDone", result.Phase)
	}

	fp, err := Fingerprint(dir, a)
	if err != nil {
		t.Fatal(err)
	}
	objPath := ObjectPath(dir, fp)
	hfp := HeaderFingerprint([]string{h})
	aggPath := AggregatedHeaderPath(dir, hfp)
	gchPath := PrecompiledHeaderPath(dir, hfp)

	if n := runner.compileCallCount(); n != 1 {
		t.Fatalf("expected exactly one compile invocation, got %d", n)
	}
	if n := runner.precompileCallCount(); n != 1 {
		t.Fatalf("expected exactly one precompile invocation, got %d", n)
	}
	if n := runner.linkCallCount(); n != 1 {
		t.Fatalf("expected exactly one link invocation, got %d", n)
	}
	if !runner.hasCallWithArgs("-c", a, "-o", objPath, "-fpch-preprocess", "-include", aggPath) {
		t.Fatalf("expected a compile invocation carrying -fpch-preprocess -include %s, got %+v", aggPath, runner.snapshot())
	}
	if !runner.hasCallWithArgs(aggPath, "-o", gchPath) {
		t.Fatalf("expected a precompile invocation `<header> -o <gch>`, got %+v", runner.snapshot())
	}
	if !runner.hasCallWithArg(filepath.Join(dir, "app")) {
		t.Fatal("expected a link invocation naming the target")
	}
}

func TestBuilder_NoOpRebuildPerformsNoWork(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "", dir)
	a := filepath.Join(dir, "a.cc")
	h := filepath.Join(dir, "a.h")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 1, "")
	vfs.CreateAt(h, 1, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{
		a: {{Depth: 1, Path: h}},
	}}
	runner := &fakeRunner{}
	b := NewBuilder(project, DefaultBuildConfig(), prober, runner, vfs, nil)

	if _, err := b.Build(context.Background(), "app", []string{a}); err != nil {
		t.Fatal(err)
	}
	firstCalls := len(runner.snapshot())
	if firstCalls == 0 {
		t.Fatal("expected the first build to compile and link")
	}

	// Simulate the compiler/linker having produced the object and
	// precompiled-header artifacts the fake runner never actually wrote.
	fp, err := Fingerprint(dir, a)
	if err != nil {
		t.Fatal(err)
	}
	objPath := ObjectPath(dir, fp)
	hfp := HeaderFingerprint([]string{h})
	gchPath := PrecompiledHeaderPath(dir, hfp)
	vfs.CreateAt(objPath, 5, "")
	vfs.CreateAt(gchPath, 5, "")

	result, err := b.Build(context.Background(), "app", []string{a})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Dirty.Sources) != 0 || len(result.Dirty.Headers) != 0 {
		t.Fatalf("expected a no-op rebuild, got dirty sources=%d headers=%d", len(result.Dirty.Sources), len(result.Dirty.Headers))
	}
	if got := len(runner.snapshot()); got != firstCalls {
		t.Fatalf("expected zero additional invocations on a no-op rebuild, went from %d to %d", firstCalls, got)
	}
}

func TestBuilder_PrecompileFailureFailsFastWithoutKeepGoing(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "", dir)
	a := filepath.Join(dir, "a.cc")
	h := filepath.Join(dir, "a.h")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 1, "")
	vfs.CreateAt(h, 1, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{
		a: {{Depth: 1, Path: h}},
	}}
	hfp := HeaderFingerprint([]string{h})
	aggPath := AggregatedHeaderPath(dir, hfp)
	runner := &fakeRunner{fail: map[string]bool{aggPath: true}}
	b := NewBuilder(project, DefaultBuildConfig(), prober, runner, vfs, nil)

	result, err := b.Build(context.Background(), "app", []string{a})
	if err == nil {
		t.Fatal("expected an error: precompile failed")
	}
	if result.Phase != PhaseFailedFatal {
		t.Fatalf("got phase %v, want PhaseFailedFatal", result.Phase)
	}
	if n := runner.compileCallCount(); n != 0 {
		t.Fatalf("expected source compilation to be skipped after a fatal precompile failure, got %d compile calls", n)
	}
	if n := runner.linkCallCount(); n != 0 {
		t.Fatalf("expected link to be skipped after a fatal precompile failure, got %d link calls", n)
	}
}

func TestBuilder_PrecompileFailureUnderKeepGoingStillCompilesButSkipsLink(t *testing.T) {
	dir := t.TempDir()
	project := NewProject(dir, dir, "cc", "", dir)
	a := filepath.Join(dir, "a.cc")
	h := filepath.Join(dir, "a.h")

	vfs := testutil.NewVirtualFileSystem()
	vfs.CreateAt(a, 1, "")
	vfs.CreateAt(h, 1, "")

	prober := &fakeProber{entries: map[string][]IncludeTraceEntry{
		a: {{Depth: 1, Path: h}},
	}}
	hfp := HeaderFingerprint([]string{h})
	gchPath := PrecompiledHeaderPath(dir, hfp)
	runner := &fakeRunner{fail: map[string]bool{gchPath: true}}
	config := DefaultBuildConfig()
	config.KeepGoing = true
	b := NewBuilder(project, config, prober, runner, vfs, nil)

	result, err := b.Build(context.Background(), "app", []string{a})
	if err == nil {
		t.Fatal("expected an error")
	}
	var skipped *SkippedLinkError
	if !errors.As(err, &skipped) {
		t.Fatalf("expected SkippedLinkError, got %v", err)
	}
	if result.Phase != PhaseFailedPartial {
		t.Fatalf("got phase %v, want PhaseFailedPartial", result.Phase)
	}
	if n := runner.compileCallCount(); n != 1 {
		t.Fatalf("expected the source to still be compiled under keep_going despite the precompile failure, got %d", n)
	}
	if n := runner.linkCallCount(); n != 0 {
		t.Fatalf("expected link to be skipped: a step failed under keep_going, got %d", n)
	}
}
