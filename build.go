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
	"fmt"
	"path/filepath"
)

// BuildPhase is one step of a Builder's state machine (spec.md §4.6).
type BuildPhase int

const (
	PhaseConfiguring BuildPhase = iota
	PhaseProbing
	PhaseAnalyzing
	PhaseCompiling
	PhaseLinking
	PhaseDone
	PhaseFailedFatal
	PhaseFailedPartial
)

// BuildResult is what a completed (or aborted) build reports back to
// its caller.
type BuildResult struct {
	Phase  BuildPhase
	Dirty  *DirtySet
	Errors []error
}

// Builder is the orchestrator the teacher calls Plan/Builder/CommandRunner
// in build.go's pseudocode: it drives a target from an unbuilt source
// list through probing, staleness analysis, compiling and linking.
// Unlike the teacher's Builder, which reads several package-level
// globals (g_explaining, a process-wide BuildConfig), every dependency
// here — project, prober, runner, disk, status — is passed into
// NewBuilder explicitly, and the worker pool is built there from
// config.Parallelism.
type Builder struct {
	project *Project
	config  BuildConfig
	prober  Prober
	pool    *WorkerPool
	disk    DiskInterface
	status  Status
	runner  Runner
}

// NewBuilder wires together the collaborators a build needs. runner
// defaults to a real CommandRunner, disk to a RealDiskInterface, and
// status to a no-op Status when nil, so callers that don't care about
// substituting a fake compiler, a custom disk, or progress reporting
// don't need to construct any of them — exactly the nil-means-default
// pattern the teacher's own collaborator constructors use.
func NewBuilder(project *Project, config BuildConfig, prober Prober, runner Runner, disk DiskInterface, status Status) *Builder {
	if runner == nil {
		runner = CommandRunner{}
	}
	if disk == nil {
		disk = NewRealDiskInterface()
	}
	if status == nil {
		status = NewNullStatus()
	}
	return &Builder{
		project: project,
		config:  config,
		prober:  prober,
		pool:    NewWorkerPool(config.Parallelism),
		disk:    disk,
		status:  status,
		runner:  runner,
	}
}

// Build compiles every dirty source in sourcePaths and links them into
// target, returning NotConfiguredError immediately if the project's
// compiler/bin-dir collaborators were never resolved (spec.md §7).
func (b *Builder) Build(ctx context.Context, target string, sourcePaths []string) (*BuildResult, error) {
	if !b.project.Configured() {
		return &BuildResult{Phase: PhaseFailedFatal}, &NotConfiguredError{Target: target}
	}

	b.status.BuildStarted()
	defer b.status.BuildFinished()

	graph, err := BuildGraph(ctx, b.prober, b.pool, sourcePaths)
	if err != nil {
		return &BuildResult{Phase: PhaseFailedFatal}, err
	}
	for _, src := range graph.Sources {
		fp, err := Fingerprint(b.project.Root, src.Path)
		if err != nil {
			return &BuildResult{Phase: PhaseFailedFatal}, err
		}
		src.Fingerprint = fp
		src.ObjectPath = ObjectPath(b.project.StateDir, fp)
		if err := src.Finalize(b.project.StateDir, b.disk); err != nil {
			return &BuildResult{Phase: PhaseFailedFatal}, err
		}
	}

	dirty, err := AnalyzeStaleness(graph, b.disk, b.config.Oneshot)
	if err != nil {
		return &BuildResult{Phase: PhaseFailedFatal}, err
	}
	b.status.PlanHasTotalEdges(len(dirty.Sources))

	if len(dirty.Sources) == 0 {
		return &BuildResult{Phase: PhaseDone, Dirty: dirty}, nil
	}

	if b.config.DryRun {
		return &BuildResult{Phase: PhaseDone, Dirty: dirty}, nil
	}

	var failed []error
	if len(dirty.Headers) > 0 {
		failed = append(failed, b.precompileHeaders(ctx, dirty.Headers)...)
		if len(failed) > 0 && !b.config.KeepGoing {
			// Fail fast: without keep_going a precompile failure aborts
			// before any source is even attempted (spec's build
			// orchestrator step 6).
			return &BuildResult{Phase: PhaseFailedFatal, Dirty: dirty, Errors: failed}, failed[0]
		}
	}

	failed = append(failed, b.compileSources(ctx, dirty.Sources)...)
	if len(failed) > 0 {
		if !b.config.KeepGoing {
			return &BuildResult{Phase: PhaseFailedFatal, Dirty: dirty, Errors: failed}, failed[0]
		}
		return &BuildResult{Phase: PhaseFailedPartial, Dirty: dirty, Errors: failed}, &SkippedLinkError{Target: target}
	}

	if err := b.link(ctx, target, graph.Sources); err != nil {
		return &BuildResult{Phase: PhaseFailedFatal, Dirty: dirty}, err
	}

	return &BuildResult{Phase: PhaseDone, Dirty: dirty}, nil
}

// precompileHeaders compiles one .gch for each header group
// AnalyzeStaleness flagged dirty by its t_hdr-vs-t_gch comparison,
// reusing the pool the same way the original source's single
// multiprocessing.Pool is reused across phases (dep_graph.py's
// target.worker_pool). Invocation shape matches spec's precompiled-header
// contract: `<compiler> <aggregated-header> -o <precompiled-header>`.
func (b *Builder) precompileHeaders(ctx context.Context, groups []*DirtyHeaderGroup) []error {
	jobs := make([]Job[struct{}], len(groups))
	for i, grp := range groups {
		grp := grp
		jobs[i] = func(ctx context.Context) (struct{}, error) {
			err := b.runCompiler(ctx, []string{grp.AggregatedHeaderPath, "-o", grp.PrecompiledHeaderPath})
			if err != nil {
				return struct{}{}, &CompileFailedError{Source: grp.AggregatedHeaderPath, Err: err}
			}
			return struct{}{}, nil
		}
	}
	if !b.config.KeepGoing {
		if _, err := Map(ctx, b.pool, jobs); err != nil {
			return []error{err}
		}
		return nil
	}
	_, errs := MapKeepGoing(ctx, b.pool, jobs)
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

// compileSources compiles every dirty source, honoring KeepGoing: under
// keep_going every source still gets a chance to compile even after an
// earlier one fails, mirroring Builder::Build's failures_allowed loop in
// the teacher's build.go. Invocation shape: `<compiler> -c <source> -o
// <object> -fpch-preprocess -include <aggregated-header>`, so a dirty
// source is compiled against its aggregated header, through its
// precompiled form whenever one exists (built or refreshed by
// precompileHeaders just before this phase runs).
func (b *Builder) compileSources(ctx context.Context, sources []*SourceNode) []error {
	jobs := make([]Job[struct{}], len(sources))
	for i, src := range sources {
		src := src
		jobs[i] = func(ctx context.Context) (struct{}, error) {
			start := int64(0)
			b.status.BuildEdgeStarted(src.Path, start)
			args := []string{"-c", src.Path, "-o", src.ObjectPath, "-fpch-preprocess", "-include", src.AggregatedHeaderPath}
			err := b.runCompiler(ctx, args)
			b.status.BuildEdgeFinished(src.Path, start, err == nil, "")
			if err != nil {
				return struct{}{}, &CompileFailedError{Source: src.Path, Err: err}
			}
			return struct{}{}, nil
		}
	}
	if !b.config.KeepGoing {
		_, err := Map(ctx, b.pool, jobs)
		if err != nil {
			return []error{err}
		}
		return nil
	}
	_, errs := MapKeepGoing(ctx, b.pool, jobs)
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

// link invokes the linker once, serially, over every source's object
// file — not just the dirty ones, since a link always needs the
// complete set of objects. The binary is written to target inside the
// project's BinDir.
func (b *Builder) link(ctx context.Context, target string, allSources []*SourceNode) error {
	args := []string{"-o", filepath.Join(b.project.BinDir, target)}
	for _, src := range allSources {
		args = append(args, src.ObjectPath)
	}
	linker := b.project.LinkerPath
	if linker == "" {
		linker = b.project.CompilerPath
	}
	result := b.runner.Run(ctx, linker, args...)
	if result.Err != nil {
		return &LinkFailedError{Target: target, Output: result.Output, Err: result.Err}
	}
	return nil
}

func (b *Builder) runCompiler(ctx context.Context, args []string) error {
	result := b.runner.Run(ctx, b.project.CompilerPath, args...)
	if result.Err != nil {
		return fmt.Errorf("%v: %s", result.Err, result.Output)
	}
	return nil
}
