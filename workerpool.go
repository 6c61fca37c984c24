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
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds the number of concurrently running jobs across the
// probe, precompile and compile phases (spec.md §4.7), the way the
// teacher's SubprocessSet bounds concurrently running subprocesses but
// generalized to any job, not just a shelled-out command. It replaces
// the original source's target.worker_pool, which was a single
// multiprocessing.Pool constructed once per target and reused by
// dep_graph's imap_unordered call; here the pool is an explicit value
// threaded through the graph builder and the orchestrator instead of
// living on a Target object that this engine does not implement.
type WorkerPool struct {
	limit int
}

// NewWorkerPool returns a pool that runs at most limit jobs
// concurrently. limit <= 0 means GOMAXPROCS.
func NewWorkerPool(limit int) *WorkerPool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{limit: limit}
}

// Job is one unit of work submitted to a WorkerPool.Map call.
type Job[T any] func(ctx context.Context) (T, error)

// Map runs every job in jobs with bounded concurrency and returns their
// results in the same order as jobs, or the first error encountered.
// On error, in-flight jobs are allowed to drain (errgroup's default
// behavior) and no new jobs are started; Map never leaks goroutines.
func Map[T any](ctx context.Context, pool *WorkerPool, jobs []Job[T]) ([]T, error) {
	results := make([]T, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.limit)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				// An earlier job already failed: start no new work.
				return err
			}
			r, err := job(gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MapKeepGoing is Map's keep_going variant: every job runs to
// completion regardless of earlier failures, and the per-job errors are
// returned alongside the results instead of short-circuiting the
// group. This backs the orchestrator's keep_going compile phase
// (spec.md §4.6).
func MapKeepGoing[T any](ctx context.Context, pool *WorkerPool, jobs []Job[T]) ([]T, []error) {
	results := make([]T, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, pool.limit)
	done := make(chan struct{}, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- struct{}{} }()
			r, err := job(ctx)
			results[i] = r
			errs[i] = err
		}()
	}
	for range jobs {
		<-done
	}
	return results, errs
}
