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
	"bytes"
	"context"
	"os/exec"
)

// CommandResult is what a CommandRunner invocation reports back: the
// process's combined stdout+stderr and whatever error os/exec returned.
// This is the cbob equivalent of the teacher's Subprocess interface
// (Done/Close/Finish/GetOutput in subprocess.go), collapsed into a
// single synchronous call since cbob never needs to poll a set of
// still-running subprocesses the way ninja's SubprocessSet does — every
// compiler invocation here is already one leg of a WorkerPool job.
type CommandResult struct {
	Output string
	Err    error
}

// Runner is the seam Builder invokes the compiler and linker through.
// CommandRunner is the real, process-spawning implementation; tests
// substitute a fake instead of shelling out, the same role the
// teacher's Subprocess interface (subprocess.go:26) plays for
// SubprocessSet's real child-process plumbing.
type Runner interface {
	Run(ctx context.Context, path string, args ...string) CommandResult
}

// CommandRunner invokes a single external command and captures its
// combined output, the same buffer-capture idiom
// SubprocessGeneric uses, without the running/finished bookkeeping that
// exists there to support SubprocessSet.DoWork's polling loop.
type CommandRunner struct{}

// Run executes path with args, waits for it to exit, and returns its
// combined stdout+stderr.
func (CommandRunner) Run(ctx context.Context, path string, args ...string) CommandResult {
	cmd := exec.CommandContext(ctx, path, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return CommandResult{Output: buf.String(), Err: err}
}
