// Copyright 2016 Google Inc. All Rights Reserved.
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

// Command cbob drives the cbob build engine directly against a flat
// list of sources, without the project/target bookkeeping layer the
// engine is designed to sit behind. It exists to prove the engine is
// usable standalone, the way cmd/nin wraps the teacher's ginja engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tallstreet/cbob"
)

func main() {
	var (
		jobs       int
		oneshot    bool
		keepGoing  bool
		dryRun     bool
		compiler   string
		linker     string
		binDir     string
		stateDir   string
		projectDir string
	)

	cmd := &cobra.Command{
		Use:   "cbob <target> <source...>",
		Short: "Incrementally compile and link a set of C/C++ sources.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			target, sources := args[0], args[1:]

			root := projectDir
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				root = wd
			}

			project := cbob.NewProject(root, stateDir, compiler, linker, binDir)
			config := cbob.DefaultBuildConfig()
			config.Parallelism = jobs
			config.Oneshot = oneshot
			config.KeepGoing = keepGoing
			config.DryRun = dryRun

			prober := &cbob.CompilerProber{CompilerPath: compiler}
			status := cbob.NewStatusPrinter(os.Stdout)

			builder := cbob.NewBuilder(project, config, prober, nil, nil, status)
			result, err := builder.Build(context.Background(), target, sources)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if result != nil && result.Phase == cbob.PhaseFailedFatal {
				os.Exit(1)
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "maximum number of concurrent compile jobs (0: default to host CPU count)")
	cmd.Flags().BoolVar(&oneshot, "oneshot", false, "rebuild every source regardless of mtimes")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "keep compiling other sources after one fails")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be built without invoking the compiler")
	cmd.Flags().StringVar(&compiler, "compiler", "cc", "path to the compiler the external collaborator resolved")
	cmd.Flags().StringVar(&linker, "linker", "", "path to the linker; defaults to --compiler")
	cmd.Flags().StringVar(&binDir, "bin-dir", ".", "directory the linked target is written to")
	cmd.Flags().StringVar(&stateDir, "state-dir", ".cbob", "directory for object files and precompiled headers")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "project root sources are fingerprinted relative to; defaults to cwd")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
