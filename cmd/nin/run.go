// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/maruel/nin"
	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	jobs := 0
	cmd := &cobra.Command{
		Use:   "run <commands...>",
		Short: "Run shell commands concurrently and print their output",
		Long:  "Each argument is run through the shell. At most -j commands run at a time; the output of each command is printed once it completes, in completion order.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs == 0 {
				jobs = a.cfg.Jobs
			}
			if jobs < 0 {
				return fmt.Errorf("invalid -j %d", jobs)
			}
			return runCommands(cmd.OutOrStdout(), a.logger, args, jobs)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "run N jobs in parallel (default from config)")
	return cmd
}

// newPrinter returns a LinePrinter for w. The terminal width is read from
// $COLUMNS.
func newPrinter(w io.Writer) *nin.LinePrinter {
	width, _ := strconv.Atoi(os.Getenv("COLUMNS"))
	return nin.NewLinePrinter(w, nin.IsSmartTerminal(w), width)
}

// runCommands runs commands with at most jobs of them at a time.
func runCommands(w io.Writer, logger *slog.Logger, commands []string, jobs int) error {
	printer := newPrinter(w)
	subprocs := nin.NewSubprocessSet()
	subprocs.Logger = logger
	pending := commands
	done := 0
	failed := 0
	for len(pending) != 0 || subprocs.Running() != 0 || subprocs.Finished() != 0 {
		for len(pending) != 0 && subprocs.Running()+subprocs.Finished() < jobs {
			subprocs.Add(subprocs.Start(pending[0]))
			pending = pending[1:]
		}
		subprocs.DoWork()
		for p := subprocs.NextFinished(); p != nil; p = subprocs.NextFinished() {
			done++
			success := p.Finish()
			printer.Print(fmt.Sprintf("[%d/%d] %s", done, len(commands), p.Command()), true)
			if !success {
				failed++
				printer.PrintOnNewLine(fmt.Sprintf("FAILED: exit code %d\n", p.ExitCode()))
			}
			output := p.Output()
			if !printer.SupportsColor() {
				output = nin.StripAnsiEscapeCodes(output)
			}
			if output != "" && !strings.HasSuffix(output, "\n") {
				output += "\n"
			}
			printer.PrintOnNewLine(output)
		}
	}
	printer.PrintOnNewLine("")
	if failed != 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(commands))
	}
	return nil
}
