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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/maruel/nin"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errDone) {
			return
		}
		nin.Error("%s", err)
		os.Exit(1)
	}
}

// errDone stops the command early without it being a failure.
var errDone = errors.New("done")

// app holds the state shared by all the subcommands.
type app struct {
	// Flags.
	file       string
	dir        string
	configPath string
	debug      []string
	logLevel   string
	logFormat  string

	cfg     *Config
	logger  *slog.Logger
	metrics *nin.Metrics
	// dump, when set, receives the graph once loaded.
	dump io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "nin",
		Short:             "Inspect and run build manifests",
		Long:              "nin loads a build manifest and its includes into a dependency graph, which the subcommands inspect, and runs commands concurrently.",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
		// No Run, prints help by default.
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", "", "specify input build file (default: build.ninja)")
	flags.StringVarP(&a.dir, "dir", "C", "", "change to DIR before doing anything else")
	flags.StringVar(&a.configPath, "config", "", "configuration file (default: "+defaultConfigFile+" if present)")
	flags.StringArrayVarP(&a.debug, "debug", "d", nil, "enable debugging (use '-d list' to list modes)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text|json")

	root.AddCommand(a.queryCmd())
	root.AddCommand(a.rulesCmd())
	root.AddCommand(a.commandsCmd())
	root.AddCommand(a.runCmd())
	root.AddCommand(versionCmd())
	return root
}

// setup runs before every subcommand.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.dir != "" {
		// The formatting of this string, complete with funny quotes, is so
		// Emacs can properly identify that the cwd has changed for subsequent
		// commands.
		nin.Info("Entering directory `%s'", a.dir)
		if err := os.Chdir(a.dir); err != nil {
			return fmt.Errorf("chdir to '%s': %w", a.dir, err)
		}
	}

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	// Flags override the configuration file.
	if a.file != "" {
		cfg.File = a.file
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if a.cfg, err = newConfig(*cfg); err != nil {
		return err
	}

	a.logger = newLogger(a.cfg.LogLevel, a.cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	for _, name := range a.debug {
		if err := a.debugEnable(cmd.OutOrStdout(), name); err != nil {
			return err
		}
	}
	return nil
}

// teardown runs after a successful subcommand.
func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.metrics != nil {
		a.metrics.Report(cmd.OutOrStdout())
		nin.DisableMetrics()
		a.metrics = nil
	}
}

func (a *app) debugEnable(w io.Writer, name string) error {
	switch name {
	case "list":
		fmt.Fprintf(w, "debugging modes:\n  stats        print operation counts/timing info\n  dump         print the loaded rules, nodes and edges\nmultiple modes can be enabled via -d FOO -d BAR\n")
		return errDone
	case "stats":
		a.metrics = nin.EnableMetrics()
		return nil
	case "dump":
		a.dump = w
		return nil
	default:
		if suggestion := nin.SpellcheckString(name, "stats", "dump", "list"); suggestion != "" {
			return fmt.Errorf("unknown debug setting '%s', did you mean '%s'?", name, suggestion)
		}
		return fmt.Errorf("unknown debug setting '%s'", name)
	}
}

// loadState parses the manifest into a new State.
func (a *app) loadState() (*nin.State, error) {
	state := nin.NewState()
	parser := nin.NewManifestParser(state, &nin.RealDiskInterface{}, nin.ManifestParserOptions{
		ErrOnDupeEdge:   a.cfg.DupeEdgeError,
		MaxIncludeDepth: a.cfg.MaxIncludeDepth,
		RootHack:        a.cfg.RootHack,
		Logger:          a.logger,
	})
	if err := parser.Load(a.cfg.File); err != nil {
		return nil, err
	}
	a.logger.Debug("manifest loaded", "file", a.cfg.File, "rules", len(state.Rules), "nodes", len(state.Nodes), "edges", len(state.Edges))
	if a.dump != nil {
		state.Dump(a.dump)
	}
	return state, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the nin version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", nin.Version)
			return nil
		},
	}
}
