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

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/maruel/nin"
	"github.com/spf13/cobra"
)

// collectTarget returns the node for a command line target.
//
// The special syntax "foo.cc^" means "the first output of foo.cc".
func collectTarget(state *nin.State, cpath string) (*nin.Node, error) {
	if cpath == "" {
		return nil, errors.New("empty path")
	}
	path, err := nin.CanonicalizePath(cpath)
	if err != nil {
		return nil, err
	}
	firstDependent := false
	if path[len(path)-1] == '^' {
		path = path[:len(path)-1]
		firstDependent = true
	}

	if node := state.LookupNode(path); node != nil {
		if firstDependent {
			if len(node.OutEdges) == 0 {
				return nil, fmt.Errorf("'%s' has no out edge", path)
			}
			node = node.OutEdges[0].Outputs[0]
		}
		return node, nil
	}
	msg := "unknown target '" + path + "'"
	if suggestion := state.SpellcheckNode(path); suggestion != nil {
		msg += ", did you mean '" + suggestion.Path + "'?"
	}
	return nil, errors.New(msg)
}

// collectTargets returns the nodes for args, or the root nodes when args is
// empty.
func collectTargets(state *nin.State, args []string) ([]*nin.Node, error) {
	if len(args) == 0 {
		return state.RootNodes()
	}
	nodes := make([]*nin.Node, 0, len(args))
	for _, arg := range args {
		node, err := collectTarget(state, arg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (a *app) queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <targets...>",
		Short: "Show inputs/outputs for a path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.loadState()
			if err != nil {
				return err
			}
			return toolQuery(cmd.OutOrStdout(), state, &nin.RealDiskInterface{}, args)
		},
	}
}

func toolQuery(w io.Writer, state *nin.State, fr nin.FileReader, args []string) error {
	for _, arg := range args {
		node, err := collectTarget(state, arg)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s:\n", node.Path)
		if edge := node.InEdge; edge != nil {
			fmt.Fprintf(w, "  input: %s\n", edge.Rule.Name)
			for in := range edge.Inputs {
				label := ""
				if edge.IsImplicit(in) {
					label = "| "
				} else if edge.IsOrderOnly(in) {
					label = "|| "
				}
				fmt.Fprintf(w, "    %s%s\n", label, edge.Inputs[in].Path)
			}
			ins, err := nin.LoadDepfile(fr, edge)
			if err != nil {
				nin.Warning("%s", err)
			} else if len(ins) != 0 {
				fmt.Fprintf(w, "  depfile:\n")
				for _, in := range ins {
					fmt.Fprintf(w, "    %s\n", in)
				}
			}
		}
		fmt.Fprintf(w, "  outputs:\n")
		for _, edge := range node.OutEdges {
			for _, out := range edge.Outputs {
				fmt.Fprintf(w, "    %s\n", out.Path)
			}
		}
	}
	return nil
}

func (a *app) rulesCmd() *cobra.Command {
	printDescription := false
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List all rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.loadState()
			if err != nil {
				return err
			}
			toolRules(cmd.OutOrStdout(), state, printDescription)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printDescription, "description", false, "also print the description of the rule")
	return cmd
}

func toolRules(w io.Writer, state *nin.State, printDescription bool) {
	names := make([]string, 0, len(state.Rules))
	for n := range state.Rules {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s", name)
		if printDescription {
			if description := state.Rules[name].GetBinding("description"); description != nil {
				fmt.Fprintf(w, ": %s", description.Unparse())
			}
		}
		fmt.Fprintf(w, "\n")
	}
}

func (a *app) commandsCmd() *cobra.Command {
	single := false
	cmd := &cobra.Command{
		Use:   "commands [targets...]",
		Short: "List all commands required to rebuild given targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.loadState()
			if err != nil {
				return err
			}
			nodes, err := collectTargets(state, args)
			if err != nil {
				return err
			}
			seen := map[*nin.Edge]struct{}{}
			for _, node := range nodes {
				printCommands(cmd.OutOrStdout(), node.InEdge, seen, !single)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&single, "single", "s", false, "only print the final command to build a target, not the whole chain")
	return cmd
}

func printCommands(w io.Writer, edge *nin.Edge, seen map[*nin.Edge]struct{}, all bool) {
	if edge == nil {
		return
	}
	if _, ok := seen[edge]; ok {
		return
	}
	seen[edge] = struct{}{}
	if all {
		for _, in := range edge.Inputs {
			printCommands(w, in.InEdge, seen, all)
		}
	}
	fmt.Fprintf(w, "%s\n", edge.EvaluateCommand())
}
