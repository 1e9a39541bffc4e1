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

package nin

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
)

// Information about a node in the dependency graph: the file.
type Node struct {
	// Canonical path, unique within a State.
	Path string

	// The Edge that produces this Node, or nil when there is no
	// known edge to produce it.
	InEdge *Edge

	// All Edges that use this Node as an input, in discovery order.
	OutEdges []*Edge

	// A dense integer id for the node, its index in State.Nodes.
	ID int32
}

func (n *Node) String() string {
	return n.Path
}

// An edge in the dependency graph; links between Nodes using Rules.
type Edge struct {
	Rule    *Rule
	Inputs  []*Node
	Outputs []*Node
	// Env is the scope the rule's templates are evaluated in. It is either
	// the enclosing scope of the build statement or a child scope holding the
	// statement's own bindings.
	Env *BindingEnv

	// A dense integer id for the edge, its index in State.Edges.
	ID int32

	// There are three types of inputs.
	// 1) explicit deps, which show up as $in on the command line;
	// 2) implicit deps, which the target depends on implicitly (e.g. C headers),
	//                   and changes in them cause the target to rebuild;
	// 3) order-only deps, which are needed before the target builds but which
	//                     don't cause the target to rebuild.
	// These are stored in Inputs in that order, and we keep counts of
	// #2 and #3 when we need to access the various subsets.
	ImplicitDeps  int32
	OrderOnlyDeps int32
}

// ExplicitDeps returns the number of explicit inputs.
func (e *Edge) ExplicitDeps() int {
	return len(e.Inputs) - int(e.ImplicitDeps) - int(e.OrderOnlyDeps)
}

func (e *Edge) IsImplicit(index int) bool {
	return index >= e.ExplicitDeps() && !e.IsOrderOnly(index)
}

func (e *Edge) IsOrderOnly(index int) bool {
	return index >= len(e.Inputs)-int(e.OrderOnlyDeps)
}

// EvaluateCommand expands all variables in the command and returns it.
func (e *Edge) EvaluateCommand() string {
	return e.GetBinding("command")
}

// EvaluateDescription returns the expanded description, without shell
// escaping.
func (e *Edge) EvaluateDescription() string {
	env := NewEdgeEnv(e, doNotEscape)
	return env.LookupVariable("description")
}

// EvaluateDepfile returns the expanded depfile path, without shell escaping.
func (e *Edge) EvaluateDepfile() string {
	env := NewEdgeEnv(e, doNotEscape)
	return env.LookupVariable("depfile")
}

// GetBinding returns the shell-escaped value of key.
func (e *Edge) GetBinding(key string) string {
	env := NewEdgeEnv(e, shellEscape)
	return env.LookupVariable(key)
}

func (e *Edge) Dump(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%s[ ", prefix)
	for _, i := range e.Inputs {
		fmt.Fprintf(w, "%s ", i.Path)
	}
	fmt.Fprintf(w, "--%s-> ", e.Rule.Name)
	for _, i := range e.Outputs {
		fmt.Fprintf(w, "%s ", i.Path)
	}
	fmt.Fprintf(w, "] #%d\n", e.ID)
}

//

type escapeKind int

const (
	shellEscape escapeKind = iota
	doNotEscape
)

// EdgeEnv is an Env for an Edge, providing $in and $out.
type EdgeEnv struct {
	lookups     []string
	edge        *Edge
	escapeInOut escapeKind
	recursive   bool
}

func NewEdgeEnv(edge *Edge, escape escapeKind) EdgeEnv {
	return EdgeEnv{
		edge:        edge,
		escapeInOut: escape,
	}
}

func (e *EdgeEnv) LookupVariable(v string) string {
	if v == "in" || v == "in_newline" {
		sep := byte('\n')
		if v == "in" {
			sep = ' '
		}
		return e.makePathList(e.edge.Inputs[:e.edge.ExplicitDeps()], sep)
	} else if v == "out" {
		return e.makePathList(e.edge.Outputs, ' ')
	}

	if e.recursive {
		for i, l := range e.lookups {
			if l == v {
				cycle := strings.Join(e.lookups[i:], " -> ") + " -> " + v
				slog.Warn("cycle in rule variables", "rule", e.edge.Rule.Name, "cycle", cycle)
				return ""
			}
		}
	}

	// See notes on BindingEnv.LookupWithFallback.
	eval := e.edge.Rule.GetBinding(v)
	if e.recursive && eval != nil {
		e.lookups = append(e.lookups, v)
	}

	// In practice, variables defined on rules never use another rule variable.
	// For performance, only start checking for cycles after the first lookup.
	e.recursive = true
	return e.edge.Env.LookupWithFallback(v, eval, e)
}

// makePathList constructs a list of paths suitable for a command line.
func (e *EdgeEnv) makePathList(span []*Node, sep byte) string {
	var b strings.Builder
	for i, n := range span {
		if i != 0 {
			b.WriteByte(sep)
		}
		if e.escapeInOut == shellEscape {
			if runtime.GOOS == "windows" {
				b.WriteString(GetWin32EscapedString(n.Path))
			} else {
				b.WriteString(GetShellEscapedString(n.Path))
			}
		} else {
			b.WriteString(n.Path)
		}
	}
	return b.String()
}
