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
	"errors"
	"fmt"
	"io"
	"sort"
)

// State is the dependency graph built from a manifest.
//
// It is the single sink of a parse, including all the included files.
type State struct {
	// Mapping of rule name -> Rule. Rule names are unique across the graph.
	Rules map[string]*Rule

	// Mapping of canonical path -> Node.
	Paths map[string]*Node

	// All the nodes of the graph, indexed by Node.ID.
	Nodes []*Node

	// All the edges of the graph, indexed by Edge.ID.
	Edges []*Edge

	// Bindings is the root scope.
	Bindings *BindingEnv
}

func NewState() *State {
	return &State{
		Rules:    map[string]*Rule{},
		Paths:    map[string]*Node{},
		Bindings: NewBindingEnv(nil),
	}
}

// AddRule registers rule. It returns false if a rule with the same name
// already exists.
func (s *State) AddRule(rule *Rule) bool {
	if _, ok := s.Rules[rule.Name]; ok {
		return false
	}
	s.Rules[rule.Name] = rule
	return true
}

func (s *State) LookupRule(name string) *Rule {
	return s.Rules[name]
}

// AddEdge appends a new edge using rule, evaluated in the root scope until
// the caller sets Edge.Env.
func (s *State) AddEdge(rule *Rule) *Edge {
	edge := &Edge{
		Rule: rule,
		Env:  s.Bindings,
		ID:   int32(len(s.Edges)),
	}
	s.Edges = append(s.Edges, edge)
	return edge
}

// GetNode returns the node for path, creating it if needed. path must be
// canonical.
func (s *State) GetNode(path string) *Node {
	if node := s.Paths[path]; node != nil {
		return node
	}
	node := &Node{Path: path, ID: int32(len(s.Nodes))}
	s.Paths[path] = node
	s.Nodes = append(s.Nodes, node)
	return node
}

func (s *State) LookupNode(path string) *Node {
	return s.Paths[path]
}

// SpellcheckNode returns the node with the path closest to path, or nil if
// none is close enough.
func (s *State) SpellcheckNode(path string) *Node {
	const maxValidEditDistance = 3
	minDistance := maxValidEditDistance + 1
	var result *Node
	// Iterate over Nodes instead of Paths so the result is deterministic.
	for _, node := range s.Nodes {
		distance := editDistance(node.Path, path, true, maxValidEditDistance)
		if distance < minDistance {
			minDistance = distance
			result = node
		}
	}
	return result
}

// AddIn appends the node for path to the edge inputs.
func (s *State) AddIn(edge *Edge, path string) {
	node := s.GetNode(path)
	edge.Inputs = append(edge.Inputs, node)
	node.OutEdges = append(node.OutEdges, edge)
}

// AddOut appends the node for path to the edge outputs. It returns false if
// the node is already produced by another edge.
func (s *State) AddOut(edge *Edge, path string) bool {
	node := s.GetNode(path)
	if node.InEdge != nil {
		return false
	}
	edge.Outputs = append(edge.Outputs, node)
	node.InEdge = edge
	return true
}

// RootNodes returns the root node(s) of the graph. Root nodes are outputs
// with no consuming edge.
func (s *State) RootNodes() ([]*Node, error) {
	var rootNodes []*Node
	for _, e := range s.Edges {
		for _, out := range e.Outputs {
			if len(out.OutEdges) == 0 {
				rootNodes = append(rootNodes, out)
			}
		}
	}
	if len(s.Edges) != 0 && len(rootNodes) == 0 {
		return nil, errors.New("could not determine root nodes of build graph")
	}
	return rootNodes, nil
}

// BuildDir returns the value of the top level "builddir" binding.
func (s *State) BuildDir() string {
	return s.Bindings.LookupVariable("builddir")
}

// Dump prints the nodes and edges (useful for debugging).
func (s *State) Dump(w io.Writer) {
	names := make([]string, 0, len(s.Rules))
	for n := range s.Rules {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\n", s.Rules[name])
	}
	for _, node := range s.Nodes {
		fmt.Fprintf(w, "%s [id:%d]\n", node.Path, node.ID)
	}
	for _, e := range s.Edges {
		e.Dump(w, "")
	}
}
