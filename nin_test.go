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
	"io"
	"log/slog"
	"os"
	"testing"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// assertParse parses input into state and verifies the resulting graph.
func assertParse(t *testing.T, state *State, input string, opts ManifestParserOptions) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	parser := NewManifestParser(state, nil, opts)
	if err := parser.Parse("input", []byte(input)); err != nil {
		t.Fatal(err)
	}
	VerifyGraph(t, state)
}

// VerifyGraph checks the invariants of the in and out edges.
func VerifyGraph(t *testing.T, state *State) {
	t.Helper()
	for i, e := range state.Edges {
		if int(e.ID) != i {
			t.Fatalf("edge %d has ID %d", i, e.ID)
		}
		if len(e.Outputs) == 0 {
			t.Fatal("all edges need at least one output")
		}
		if int(e.ImplicitDeps)+int(e.OrderOnlyDeps) > len(e.Inputs) {
			t.Fatal("implicit and order-only counts exceed the inputs")
		}
		for _, inNode := range e.Inputs {
			found := false
			for _, oe := range inNode.OutEdges {
				if oe == e {
					found = true
				}
			}
			if !found {
				t.Fatal("each edge's inputs must have the edge as out-edge")
			}
		}
		for _, outNode := range e.Outputs {
			if outNode.InEdge != e {
				t.Fatal("each edge's output must have the edge as in-edge")
			}
		}
	}

	// The union of all in- and out-edges of each nodes should be exactly edges.
	nodeEdgeSet := map[*Edge]struct{}{}
	for p, n := range state.Paths {
		if p != n.Path || state.Nodes[n.ID] != n {
			t.Fatalf("node %q is not indexed correctly", p)
		}
		if n.InEdge != nil {
			nodeEdgeSet[n.InEdge] = struct{}{}
		}
		for _, oe := range n.OutEdges {
			nodeEdgeSet[oe] = struct{}{}
		}
	}
	if len(state.Edges) != len(nodeEdgeSet) {
		t.Fatal("the union of all in- and out-edges must match State.Edges")
	}
}

// VirtualFileSystem is an in-memory FileReader. It logs file accesses so it
// can be used by tests to verify disk access patterns.
type VirtualFileSystem struct {
	filesRead []string
	files     map[string][]byte
}

func NewVirtualFileSystem() VirtualFileSystem {
	return VirtualFileSystem{files: map[string][]byte{}}
}

// "Create" a file with contents.
func (v *VirtualFileSystem) Create(path string, contents string) {
	v.files[path] = []byte(contents)
}

func (v *VirtualFileSystem) ReadFile(path string) ([]byte, error) {
	v.filesRead = append(v.filesRead, path)
	if c, ok := v.files[path]; ok {
		// Return a copy so callers can't mutate the file.
		return append([]byte(nil), c...), nil
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
}
