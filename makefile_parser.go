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
	"os"
)

// MakefileParser parses the Makefile-like dependency files written by
// compilers, of the form "out: in1 in2 ...".
type MakefileParser struct {
	tokenizer *Tokenizer

	Out string
	Ins []string
}

func NewMakefileParser() *MakefileParser {
	return &MakefileParser{tokenizer: NewTokenizer(false)}
}

// Parse parses input, filling Out and Ins.
func (m *MakefileParser) Parse(filename string, input []byte) error {
	m.Out = ""
	m.Ins = nil
	m.tokenizer.Start(filename, input)
	m.tokenizer.SkipWhitespace(true)

	out, ok := m.tokenizer.ReadIdent()
	if !ok {
		return m.tokenizer.ErrorExpected("output filename")
	}
	m.Out = out
	if err := m.tokenizer.ExpectToken(COLON); err != nil {
		return err
	}
	for {
		in, ok := m.tokenizer.ReadIdent()
		if !ok {
			break
		}
		m.Ins = append(m.Ins, in)
	}
	// The final newline is optional.
	if m.tokenizer.PeekToken() == NEWLINE {
		m.tokenizer.ConsumeToken()
	}
	m.tokenizer.SkipWhitespace(true)
	return m.tokenizer.ExpectToken(TEOF)
}

// LoadDepfile reads and parses the dependency file of edge and returns the
// canonicalized inputs it lists.
//
// It returns nothing if the edge has no depfile or the file doesn't exist
// yet.
func LoadDepfile(fileReader FileReader, edge *Edge) ([]string, error) {
	path := edge.EvaluateDepfile()
	if path == "" {
		return nil, nil
	}
	content, err := fileReader.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading '%s': %w", path, err)
	}
	p := NewMakefileParser()
	if err := p.Parse(path, content); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out, err := CanonicalizePath(p.Out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if out != edge.Outputs[0].Path {
		return nil, fmt.Errorf("expected depfile '%s' to mention '%s', got '%s'", path, edge.Outputs[0].Path, out)
	}
	ins := make([]string, 0, len(p.Ins))
	for _, in := range p.Ins {
		c, err := CanonicalizePath(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ins = append(ins, c)
	}
	return ins, nil
}
