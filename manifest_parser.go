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
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultMaxIncludeDepth is the include/subninja nesting limit used when
// ManifestParserOptions.MaxIncludeDepth is 0.
const DefaultMaxIncludeDepth = 64

// ManifestParserOptions are the options when parsing a build.ninja file.
type ManifestParserOptions struct {
	// ErrOnDupeEdge causes duplicate rules for one target to print an error,
	// otherwise warns.
	ErrOnDupeEdge bool
	// Silence warnings.
	Quiet bool
	// MaxIncludeDepth bounds the nesting of include and subninja statements.
	MaxIncludeDepth int
	// RootHack replaces a "ROOT_HACK" prefix in top level binding values with
	// the current working directory. Legacy, off by default.
	RootHack bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// ManifestParser parses .ninja files.
type ManifestParser struct {
	// Immutable
	fileReader FileReader
	options    ManifestParserOptions
	logger     *slog.Logger

	// Mutable.
	tokenizer *Tokenizer
	state     *State
	env       *BindingEnv
	depth     int
}

// NewManifestParser returns an initialized ManifestParser.
func NewManifestParser(state *State, fileReader FileReader, options ManifestParserOptions) *ManifestParser {
	if options.MaxIncludeDepth == 0 {
		options.MaxIncludeDepth = DefaultMaxIncludeDepth
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestParser{
		fileReader: fileReader,
		options:    options,
		logger:     logger,
		tokenizer:  NewTokenizer(true),
		state:      state,
		env:        state.Bindings,
	}
}

// Load and parse a file.
func (m *ManifestParser) Load(filename string) error {
	input, err := m.fileReader.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("loading '%s': %w", filename, err)
	}
	if err := m.Parse(filename, input); err != nil {
		return fmt.Errorf("loading '%s': %w", filename, err)
	}
	return nil
}

// Parse a file, given its contents.
func (m *ManifestParser) Parse(filename string, input []byte) error {
	defer metricRecord(".ninja parse")()
	m.tokenizer.Start(filename, input)
	m.tokenizer.SkipWhitespace(true)
	for {
		var err error
		switch token := m.tokenizer.PeekToken(); token {
		case TEOF:
			return nil
		case RULE:
			err = m.parseRule()
		case BUILD:
			err = m.parseEdge()
		case SUBNINJA, INCLUDE:
			err = m.parseFileInclude(token)
		case IDENT:
			err = m.parseBinding()
		default:
			err = m.tokenizer.Error("unhandled " + m.tokenizer.Token().String())
		}
		if err != nil {
			return err
		}
		m.tokenizer.SkipWhitespace(true)
	}
}

// parseBinding parses a top level binding. Its value is evaluated
// immediately in the current scope.
func (m *ManifestParser) parseBinding() error {
	pos := m.tokenizer.Token().Pos
	key, eval, err := m.parseLet()
	if err != nil {
		return err
	}
	value := eval.Evaluate(m.env)
	if key == "ninja_required_version" {
		if err := checkVersion(m.logger, value); err != nil {
			return m.tokenizer.ErrorAt(pos, err.Error())
		}
	}
	if m.options.RootHack && strings.HasPrefix(value, "ROOT_HACK") {
		cwd, err := os.Getwd()
		if err != nil {
			return m.tokenizer.wrapErrorAt(pos, err, "getcwd")
		}
		value = cwd + value[len("ROOT_HACK"):]
	}
	m.env.AddBinding(key, value)
	return nil
}

func (m *ManifestParser) parseRule() error {
	if err := m.tokenizer.ExpectToken(RULE); err != nil {
		return err
	}
	m.tokenizer.PeekToken()
	namePos := m.tokenizer.Token().Pos
	name, ok := m.tokenizer.ReadIdent()
	if !ok {
		return m.tokenizer.ErrorExpected("rule name")
	}
	if err := m.tokenizer.Newline(); err != nil {
		return err
	}

	if m.state.LookupRule(name) != nil {
		return m.tokenizer.ErrorAt(namePos, "duplicate rule '"+name+"'")
	}

	rule := NewRule(name)
	if m.tokenizer.PeekToken() == INDENT {
		m.tokenizer.ConsumeToken()
		for m.tokenizer.PeekToken() != OUTDENT {
			keyPos := m.tokenizer.Token().Pos
			key, value, err := m.parseLet()
			if err != nil {
				return err
			}
			if !IsReservedBinding(key) {
				return m.tokenizer.ErrorAt(keyPos, "unexpected variable '"+key+"'")
			}
			switch key {
			case "command":
				rule.Command = value
			case "depfile":
				rule.Depfile = value
			case "description":
				rule.Description = value
			}
		}
		m.tokenizer.ConsumeToken()
	}

	if rule.Command.Empty() {
		return m.tokenizer.Error("expected 'command =' line")
	}
	if !m.state.AddRule(rule) {
		return m.tokenizer.ErrorAt(namePos, "duplicate rule '"+name+"'")
	}
	return nil
}

// parseLet parses a "key = value" line. The value is parsed but not
// evaluated.
func (m *ManifestParser) parseLet() (string, EvalString, error) {
	var eval EvalString
	key, ok := m.tokenizer.ReadIdent()
	if !ok {
		return "", eval, m.tokenizer.ErrorExpected("variable name")
	}
	if err := m.tokenizer.ExpectToken(EQUALS); err != nil {
		return "", eval, err
	}

	// Backup the tokenizer state prior to consuming the line, for reporting
	// the source location in case of a parse error later.
	backup := *m.tokenizer
	raw, err := m.tokenizer.ReadToNewline(-1)
	if err != nil {
		return "", eval, err
	}
	if errIndex, err := eval.Parse(raw); err != nil {
		// Advance the saved tokenizer state up to the error index to report
		// the error at the correct source location.
		_, _ = backup.ReadToNewline(errIndex)
		return "", eval, backup.Error(err.Error())
	}
	return key, eval, nil
}

// pathToken is a path as written in a build statement.
type pathToken struct {
	text string
	pos  int
}

// readPaths appends identifiers to paths until a non-identifier token.
func (m *ManifestParser) readPaths(paths []pathToken) []pathToken {
	for {
		m.tokenizer.PeekToken()
		pos := m.tokenizer.Token().Pos
		p, ok := m.tokenizer.ReadIdent()
		if !ok {
			return paths
		}
		paths = append(paths, pathToken{p, pos})
	}
}

// evalPath evaluates a path in env and canonicalizes it.
func (m *ManifestParser) evalPath(p pathToken, env Env) (string, error) {
	var eval EvalString
	if errIndex, err := eval.Parse(p.text); err != nil {
		return "", m.tokenizer.ErrorAt(p.pos+errIndex, err.Error())
	}
	path, err := CanonicalizePath(eval.Evaluate(env))
	if err != nil {
		return "", m.tokenizer.ErrorAt(p.pos, err.Error())
	}
	return path, nil
}

func (m *ManifestParser) parseEdge() error {
	if err := m.tokenizer.ExpectToken(BUILD); err != nil {
		return err
	}

	var outs []pathToken
	for {
		if m.tokenizer.PeekToken() == COLON {
			if len(outs) == 0 {
				return m.tokenizer.ErrorExpected("output file list")
			}
			m.tokenizer.ConsumeToken()
			break
		}
		n := len(outs)
		if outs = m.readPaths(outs); len(outs) == n {
			return m.tokenizer.ErrorExpected("output file list")
		}
	}

	m.tokenizer.PeekToken()
	rulePos := m.tokenizer.Token().Pos
	ruleName, ok := m.tokenizer.ReadIdent()
	if !ok {
		return m.tokenizer.ErrorExpected("build command name")
	}
	rule := m.state.LookupRule(ruleName)
	if rule == nil {
		return m.tokenizer.ErrorAt(rulePos, "unknown build rule '"+ruleName+"'")
	}
	if !rule.Depfile.Empty() && len(outs) > 1 {
		return m.tokenizer.ErrorAt(rulePos, "dependency files only work with single-output rules")
	}

	ins := m.readPaths(nil)

	// Add all implicit deps, counting how many as we go.
	implicit := 0
	if m.tokenizer.PeekToken() == PIPE {
		m.tokenizer.ConsumeToken()
		n := len(ins)
		ins = m.readPaths(ins)
		implicit = len(ins) - n
	}

	// Add all order-only deps, counting how many as we go.
	orderOnly := 0
	if m.tokenizer.PeekToken() == PIPE2 {
		m.tokenizer.ConsumeToken()
		n := len(ins)
		ins = m.readPaths(ins)
		orderOnly = len(ins) - n
	}

	if err := m.tokenizer.Newline(); err != nil {
		return err
	}

	// Bindings on edges are rare, so allocate per-edge envs only when needed.
	env := m.env
	if m.tokenizer.PeekToken() == INDENT {
		m.tokenizer.ConsumeToken()
		env = NewBindingEnv(m.env)
		for m.tokenizer.PeekToken() != OUTDENT {
			key, val, err := m.parseLet()
			if err != nil {
				return err
			}
			env.AddBinding(key, val.Evaluate(env))
		}
		m.tokenizer.ConsumeToken()
	}

	// Evaluate all paths before touching the graph.
	outPaths := make([]string, len(outs))
	for i, p := range outs {
		path, err := m.evalPath(p, env)
		if err != nil {
			return err
		}
		outPaths[i] = path
	}
	inPaths := make([]string, len(ins))
	for i, p := range ins {
		path, err := m.evalPath(p, env)
		if err != nil {
			return err
		}
		inPaths[i] = path
	}

	// Drop the outputs another edge already produces, and the ones listed
	// twice in this statement, before touching the graph.
	seen := make(map[string]struct{}, len(outPaths))
	kept := make([]string, 0, len(outPaths))
	for i, path := range outPaths {
		if _, ok := seen[path]; ok {
			if !m.options.Quiet {
				m.logger.Warn("output listed more than once in a build statement", "path", path)
			}
			continue
		}
		seen[path] = struct{}{}
		if node := m.state.LookupNode(path); node != nil && node.InEdge != nil {
			if m.options.ErrOnDupeEdge {
				return m.tokenizer.ErrorAt(outs[i].pos, "multiple rules generate "+path)
			}
			if !m.options.Quiet {
				m.logger.Warn("multiple rules generate the same target; builds involving this target will not be correct; continuing anyway", "path", path)
			}
			continue
		}
		kept = append(kept, path)
	}
	if len(kept) == 0 {
		// All outputs of the edge are already created by other edges.
		return nil
	}

	edge := m.state.AddEdge(rule)
	edge.Env = env
	for _, path := range kept {
		m.state.AddOut(edge, path)
	}
	for _, path := range inPaths {
		m.state.AddIn(edge, path)
	}
	edge.ImplicitDeps = int32(implicit)
	edge.OrderOnlyDeps = int32(orderOnly)
	return nil
}

// parseFileInclude parses either a 'subninja' or 'include' line.
func (m *ManifestParser) parseFileInclude(token TokenType) error {
	if err := m.tokenizer.ExpectToken(token); err != nil {
		return err
	}
	m.tokenizer.PeekToken()
	pos := m.tokenizer.Token().Pos
	path, ok := m.tokenizer.ReadIdent()
	if !ok {
		return m.tokenizer.ErrorExpected("path to ninja file")
	}
	if err := m.tokenizer.Newline(); err != nil {
		return err
	}
	if m.depth >= m.options.MaxIncludeDepth {
		return m.tokenizer.ErrorAt(pos, "include depth exceeds "+strconv.Itoa(m.options.MaxIncludeDepth))
	}

	contents, err := m.fileReader.ReadFile(path)
	if err != nil {
		return m.tokenizer.wrapErrorAt(pos, err, "loading '"+path+"'")
	}

	subparser := &ManifestParser{
		fileReader: m.fileReader,
		options:    m.options,
		logger:     m.logger,
		tokenizer:  NewTokenizer(true),
		state:      m.state,
		env:        m.env,
		depth:      m.depth + 1,
	}
	if token == SUBNINJA {
		// subninja: Construct a new scope for the new parser.
		subparser.env = NewBindingEnv(m.env)
	}
	m.logger.Debug("parsing included manifest", "kind", Token{Type: token}.String(), "path", path, "depth", subparser.depth)
	if err := subparser.Parse(path, contents); err != nil {
		return m.tokenizer.wrapErrorAt(pos, err, "in '"+path+"'")
	}
	return nil
}
