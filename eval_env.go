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
	"sort"
	"strings"
)

// An interface for a scope for variable (e.g. "$foo") lookups.
type Env interface {
	LookupVariable(v string) string
}

type TokenListItem struct {
	Value     string
	IsSpecial bool
}

func (t *TokenListItem) String() string {
	out := fmt.Sprintf("%q:", t.Value)
	if t.IsSpecial {
		out += "special"
	} else {
		out += "raw"
	}
	return out
}

type TokenList []TokenListItem

// A tokenized string that contains variable references.
// Can be evaluated relative to an Env.
type EvalString struct {
	Parsed TokenList
}

var (
	errBadEscape     = errors.New("bad $-escape (literal $ must be written as $$)")
	errMissingCurly  = errors.New("expected closing curly after ${")
	errEmptyVariable = errors.New("empty variable name after ${")
)

func isSimpleVarnameChar(c byte) bool {
	return ('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9') ||
		c == '_' || c == '-'
}

func isVarnameChar(c byte) bool {
	return isSimpleVarnameChar(c) || c == '.'
}

// Parse appends the fragments of input.
//
// "$$" is a literal '$', "$name" and "${name}" are variable references. On
// error, the returned index is the byte offset of the offending '$' in
// input.
func (e *EvalString) Parse(input string) (int, error) {
	for i := 0; i < len(input); {
		d := strings.IndexByte(input[i:], '$')
		if d == -1 {
			e.AddText(input[i:])
			break
		}
		if d != 0 {
			e.AddText(input[i : i+d])
			i += d
		}
		// input[i] is '$'.
		if i+1 >= len(input) {
			return i, errBadEscape
		}
		switch c := input[i+1]; {
		case c == '$':
			e.AddText("$")
			i += 2
		case c == '{':
			j := i + 2
			for j < len(input) && isVarnameChar(input[j]) {
				j++
			}
			if j >= len(input) || input[j] != '}' {
				return i, errMissingCurly
			}
			if j == i+2 {
				return i, errEmptyVariable
			}
			e.AddSpecial(input[i+2 : j])
			i = j + 1
		case isSimpleVarnameChar(c):
			j := i + 1
			for j < len(input) && isSimpleVarnameChar(input[j]) {
				j++
			}
			e.AddSpecial(input[i+1 : j])
			i = j
		default:
			return i, errBadEscape
		}
	}
	return 0, nil
}

// @return The evaluated string with variable expanded using value found in
//         environment @a env.
func (e *EvalString) Evaluate(env Env) string {
	// Warning: this function is recursive.
	var z [16]string
	var s []string
	if l := len(e.Parsed); l <= cap(z) {
		s = z[:l]
	} else {
		s = make([]string, l)
	}
	total := 0
	for i, p := range e.Parsed {
		if p.IsSpecial {
			s[i] = env.LookupVariable(p.Value)
		} else {
			s[i] = p.Value
		}
		total += len(s[i])
	}
	var b strings.Builder
	b.Grow(total)
	for _, x := range s {
		b.WriteString(x)
	}
	return b.String()
}

// AddText appends a literal, merging it with a preceding literal.
func (e *EvalString) AddText(text string) {
	if l := len(e.Parsed); l != 0 && !e.Parsed[l-1].IsSpecial {
		e.Parsed[l-1].Value += text
		return
	}
	e.Parsed = append(e.Parsed, TokenListItem{text, false})
}

func (e *EvalString) AddSpecial(text string) {
	e.Parsed = append(e.Parsed, TokenListItem{text, true})
}

// Empty returns true if nothing was parsed.
func (e *EvalString) Empty() bool {
	return len(e.Parsed) == 0
}

func (e *EvalString) String() string {
	out := ""
	for i, t := range e.Parsed {
		if i != 0 {
			out += ","
		}
		out += t.String()
	}
	return out
}

// Construct a human-readable representation of the parsed state,
// for use in tests.
func (e *EvalString) Serialize() string {
	result := ""
	for _, i := range e.Parsed {
		result += "["
		if i.IsSpecial {
			result += "$"
		}
		result += i.Value
		result += "]"
	}
	return result
}

// @return The string with variables not expanded.
func (e *EvalString) Unparse() string {
	result := ""
	for _, i := range e.Parsed {
		if i.IsSpecial {
			result += "${" + i.Value + "}"
		} else {
			result += strings.ReplaceAll(i.Value, "$", "$$")
		}
	}
	return result
}

//

// An invocable build command and associated metadata (description, etc.).
type Rule struct {
	Name        string
	Command     EvalString
	Depfile     EvalString
	Description EvalString
}

func NewRule(name string) *Rule {
	return &Rule{Name: name}
}

// IsReservedBinding returns true for the keys a rule block accepts.
func IsReservedBinding(v string) bool {
	return v == "command" || v == "depfile" || v == "description"
}

// GetBinding returns the template for key or nil if the rule doesn't set it.
func (r *Rule) GetBinding(key string) *EvalString {
	var e *EvalString
	switch key {
	case "command":
		e = &r.Command
	case "depfile":
		e = &r.Depfile
	case "description":
		e = &r.Description
	default:
		return nil
	}
	if e.Empty() {
		return nil
	}
	return e
}

func (r *Rule) String() string {
	out := "Rule:" + r.Name + "{"
	for i, n := range []string{"command", "depfile", "description"} {
		if i != 0 {
			out += ","
		}
		out += n + ":"
		if b := r.GetBinding(n); b != nil {
			out += b.String()
		}
	}
	out += "}"
	return out
}

//

// An Env which contains a mapping of variables to values
// as well as a pointer to a parent scope.
type BindingEnv struct {
	Bindings map[string]string
	// Parent is set at construction and never changes.
	Parent *BindingEnv
}

func NewBindingEnv(parent *BindingEnv) *BindingEnv {
	return &BindingEnv{
		Bindings: map[string]string{},
		Parent:   parent,
	}
}

func (b *BindingEnv) String() string {
	out := "BindingEnv{"
	if b.Parent != nil {
		out += "(has parent)"
	}
	names := make([]string, 0, len(b.Bindings))
	for n := range b.Bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out += "\n  " + n + ":" + b.Bindings[n]
	}
	out += "\n}"
	return out
}

// AddBinding sets key in this scope, overwriting a previous value.
func (b *BindingEnv) AddBinding(key, val string) {
	b.Bindings[key] = val
}

func (b *BindingEnv) LookupVariable(v string) string {
	if i, ok := b.Bindings[v]; ok {
		return i
	}
	if b.Parent != nil {
		return b.Parent.LookupVariable(v)
	}
	return ""
}

// This is tricky.  Edges want lookup scope to go in this order:
// 1) value set on edge itself (edge_->env_)
// 2) value set on rule, with expansion in the edge's scope
// 3) value set on enclosing scope of edge (edge_->env_->parent_)
// This function takes as parameters the necessary info to do (2).
func (b *BindingEnv) LookupWithFallback(v string, eval *EvalString, env Env) string {
	if i, ok := b.Bindings[v]; ok {
		return i
	}
	if eval != nil {
		return eval.Evaluate(env)
	}
	if b.Parent != nil {
		return b.Parent.LookupVariable(v)
	}
	return ""
}
