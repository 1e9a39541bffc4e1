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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEvalString_Parse(t *testing.T) {
	data := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"plain text", "[plain text]"},
		{"$var ${var} $$ $x-y ${x.y}z$a.b", "[$var][ ][$var][ $ ][$x-y][ ][$x.y][z][$a][.b]"},
		{"a$$b$$", "[a$b$]"},
	}
	for i, l := range data {
		var e EvalString
		if _, err := e.Parse(l.input); err != nil {
			t.Fatalf("#%d: %s", i, err)
		}
		if got := e.Serialize(); got != l.want {
			t.Errorf("#%d %q: want %q, got %q", i, l.input, l.want, got)
		}
	}
}

func TestEvalString_ParseError(t *testing.T) {
	data := []struct {
		input string
		index int
		err   error
	}{
		{"$", 0, errBadEscape},
		{"abc $!", 4, errBadEscape},
		{"abc $ x", 4, errBadEscape},
		{"$$$:", 2, errBadEscape},
		{"a ${foo", 2, errMissingCurly},
		{"a ${foo bar}", 2, errMissingCurly},
		{"${}", 0, errEmptyVariable},
		{"x ${a-b}y ${", 10, errMissingCurly},
	}
	for i, l := range data {
		var e EvalString
		index, err := e.Parse(l.input)
		if err != l.err {
			t.Errorf("#%d %q: want %v, got %v", i, l.input, l.err, err)
		}
		if index != l.index {
			t.Errorf("#%d %q: want index %d, got %d", i, l.input, l.index, index)
		}
	}
}

type mapEnv map[string]string

func (m mapEnv) LookupVariable(v string) string {
	return m[v]
}

func TestEvalString_Evaluate(t *testing.T) {
	var e EvalString
	if _, err := e.Parse("cc ${in} -o $out $$HOME $undefined"); err != nil {
		t.Fatal(err)
	}
	env := mapEnv{"in": "a.c", "out": "a.o"}
	if got := e.Evaluate(env); got != "cc a.c -o a.o $HOME " {
		t.Fatalf("%q", got)
	}
	if got := e.Unparse(); got != "cc ${in} -o ${out} $$HOME ${undefined}" {
		t.Fatalf("%q", got)
	}
	// Unparse is parsed back to the same fragments.
	var e2 EvalString
	if _, err := e2.Parse(e.Unparse()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(e.Parsed, e2.Parsed); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestEvalString_Long(t *testing.T) {
	var e EvalString
	for i := 0; i < 20; i++ {
		e.AddSpecial("x")
		e.AddText("-")
	}
	want := ""
	for i := 0; i < 20; i++ {
		want += "1-"
	}
	if got := e.Evaluate(mapEnv{"x": "1"}); got != want {
		t.Fatalf("%q", got)
	}
}

func TestEvalString_AddTextMerges(t *testing.T) {
	var e EvalString
	e.AddText("a")
	e.AddText("b")
	e.AddSpecial("c")
	e.AddText("d")
	want := TokenList{{"ab", false}, {"c", true}, {"d", false}}
	if diff := cmp.Diff(want, e.Parsed); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if e.Empty() {
		t.Fatal("expected non empty")
	}
}

func TestBindingEnv_Lookup(t *testing.T) {
	root := NewBindingEnv(nil)
	root.AddBinding("a", "root-a")
	root.AddBinding("b", "root-b")
	child := NewBindingEnv(root)
	child.AddBinding("a", "child-a")

	if got := child.LookupVariable("a"); got != "child-a" {
		t.Fatal(got)
	}
	if got := child.LookupVariable("b"); got != "root-b" {
		t.Fatal(got)
	}
	if got := child.LookupVariable("c"); got != "" {
		t.Fatal(got)
	}
	// Rebinding overwrites.
	child.AddBinding("a", "again")
	if got := child.LookupVariable("a"); got != "again" {
		t.Fatal(got)
	}
	if got := root.LookupVariable("a"); got != "root-a" {
		t.Fatal(got)
	}
}

func TestBindingEnv_LookupWithFallback(t *testing.T) {
	root := NewBindingEnv(nil)
	root.AddBinding("v", "root")
	child := NewBindingEnv(root)

	var tmpl EvalString
	tmpl.AddText("from rule ")
	tmpl.AddSpecial("x")
	env := mapEnv{"x": "X"}

	// A rule template takes precedence over the parent scope.
	if got := child.LookupWithFallback("v", &tmpl, env); got != "from rule X" {
		t.Fatal(got)
	}
	if got := child.LookupWithFallback("v", nil, env); got != "root" {
		t.Fatal(got)
	}
	// The scope's own binding takes precedence over everything.
	child.AddBinding("v", "edge")
	if got := child.LookupWithFallback("v", &tmpl, env); got != "edge" {
		t.Fatal(got)
	}
}

func TestRule_GetBinding(t *testing.T) {
	r := NewRule("cc")
	if r.GetBinding("command") != nil {
		t.Fatal("expected nil")
	}
	r.Command.AddText("gcc")
	if b := r.GetBinding("command"); b == nil || b.Serialize() != "[gcc]" {
		t.Fatal(b)
	}
	if r.GetBinding("depfile") != nil || r.GetBinding("other") != nil {
		t.Fatal("expected nil")
	}
	for _, k := range []string{"command", "depfile", "description"} {
		if !IsReservedBinding(k) {
			t.Fatal(k)
		}
	}
	if IsReservedBinding("pool") {
		t.Fatal("pool")
	}
	if got := r.String(); got != `Rule:cc{command:"gcc":raw,depfile:,description:}` {
		t.Fatal(got)
	}
}
