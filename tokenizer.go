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
)

// TokenType is the kind of a Token.
type TokenType int32

const (
	NONE TokenType = iota
	UNKNOWN
	IDENT
	RULE
	BUILD
	SUBNINJA
	INCLUDE
	NEWLINE
	EQUALS
	COLON
	PIPE
	PIPE2
	INDENT
	OUTDENT
	TEOF
)

// Token is a lexed token, pointing into the tokenizer's input.
type Token struct {
	Type TokenType
	// Pos and End are byte offsets in the input.
	Pos int
	End int
	// Text is the identifier for IDENT and the offending character for
	// UNKNOWN.
	Text string
}

// String returns the form used in diagnostics.
func (t Token) String() string {
	switch t.Type {
	case IDENT:
		return "'" + t.Text + "'"
	case UNKNOWN:
		return "unknown '" + t.Text + "'"
	case RULE:
		return "'rule'"
	case BUILD:
		return "'build'"
	case SUBNINJA:
		return "'subninja'"
	case INCLUDE:
		return "'include'"
	case NEWLINE:
		return "newline"
	case EQUALS:
		return "'='"
	case COLON:
		return "':'"
	case PIPE:
		return "'|'"
	case PIPE2:
		return "'||'"
	case TEOF:
		return "eof"
	case INDENT:
		return "indenting in"
	case OUTDENT:
		return "indenting out"
	}
	return "none"
}

// ParseError is a syntax or semantic error with its source location.
type ParseError struct {
	Filename string
	// Line and Col are 1-based.
	Line int
	Col  int
	Msg  string
	// Err is set when the error wraps a failure from an included file.
	Err error
}

func (p *ParseError) Error() string {
	out := fmt.Sprintf("line %d, col %d: %s", p.Line, p.Col, p.Msg)
	if p.Err != nil {
		out += ": " + p.Err.Error()
	}
	return out
}

func (p *ParseError) Unwrap() error {
	return p.Err
}

// errTruncated is returned by ReadToNewline when maxLength was reached.
var errTruncated = errors.New("truncated")

// Tokenizer splits manifest text into tokens.
//
// Tokens are computed lazily: PeekToken computes the next one and caches it
// until ConsumeToken is called.
type Tokenizer struct {
	whitespaceSignificant bool
	filename              string
	input                 []byte
	cur                   int
	// Offset of the start of the current physical line.
	curLine int
	token   Token

	// Indentation of the last line that started with a token, and of the
	// current line or -1 when it wasn't measured yet.
	lastIndent int
	curIndent  int
}

// NewTokenizer returns a tokenizer. When whitespaceSignificant is true,
// changes of indentation yield INDENT and OUTDENT tokens.
func NewTokenizer(whitespaceSignificant bool) *Tokenizer {
	return &Tokenizer{whitespaceSignificant: whitespaceSignificant}
}

// Start resets the tokenizer to the beginning of input.
func (t *Tokenizer) Start(filename string, input []byte) {
	t.filename = filename
	t.input = input
	t.cur = 0
	t.curLine = 0
	t.token = Token{}
	t.lastIndent = 0
	t.curIndent = -1
}

// Token returns the current token.
func (t *Tokenizer) Token() Token {
	return t.token
}

// Error returns a ParseError located at the current token.
func (t *Tokenizer) Error(msg string) error {
	return t.ErrorAt(t.token.Pos, msg)
}

// ErrorAt returns a ParseError located at byte offset pos.
func (t *Tokenizer) ErrorAt(pos int, msg string) error {
	line, col := t.location(pos)
	return &ParseError{Filename: t.filename, Line: line, Col: col, Msg: msg}
}

// ErrorExpected returns an "expected X, got Y" error.
func (t *Tokenizer) ErrorExpected(expected string) error {
	return t.Error("expected " + expected + ", got " + t.token.String())
}

// wrapErrorAt returns a ParseError located at byte offset pos that wraps
// err.
func (t *Tokenizer) wrapErrorAt(pos int, err error, msg string) error {
	line, col := t.location(pos)
	return &ParseError{Filename: t.filename, Line: line, Col: col, Msg: msg, Err: err}
}

// location returns the 1-based line and column of offset pos.
func (t *Tokenizer) location(pos int) (int, int) {
	if pos > len(t.input) {
		pos = len(t.input)
	}
	line := 1
	lineStart := 0
	for i := 0; i < pos; i++ {
		if t.input[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, pos - lineStart + 1
}

// atLineStart returns true if only spaces separate the current offset from
// the start of the line.
func (t *Tokenizer) atLineStart() bool {
	for i := t.curLine; i < t.cur; i++ {
		if t.input[i] != ' ' {
			return false
		}
	}
	return true
}

// SkipWhitespace skips spaces, line continuations and comments. Newlines are
// skipped too when newline is true, including a pending NEWLINE token.
func (t *Tokenizer) SkipWhitespace(newline bool) {
	if newline {
		switch t.token.Type {
		case NONE:
		case NEWLINE:
			t.ConsumeToken()
		default:
			// A token is pending, the input past it must not be skipped.
			return
		}
	}
	for t.cur < len(t.input) {
		c := t.input[t.cur]
		if c == ' ' {
			t.cur++
		} else if newline && c == '\n' {
			t.cur++
			t.curLine = t.cur
			t.curIndent = -1
		} else if c == '\\' && t.cur+1 < len(t.input) && t.input[t.cur+1] == '\n' {
			t.cur += 2
			t.curLine = t.cur
		} else if c == '#' && t.atLineStart() {
			for t.cur < len(t.input) && t.input[t.cur] != '\n' {
				t.cur++
			}
			if t.cur < len(t.input) {
				t.cur++
				t.curLine = t.cur
				t.curIndent = -1
			}
		} else {
			break
		}
	}
}

func isIdentChar(c byte) bool {
	return ('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9') ||
		c == '+' || c == '-' || c == '.' || c == '/' || c == '_' || c == '$'
}

// PeekToken returns the type of the next token without consuming it.
func (t *Tokenizer) PeekToken() TokenType {
	if t.token.Type != NONE {
		return t.token.Type
	}
	if t.whitespaceSignificant && t.curIndent == -1 {
		// Blank lines carry no indentation.
		for t.cur < len(t.input) && t.input[t.cur] == '\n' {
			t.cur++
			t.curLine = t.cur
			t.SkipWhitespace(false)
		}
	}
	t.token = Token{Pos: t.cur, End: t.cur}
	if t.whitespaceSignificant && t.curIndent == -1 {
		t.curIndent = t.cur - t.curLine
		if t.cur >= len(t.input) {
			// End of input closes all blocks.
			t.curIndent = 0
		}
		if t.curIndent != t.lastIndent {
			if t.curIndent > t.lastIndent {
				t.token.Type = INDENT
			} else {
				t.token.Type = OUTDENT
			}
			t.lastIndent = t.curIndent
			return t.token.Type
		}
	}

	if t.cur >= len(t.input) {
		t.token.Type = TEOF
		return t.token.Type
	}

	switch c := t.input[t.cur]; {
	case isIdentChar(c):
		for t.cur < len(t.input) && isIdentChar(t.input[t.cur]) {
			t.cur++
		}
		t.token.End = t.cur
		t.token.Text = string(t.input[t.token.Pos:t.token.End])
		switch t.token.Text {
		case "rule":
			t.token.Type = RULE
		case "build":
			t.token.Type = BUILD
		case "include":
			t.token.Type = INCLUDE
		case "subninja":
			t.token.Type = SUBNINJA
		default:
			t.token.Type = IDENT
		}
	case c == ':':
		t.token.Type = COLON
		t.cur++
	case c == '=':
		t.token.Type = EQUALS
		t.cur++
	case c == '|':
		if t.cur+1 < len(t.input) && t.input[t.cur+1] == '|' {
			t.token.Type = PIPE2
			t.cur += 2
		} else {
			t.token.Type = PIPE
			t.cur++
		}
	case c == '\n':
		t.token.Type = NEWLINE
		t.cur++
		t.curLine = t.cur
		t.curIndent = -1
	}

	if t.token.Type == NONE {
		// The offending character is not consumed.
		t.token.Type = UNKNOWN
		t.token.End = t.cur + 1
		t.token.Text = string(t.input[t.cur : t.cur+1])
		return t.token.Type
	}
	t.token.End = t.cur
	t.SkipWhitespace(false)
	return t.token.Type
}

// ConsumeToken drops the cached token so the next PeekToken reads a new one.
func (t *Tokenizer) ConsumeToken() {
	t.token.Type = NONE
}

// ExpectToken consumes the next token if it is of type expected.
func (t *Tokenizer) ExpectToken(expected TokenType) error {
	if t.PeekToken() != expected {
		return t.ErrorExpected(Token{Type: expected}.String())
	}
	t.ConsumeToken()
	return nil
}

// Newline consumes a NEWLINE token.
func (t *Tokenizer) Newline() error {
	return t.ExpectToken(NEWLINE)
}

// ReadIdent consumes an IDENT token and returns its text.
func (t *Tokenizer) ReadIdent() (string, bool) {
	if t.PeekToken() != IDENT {
		return "", false
	}
	out := t.token.Text
	t.ConsumeToken()
	return out, true
}

// ReadToNewline reads the raw text up to the end of the line and consumes
// the NEWLINE.
//
// A backslash followed by a newline joins the lines with a single space; any
// other backslash sequence is kept verbatim. When maxLength is not negative,
// reading stops once maxLength bytes were accumulated, the current token
// position is moved to the next unread byte and errTruncated is returned.
func (t *Tokenizer) ReadToNewline(maxLength int) (string, error) {
	var text []byte
	for t.cur < len(t.input) && t.input[t.cur] != '\n' {
		if maxLength >= 0 && len(text) >= maxLength {
			t.token.Pos = t.cur
			return string(text), errTruncated
		}
		if c := t.input[t.cur]; c != '\\' {
			text = append(text, c)
			t.cur++
			continue
		}
		t.cur++
		if t.cur >= len(t.input) {
			t.token.Pos = t.cur - 1
			return string(text), t.Error("unexpected eof")
		}
		if t.input[t.cur] != '\n' {
			text = append(text, '\\', t.input[t.cur])
			t.cur++
			continue
		}
		t.cur++
		t.curLine = t.cur
		t.SkipWhitespace(false)
		// Collapse whitespace but keep at least one space.
		if len(text) != 0 && text[len(text)-1] != ' ' {
			text = append(text, ' ')
		}
	}
	return string(text), t.Newline()
}
