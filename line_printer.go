// Copyright 2013 Google Inc. All Rights Reserved.
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
	"os"
)

// LinePrinter prints lines of text, possibly overprinting previously printed
// lines if the terminal supports it.
type LinePrinter struct {
	w io.Writer

	// Whether we can do fancy terminal control codes.
	smartTerminal bool

	// Whether we can use ISO 6429 (ANSI) color sequences.
	supportsColor bool

	// Terminal width used to elide status lines. 0 means unknown.
	width int

	// Whether the caret is at the beginning of a blank line.
	haveBlankLine bool
}

// NewLinePrinter returns a LinePrinter writing to w.
//
// smart enables overprinting of elided lines; width is the terminal width, 0
// if unknown.
func NewLinePrinter(w io.Writer, smart bool, width int) *LinePrinter {
	l := &LinePrinter{
		w:             w,
		smartTerminal: smart,
		width:         width,
		haveBlankLine: true,
	}
	l.supportsColor = l.smartTerminal
	if !l.supportsColor {
		f := os.Getenv("CLICOLOR_FORCE")
		l.supportsColor = f != "" && f != "0"
	}
	return l
}

// IsSmartTerminal returns true if w is a terminal.
func IsSmartTerminal(w io.Writer) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// SupportsColor returns true if ANSI color sequences can be passed through.
func (l *LinePrinter) SupportsColor() bool {
	return l.supportsColor
}

// Print overprints the current line. If elide is true, elides toPrint to fit
// on one line.
func (l *LinePrinter) Print(toPrint string, elide bool) {
	if l.smartTerminal && elide {
		// Print over previous line, if any.
		if l.width > 0 {
			toPrint = ElideMiddle(toPrint, l.width)
		}
		_, _ = io.WriteString(l.w, "\r"+toPrint+"\x1B[K")
		l.haveBlankLine = false
		return
	}
	if l.smartTerminal {
		_, _ = io.WriteString(l.w, "\r")
	}
	_, _ = io.WriteString(l.w, toPrint+"\n")
	l.haveBlankLine = true
}

// PrintOnNewLine prints a string on a new line, not overprinting previous
// output.
func (l *LinePrinter) PrintOnNewLine(toPrint string) {
	if !l.haveBlankLine {
		_, _ = io.WriteString(l.w, "\n")
	}
	if len(toPrint) != 0 {
		_, _ = io.WriteString(l.w, toPrint)
	}
	l.haveBlankLine = len(toPrint) == 0 || toPrint[len(toPrint)-1] == '\n'
}
