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
	"runtime"
	"strings"
)

// Log a fatal message and exit.
func Fatal(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, "nin: fatal: ")
	fmt.Fprintf(os.Stderr, msg, s...)
	fmt.Fprintf(os.Stderr, "\n")
	os.Stderr.Sync()
	os.Stdout.Sync()
	os.Exit(1)
}

// fatalf is called on unrecoverable process engine failures. Tests replace
// it.
var fatalf = Fatal

// Log a warning message.
func Warning(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, "nin: warning: ")
	fmt.Fprintf(os.Stderr, msg, s...)
	fmt.Fprintf(os.Stderr, "\n")
}

// Log an error message.
func Error(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, "nin: error: ")
	fmt.Fprintf(os.Stderr, msg, s...)
	fmt.Fprintf(os.Stderr, "\n")
}

// Log an informational message.
func Info(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stdout, "nin: ")
	fmt.Fprintf(os.Stdout, msg, s...)
	fmt.Fprintf(os.Stdout, "\n")
}

const maxPathComponents = 60

func isPathSeparator(c byte) bool {
	return c == '/' || (runtime.GOOS == "windows" && c == '\\')
}

// CanonicalizePath canonicalizes a path like "foo/../bar.h" into just
// "bar.h".
//
// "." components and duplicate separators are removed and ".." components
// are resolved lexically when possible. On Windows, backslashes are
// converted to forward slashes.
func CanonicalizePath(path string) (string, error) {
	defer metricRecord("canonicalize path")()
	if path == "" {
		return "", errors.New("empty path")
	}
	buf := []byte(path)
	var components [maxPathComponents]int
	componentCount := 0

	end := len(buf)
	src := 0
	dst := 0
	if isPathSeparator(buf[0]) {
		// Network path starts with //.
		if end > 1 && isPathSeparator(buf[1]) {
			src = 2
		} else {
			src = 1
		}
		dst = src
	}
	root := dst

	for src < end {
		if buf[src] == '.' {
			if src+1 == end || isPathSeparator(buf[src+1]) {
				// '.' component; eliminate.
				src += 2
				continue
			}
			if buf[src+1] == '.' && (src+2 == end || isPathSeparator(buf[src+2])) {
				// '..' component. Back up if possible.
				if componentCount > 0 {
					dst = components[componentCount-1]
					src += 3
					componentCount--
				} else {
					for i := 0; i < 3 && src < end; i++ {
						buf[dst] = buf[src]
						dst++
						src++
					}
				}
				continue
			}
		}

		if isPathSeparator(buf[src]) {
			src++
			continue
		}

		if componentCount == maxPathComponents {
			return "", fmt.Errorf("path has too many components : %s", path)
		}
		components[componentCount] = dst
		componentCount++

		for src < end && !isPathSeparator(buf[src]) {
			buf[dst] = buf[src]
			dst++
			src++
		}
		if src < end {
			// Copy the separator too.
			buf[dst] = buf[src]
			dst++
			src++
		}
	}

	if dst > root && isPathSeparator(buf[dst-1]) {
		dst--
	}
	if dst == 0 {
		return ".", nil
	}
	out := string(buf[:dst])
	if runtime.GOOS == "windows" {
		out = strings.ReplaceAll(out, "\\", "/")
	}
	return out, nil
}

func isKnownShellSafeCharacter(ch byte) bool {
	if 'A' <= ch && ch <= 'Z' {
		return true
	}
	if 'a' <= ch && ch <= 'z' {
		return true
	}
	if '0' <= ch && ch <= '9' {
		return true
	}
	switch ch {
	case '_', '+', '-', '.', '/':
		return true
	default:
		return false
	}
}

func isKnownWin32SafeCharacter(ch byte) bool {
	return ch != ' ' && ch != '"'
}

func stringNeedsShellEscaping(input string) bool {
	for i := 0; i < len(input); i++ {
		if !isKnownShellSafeCharacter(input[i]) {
			return true
		}
	}
	return false
}

func stringNeedsWin32Escaping(input string) bool {
	for i := 0; i < len(input); i++ {
		if !isKnownWin32SafeCharacter(input[i]) {
			return true
		}
	}
	return false
}

// GetShellEscapedString escapes input according to the whims of Bash.
//
// It returns input unmodified if it contains no problematic characters.
func GetShellEscapedString(input string) string {
	if !stringNeedsShellEscaping(input) {
		return input
	}
	const quote = '\''
	return string(quote) + strings.ReplaceAll(input, "'", "'\\''") + string(quote)
}

// GetWin32EscapedString escapes input according to the whims of Win32's
// CommandLineToArgvW().
//
// It returns input unmodified if it contains no problematic characters.
func GetWin32EscapedString(input string) string {
	if !stringNeedsWin32Escaping(input) {
		return input
	}
	var b strings.Builder
	b.WriteByte('"')
	consecutiveBackslashCount := 0
	for i := 0; i < len(input); i++ {
		switch c := input[i]; c {
		case '\\':
			consecutiveBackslashCount++
		case '"':
			b.WriteString(strings.Repeat("\\", consecutiveBackslashCount+1))
			consecutiveBackslashCount = 0
		default:
			consecutiveBackslashCount = 0
		}
		b.WriteByte(input[i])
	}
	b.WriteString(strings.Repeat("\\", consecutiveBackslashCount))
	b.WriteByte('"')
	return b.String()
}

// SpellcheckString returns the word closest to text, or "" if none is close
// enough.
func SpellcheckString(text string, words ...string) string {
	const maxValidEditDistance = 3
	minDistance := maxValidEditDistance + 1
	result := ""
	for _, w := range words {
		if distance := editDistance(w, text, true, maxValidEditDistance); distance < minDistance {
			minDistance = distance
			result = w
		}
	}
	return result
}

func isLatinAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// StripAnsiEscapeCodes removes all ANSI CSI escape codes from in.
func StripAnsiEscapeCodes(in string) string {
	if strings.IndexByte(in, '\x1B') == -1 {
		return in
	}
	var stripped strings.Builder
	stripped.Grow(len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '\x1B' {
			// Not an escape code.
			stripped.WriteByte(in[i])
			continue
		}

		// Only strip CSIs for now.
		if i+1 >= len(in) {
			break
		}
		if in[i+1] != '[' {
			// Not a CSI.
			continue
		}
		i += 2

		// Skip everything up to and including the next [a-zA-Z].
		for i < len(in) && !isLatinAlpha(in[i]) {
			i++
		}
	}
	return stripped.String()
}

// ElideMiddle elides the middle of str with "..." so it fits in width
// bytes.
func ElideMiddle(str string, width int) string {
	switch width {
	case 0:
		return ""
	case 1:
		return "."
	case 2:
		return ".."
	case 3:
		return "..."
	}
	const margin = 3 // Space for "...".
	if len(str) <= width {
		return str
	}
	elideSize := (width - margin) / 2
	return str[:elideSize] + "..." + str[len(str)-elideSize:]
}
