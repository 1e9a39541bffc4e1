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
	"strconv"
	"strings"
)

// Version is the version number of the current nin release.
const Version = "1.0.0.git"

// ParseVersion parses the major/minor components of a version string.
func ParseVersion(version string) (int, int) {
	end := strings.Index(version, ".")
	if end == -1 {
		end = len(version)
	}
	major, _ := strconv.Atoi(keepNumbers(version[:end]))
	minor := 0
	if end != len(version) {
		start := end + 1
		end = strings.Index(version[start:], ".")
		if end == -1 {
			end = len(version)
		} else {
			end += start
		}
		minor, _ = strconv.Atoi(keepNumbers(version[start:end]))
	}
	return major, minor
}

func keepNumbers(s string) string {
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i != -1 {
		return s[:i]
	}
	return s
}

// checkVersion checks whether a manifest's ninja_required_version is
// compatible with Version, returns an error if not.
func checkVersion(logger *slog.Logger, version string) error {
	binMajor, binMinor := ParseVersion(Version)
	fileMajor, fileMinor := ParseVersion(version)
	if binMajor > fileMajor {
		logger.Warn("executable version greater than build file ninja_required_version; versions may be incompatible", "version", Version, "required", version)
	} else if (binMajor == fileMajor && binMinor < fileMinor) || binMajor < fileMajor {
		return fmt.Errorf("nin version (%s) incompatible with build file ninja_required_version version (%s)", Version, version)
	}
	return nil
}
