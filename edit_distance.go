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

// editDistance returns the Levenshtein distance between s1 and s2.
//
// When allowReplacements is false, a substitution counts as a deletion plus
// an insertion. When maxEditDistance is not 0, the computation stops early and
// returns maxEditDistance+1 as soon as the distance is known to exceed it.
func editDistance(s1, s2 string, allowReplacements bool, maxEditDistance int) int {
	// Single row of the classic dynamic programming matrix. prev is the
	// top-left entry.
	row := make([]int, len(s2)+1)
	for x := range row {
		row[x] = x
	}
	replaceCost := 2
	if allowReplacements {
		replaceCost = 1
	}
	for y := 1; y <= len(s1); y++ {
		prev := row[0]
		row[0] = y
		best := y
		for x := 1; x <= len(s2); x++ {
			top := row[x]
			d := min(top, row[x-1]) + 1
			if s1[y-1] == s2[x-1] {
				d = min(d, prev)
			} else {
				d = min(d, prev+replaceCost)
			}
			row[x] = d
			prev = top
			best = min(best, d)
		}
		if maxEditDistance != 0 && best > maxEditDistance {
			return maxEditDistance + 1
		}
	}
	return row[len(s2)]
}
