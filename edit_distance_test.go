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

import "testing"

func TestEditDistance(t *testing.T) {
	data := []struct {
		s1, s2            string
		allowReplacements bool
		max               int
		want              int
	}{
		{"", "ninja", true, 0, 5},
		{"ninja", "", true, 0, 5},
		{"", "", true, 0, 0},
		{"ninja", "njnja", true, 0, 1},
		{"njnja", "ninja", true, 0, 1},
		{"ninja", "njnja", false, 0, 2},
		{"njnja", "ninja", false, 0, 2},
		{"browser_tests", "browser_tests", true, 0, 0},
		{"browser_test", "browser_tests", true, 0, 1},
		{"browser_tests", "browser_test", true, 0, 1},
	}
	for i, l := range data {
		if got := editDistance(l.s1, l.s2, l.allowReplacements, l.max); got != l.want {
			t.Errorf("#%d: editDistance(%q, %q) = %d; want %d", i, l.s1, l.s2, got, l.want)
		}
	}
}

func TestEditDistance_MaxDistance(t *testing.T) {
	for max := 1; max < 7; max++ {
		if got := editDistance("abcdefghijklmnop", "ponmlkjihgfedcba", true, max); got != max+1 {
			t.Fatalf("max %d: got %d", max, got)
		}
	}
}
