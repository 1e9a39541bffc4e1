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
	"os"
	"path/filepath"
)

// FileReader is the interface for reading files from disk. It is the only
// access the manifest parser has to the file system.
type FileReader interface {
	// ReadFile reads a file and returns its content.
	ReadFile(path string) ([]byte, error)
}

// RealDiskInterface implements FileReader by reading the actual disk.
type RealDiskInterface struct {
	// Dir, when not empty, is the directory relative paths are resolved
	// against. It defaults to the current working directory.
	Dir string
}

func (r *RealDiskInterface) ReadFile(path string) ([]byte, error) {
	if r.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, path)
	}
	return os.ReadFile(path)
}
