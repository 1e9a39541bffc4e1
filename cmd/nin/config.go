// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// defaultConfigFile is loaded from the working directory when present.
const defaultConfigFile = ".nin.yaml"

// Config holds the settings that can be set in the configuration file.
// Command line flags take precedence.
type Config struct {
	File      string `yaml:"file"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MaxIncludeDepth int  `yaml:"max_include_depth"`
	RootHack        bool `yaml:"root_hack"`
	DupeEdgeError   bool `yaml:"dupe_edge_error"`

	// Jobs is the default parallelism of "nin run".
	Jobs int `yaml:"jobs"`
}

// loadConfig reads the configuration file at path. When path is empty,
// defaultConfigFile is used if it exists.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return newConfig(cfg)
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	defer f.Close()
	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	// An empty file is a valid configuration.
	if err := d.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return newConfig(cfg)
}

// newConfig fills in the defaults and validates cfg.
func newConfig(cfg Config) (*Config, error) {
	if cfg.File == "" {
		cfg.File = "build.ninja"
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "warn"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q, want one of debug|info|warn|error", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q, want one of text|json", cfg.LogFormat)
	}
	if cfg.MaxIncludeDepth < 0 {
		return nil, fmt.Errorf("max_include_depth must not be negative, got %d", cfg.MaxIncludeDepth)
	}
	if cfg.Jobs < 0 {
		return nil, fmt.Errorf("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = guessParallelism()
	}
	return &cfg, nil
}

func guessParallelism() int {
	switch processors := runtime.NumCPU(); processors {
	case 0, 1:
		return 2
	case 2:
		return 3
	default:
		return processors + 2
	}
}
