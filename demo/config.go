/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Taxinomia Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package demo wires a grid server over bundled and configured datasets.
package demo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AddrEnv overrides the listen address of the loaded configuration.
const AddrEnv = "GRIDFLOW_ADDR"

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "127.0.0.1:8097"

// ErrInvalidConfig is returned for a configuration that cannot be served.
var ErrInvalidConfig = errors.New("invalid configuration")

// GridConfig describes one served grid.
type GridConfig struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	// CSV is a file path, relative to the configuration file. Without it the
	// builtin dataset called Builtin (or Name) is served.
	CSV     string `yaml:"csv"`
	Builtin string `yaml:"builtin"`
	// Types forces column types by header ("string", "int", "float", "bool", "time").
	Types map[string]string `yaml:"types"`

	PrimaryKey     string   `yaml:"primary_key"`
	ChildDataKey   string   `yaml:"child_data_key"`
	ForeignKey     string   `yaml:"foreign_key"`
	Columns        []string `yaml:"columns"`
	PageSize       int      `yaml:"page_size"`
	GroupsExpanded *bool    `yaml:"groups_expanded"`
	// ExpansionDepth is the number of tree levels shown expanded; -1 expands all.
	ExpansionDepth int `yaml:"expansion_depth"`
}

// IsTree reports whether the grid is served through the tree pipeline.
func (g GridConfig) IsTree() bool {
	return g.ChildDataKey != "" || g.ForeignKey != ""
}

// Config is the demo configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	// LogLevel is the logr verbosity: 1 for request details, 4 for pipeline traces.
	LogLevel    int          `yaml:"log_level"`
	Development bool         `yaml:"development"`
	Grids       []GridConfig `yaml:"grids"`

	// dir resolves relative CSV paths.
	dir string
}

// DefaultConfig serves the bundled datasets.
func DefaultConfig() *Config {
	cfg := &Config{
		Title:    "Gridflow Demo",
		Subtitle: "Sorting, grouping, filtering, paging and pending transactions over in-memory grids",
		Grids: []GridConfig{
			{
				Name:        "orders",
				Title:       "Orders",
				Description: "Orders by region and category. Group by any column and collapse groups.",
				PrimaryKey:  "id",
				Columns:     []string{"id", "status", "region", "category", "product", "qty", "amount", "ordered"},
			},
			{
				Name:           "employees",
				Title:          "Employees",
				Description:    "A flat list of employees arranged into a tree by manager.",
				PrimaryKey:     "id",
				ForeignKey:     "manager_id",
				Columns:        []string{"name", "title", "age", "hired"},
				ExpansionDepth: 1,
			},
			{
				Name:           "company",
				Title:          "Company",
				Description:    "Hierarchical data: employees nest their reports.",
				PrimaryKey:     "ID",
				ChildDataKey:   "Employees",
				Columns:        []string{"Name", "Title", "Age"},
				ExpansionDepth: -1,
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file. An empty path returns
// DefaultConfig. The listen address can be overridden through AddrEnv.
func LoadConfig(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		cfg, err = ParseConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.dir = filepath.Dir(path)
	}
	if addr := os.Getenv(AddrEnv); addr != "" {
		cfg.Addr = addr
	}
	return cfg, nil
}

// ParseConfig parses and validates YAML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Title == "" {
		c.Title = "Gridflow"
	}
	for i := range c.Grids {
		g := &c.Grids[i]
		if g.Title == "" {
			g.Title = g.Name
		}
		if g.PageSize == 0 {
			g.PageSize = 25
		}
		if g.GroupsExpanded == nil {
			expanded := true
			g.GroupsExpanded = &expanded
		}
	}
}

// Validate checks that every grid can be served.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, g := range c.Grids {
		switch {
		case g.Name == "":
			return fmt.Errorf("%w: grid without name", ErrInvalidConfig)
		case seen[g.Name]:
			return fmt.Errorf("%w: duplicate grid %q", ErrInvalidConfig, g.Name)
		case g.ChildDataKey != "" && g.ForeignKey != "":
			return fmt.Errorf("%w: grid %q sets both child_data_key and foreign_key", ErrInvalidConfig, g.Name)
		case g.ForeignKey != "" && g.PrimaryKey == "":
			return fmt.Errorf("%w: grid %q needs a primary_key to resolve foreign_key", ErrInvalidConfig, g.Name)
		case g.PageSize < 0:
			return fmt.Errorf("%w: grid %q has negative page_size", ErrInvalidConfig, g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// CSVPath resolves the CSV file of g.
func (c *Config) CSVPath(g GridConfig) string {
	if g.CSV == "" || filepath.IsAbs(g.CSV) {
		return g.CSV
	}
	return filepath.Join(c.dir, g.CSV)
}
