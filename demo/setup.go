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

package demo

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/google/gridflow/core/csvimport"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/server"
	"github.com/google/gridflow/core/transactions"
	"github.com/google/gridflow/core/tree"
)

// SetupDemoServer creates a server with one grid per configured entry.
func SetupDemoServer(cfg *Config, log logr.Logger) (*server.Server, error) {
	s, err := server.NewServer(server.WithLogger(log), server.WithTitle(cfg.Title, cfg.Subtitle))
	if err != nil {
		return nil, err
	}
	for _, gc := range cfg.Grids {
		g, err := buildGrid(cfg, gc)
		if err != nil {
			return nil, fmt.Errorf("grid %q: %w", gc.Name, err)
		}
		if err := s.AddGrid(g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func buildGrid(cfg *Config, gc GridConfig) (*server.Grid, error) {
	rows, err := loadRows(cfg, gc)
	if err != nil {
		return nil, err
	}
	g := server.NewGrid(gc.Name, rows, transactions.Config{PrimaryKey: gc.PrimaryKey, ChildDataKey: gc.ChildDataKey})
	g.Title = gc.Title
	g.Description = gc.Description
	g.DefaultColumns = gc.Columns
	g.PageSize = gc.PageSize
	g.GroupsExpanded = gc.GroupsExpanded == nil || *gc.GroupsExpanded
	if gc.IsTree() {
		depth := gc.ExpansionDepth
		if depth < 0 {
			depth = tree.Unlimited
		}
		g.Tree = true
		g.TreeOptions = tree.Options{ForeignKey: gc.ForeignKey, ExpansionDepth: depth}
	}
	return g, nil
}

func loadRows(cfg *Config, gc GridConfig) ([]records.Row, error) {
	if gc.CSV == "" {
		name := gc.Builtin
		if name == "" {
			name = gc.Name
		}
		return Builtin(name)
	}
	opts := csvimport.DefaultOptions()
	for header, name := range gc.Types {
		t, err := csvimport.ParseColumnType(name)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", header, err)
		}
		opts.ColumnSources[header] = csvimport.ColumnSource{Type: t}
	}
	return csvimport.ImportFromFile(cfg.CSVPath(gc), opts)
}
