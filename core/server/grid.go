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

package server

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/gridflow/core/pipeline"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/transactions"
	"github.com/google/gridflow/core/tree"
)

var (
	// ErrGridNotFound is returned for an unknown grid name.
	ErrGridNotFound = errors.New("grid not found")
	// ErrDuplicateGrid is returned when registering a grid name twice.
	ErrDuplicateGrid = errors.New("grid already registered")
	// ErrRecordNotFound is returned when a transaction targets a row the grid does not hold.
	ErrRecordNotFound = errors.New("record not found")
)

// Grid is one served dataset with its pending changes. It is safe for
// concurrent use.
type Grid struct {
	Name        string
	Title       string
	Description string
	// DefaultColumns are shown when the URL selects none. All fields are shown when empty.
	DefaultColumns []string
	PageSize       int
	GroupsExpanded bool
	// Tree selects the tree pipeline. Rows nest under Config.ChildDataKey or
	// point at their parent through TreeOptions.ForeignKey.
	Tree        bool
	TreeOptions tree.Options

	mu     sync.RWMutex
	source pipeline.Source
}

// NewGrid returns a grid over data.
func NewGrid(name string, data []records.Row, cfg transactions.Config) *Grid {
	return &Grid{
		Name:   name,
		Title:  name,
		source: pipeline.Source{Data: data, Log: transactions.NewLog(), Config: cfg},
	}
}

// Config returns how the grid's rows are keyed and nested.
func (g *Grid) Config() transactions.Config {
	return g.source.Config
}

// Records returns the effective flat records.
func (g *Grid) Records() []records.Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.source.Records()
}

// Roots returns the effective rows built into a tree with expansion.
func (g *Grid) Roots(states tree.ExpansionStates) []*tree.Record {
	opts := g.TreeOptions
	opts.States = states
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.source.Tree(opts)
}

// Len returns the number of committed top-level rows.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.source.Data)
}

// Pending returns the number of records with pending changes.
func (g *Grid) Pending() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.source.Log.Len()
}

// Apply validates tx and adds it to the pending changes. Updates and deletes
// must target a committed row or a pending add.
func (g *Grid) Apply(tx transactions.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ref records.Row
	if tx.Type != transactions.Add {
		if _, pending := g.source.Log.State(tx.ID); !pending {
			ref = g.find(g.source.Data, tx.ID)
			if ref == nil {
				return fmt.Errorf("%w: %v", ErrRecordNotFound, tx.ID)
			}
		}
	}
	return g.source.Log.Add(tx, ref)
}

// Transactions returns the pending transactions in the order applied.
func (g *Grid) Transactions() []transactions.Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.source.Log.Transactions()
}

// Clear drops every pending change.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.source.Log.Clear()
}

// Commit makes the pending changes part of the committed data.
func (g *Grid) Commit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.source.Data = g.source.Effective()
	g.source.Log.Clear()
}

func (g *Grid) find(rows []records.Row, id any) records.Row {
	cfg := g.source.Config
	for _, r := range rows {
		if records.KeyEqual(records.KeyOf(r, cfg.PrimaryKey), id) {
			return r
		}
		if cfg.ChildDataKey == "" {
			continue
		}
		if kids, ok := r.Children(cfg.ChildDataKey); ok {
			if found := g.find(kids, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// Fields returns every field name found in the effective rows, sorted, with
// the primary key first. The child collection field is left out.
func (g *Grid) Fields() []string {
	cfg := g.source.Config
	seen := make(map[string]bool)
	var walk func(rows []records.Row)
	walk = func(rows []records.Row) {
		for _, r := range rows {
			for k := range r {
				if k == cfg.ChildDataKey {
					continue
				}
				seen[k] = true
			}
			if cfg.ChildDataKey != "" {
				if kids, ok := r.Children(cfg.ChildDataKey); ok {
					walk(kids)
				}
			}
		}
	}
	g.mu.RLock()
	walk(g.source.Effective())
	g.mu.RUnlock()

	fields := make([]string, 0, len(seen))
	for k := range seen {
		if k != cfg.PrimaryKey {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	if seen[cfg.PrimaryKey] {
		fields = slices.Insert(fields, 0, cfg.PrimaryKey)
	}
	return fields
}
