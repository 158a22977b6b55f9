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

package tree

import (
	"math"

	"github.com/google/gridflow/core/records"
)

// Unlimited expands every level when used as Options.ExpansionDepth.
const Unlimited = math.MaxInt

// ExpansionStates is the sparse overlay of rows the user expanded or
// collapsed explicitly. Rows without an entry follow the expansion depth.
type ExpansionStates map[string]bool

func stateKey(rowKey any) string {
	return records.CanonicalString(rowKey)
}

// Expand records rowKey as expanded.
func (s ExpansionStates) Expand(rowKey any) { s[stateKey(rowKey)] = true }

// Collapse records rowKey as collapsed.
func (s ExpansionStates) Collapse(rowKey any) { s[stateKey(rowKey)] = false }

// Toggle flips the effective state of rowKey at level.
func (s ExpansionStates) Toggle(rowKey any, level, depth int) {
	s[stateKey(rowKey)] = !s.IsExpanded(rowKey, level, depth)
}

// IsExpanded returns the explicit state of rowKey, or whether level lies
// above depth when there is none.
func (s ExpansionStates) IsExpanded(rowKey any, level, depth int) bool {
	if expanded, ok := s[stateKey(rowKey)]; ok {
		return expanded
	}
	return level < depth
}

// Options wires the row fields a tree is built from.
type Options struct {
	PrimaryKey string
	// ChildDataKey names the field holding child rows (hierarchical data).
	ChildDataKey string
	// ForeignKey names the field holding the parent's primary key (flat data).
	ForeignKey     string
	ExpansionDepth int
	States         ExpansionStates
}

func (o Options) expanded(key any, level int) bool {
	if o.States == nil {
		return level < o.ExpansionDepth
	}
	return o.States.IsExpanded(key, level, o.ExpansionDepth)
}

// FromHierarchical builds tree records from rows that nest their children
// under opts.ChildDataKey.
func FromHierarchical(data []records.Row, opts Options) []*Record {
	return buildHierarchical(data, opts, nil, 0)
}

func buildHierarchical(rows []records.Row, opts Options, parent *Record, level int) []*Record {
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		rec := newRecord(row, opts, parent, level)
		if kids, ok := row.Children(opts.ChildDataKey); ok && len(kids) > 0 {
			rec.Children = buildHierarchical(kids, opts, rec, level+1)
		}
		out = append(out, rec)
	}
	return out
}

// FromFlat builds tree records from a flat list where every row points at its
// parent through opts.ForeignKey. Rows whose parent cannot be resolved become
// roots, as does the first row reached in a reference cycle.
func FromFlat(data []records.Row, opts Options) []*Record {
	childrenOf := make(map[string][]int)
	index := make(map[string]int, len(data))
	for i, row := range data {
		index[stateKey(records.KeyOf(row, opts.PrimaryKey))] = i
	}

	var roots []int
	for i, row := range data {
		fk, ok := row[opts.ForeignKey]
		if !ok || fk == nil {
			roots = append(roots, i)
			continue
		}
		pk := stateKey(fk)
		if p, found := index[pk]; !found || p == i {
			roots = append(roots, i)
			continue
		}
		childrenOf[pk] = append(childrenOf[pk], i)
	}

	visited := make([]bool, len(data))
	var build func(i int, parent *Record, level int) *Record
	build = func(i int, parent *Record, level int) *Record {
		visited[i] = true
		row := data[i]
		rec := newRecord(row, opts, parent, level)
		for _, c := range childrenOf[stateKey(rec.RowKey)] {
			if visited[c] {
				continue
			}
			rec.Children = append(rec.Children, build(c, rec, level+1))
		}
		return rec
	}

	out := make([]*Record, 0, len(roots))
	for _, i := range roots {
		out = append(out, build(i, nil, 0))
	}
	for i := range data {
		if !visited[i] {
			out = append(out, build(i, nil, 0))
		}
	}
	return out
}

func newRecord(row records.Row, opts Options, parent *Record, level int) *Record {
	key := records.KeyOf(row, opts.PrimaryKey)
	rec := &Record{
		RowKey: key,
		Data:   row,
		Level:  level,
		Parent: parent,
	}
	if parent != nil {
		rec.Path = append(append(make([]any, 0, len(parent.Path)+1), parent.Path...), parent.RowKey)
	} else {
		rec.Path = []any{}
	}
	rec.Expanded = opts.expanded(key, level)
	return rec
}
