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

// Package tree models hierarchical grid data: every Record owns its children
// and keeps a non-owning back reference to its parent for ancestry lookups.
package tree

import (
	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/records"
)

// Record is one node of a tree grid.
type Record struct {
	RowKey              any
	Data                records.Row
	Children            []*Record
	Level               int
	Expanded            bool
	IsFilteredOutParent bool
	// Path holds the row keys of the ancestors, root first, excluding RowKey.
	Path   []any
	Parent *Record
}

// Get reads a field of the underlying data row.
func (r *Record) Get(field string) (any, bool) {
	return r.Data.Get(field)
}

// HierarchyKey identifies the node by its row key.
func (r *Record) HierarchyKey() hierarchy.Key {
	return hierarchy.Key{Value: r.RowKey}
}

// HierarchyParent returns the parent node, or nil at the root.
func (r *Record) HierarchyParent() hierarchy.Node {
	if r.Parent == nil {
		return nil
	}
	return r.Parent
}

// Clone copies the scalar fields and the path. Children and Data are shared,
// Parent is left for the caller to set.
func (r *Record) Clone() *Record {
	path := make([]any, len(r.Path))
	copy(path, r.Path)
	return &Record{
		RowKey:              r.RowKey,
		Data:                r.Data,
		Children:            r.Children,
		Level:               r.Level,
		Expanded:            r.Expanded,
		IsFilteredOutParent: r.IsFilteredOutParent,
		Path:                path,
	}
}

// HasChildren reports whether the node has at least one child.
func (r *Record) HasChildren() bool {
	return len(r.Children) > 0
}

// Flatten returns the rows a viewport shows: every root, and below it the
// children of expanded nodes, depth first.
func Flatten(roots []*Record) []*Record {
	var out []*Record
	var walk func(nodes []*Record)
	walk = func(nodes []*Record) {
		for _, n := range nodes {
			out = append(out, n)
			if n.Expanded && len(n.Children) > 0 {
				walk(n.Children)
			}
		}
	}
	walk(roots)
	return out
}

// FlattenAll returns every node depth first, ignoring expansion.
func FlattenAll(roots []*Record) []*Record {
	var out []*Record
	var walk func(nodes []*Record)
	walk = func(nodes []*Record) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

// Find returns the first node, depth first, whose row key equals key.
func Find(roots []*Record, key any) *Record {
	for _, n := range roots {
		if records.KeyEqual(n.RowKey, key) {
			return n
		}
		if found := Find(n.Children, key); found != nil {
			return found
		}
	}
	return nil
}
