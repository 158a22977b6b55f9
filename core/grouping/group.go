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

// Package grouping partitions sorted records into a tree of group headers and
// flattens that tree for display according to per-group expansion state.
package grouping

import (
	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/sorting"
)

// Terminology:
// * a group header (GroupByRecord) stands for one distinct value at one level
// * the records grouped by the last expression are the leaf records of a leaf group
// * a group's hierarchy path is the chain of (field, value) pairs from level 1 down to it

// GroupByRecord is the synthetic header row of one group.
type GroupByRecord struct {
	Expression sorting.Expression
	Value      any
	// Level is the 1-based position of Expression in the grouping expressions.
	Level int
	// Records holds every leaf record below the group, in display order.
	Records     []records.Record
	GroupParent *GroupByRecord
	// Groups holds the child groups; empty for leaf groups.
	Groups []*GroupByRecord
}

// Length returns the number of leaf records in the group.
func (g *GroupByRecord) Length() int {
	return len(g.Records)
}

// Get exposes the grouped value under the grouped field name so headers can
// travel through the same sequences as application records.
func (g *GroupByRecord) Get(field string) (any, bool) {
	if field == g.Expression.FieldName {
		return g.Value, true
	}
	return nil, false
}

// HierarchyKey returns the (field, value) pair of this level.
func (g *GroupByRecord) HierarchyKey() hierarchy.Key {
	return hierarchy.Key{FieldName: g.Expression.FieldName, Value: g.Value}
}

// HierarchyParent returns the enclosing group, or nil at level 1.
func (g *GroupByRecord) HierarchyParent() hierarchy.Node {
	if g.GroupParent == nil {
		return nil
	}
	return g.GroupParent
}

// Hierarchy returns the hierarchy path of the group.
func (g *GroupByRecord) Hierarchy() hierarchy.Path {
	return hierarchy.GetHierarchy(g)
}

// IsGroupByRecord reports whether rec is a group header.
func IsGroupByRecord(rec records.Record) bool {
	_, ok := rec.(*GroupByRecord)
	return ok
}

// Result is the output of GroupBy.
type Result struct {
	// Data is the fully expanded display sequence: every group header is
	// followed by its child groups or, at the last level, its records.
	Data []records.Record
	// Metadata lists the leaf-level groups in display order.
	Metadata []*GroupByRecord
}

// Records returns the leaf records of seq, dropping group headers.
func Records(seq []records.Record) []records.Record {
	out := make([]records.Record, 0, len(seq))
	for _, r := range seq {
		if !IsGroupByRecord(r) {
			out = append(out, r)
		}
	}
	return out
}

// Groups returns the group headers of seq.
func Groups(seq []records.Record) []*GroupByRecord {
	var out []*GroupByRecord
	for _, r := range seq {
		if g, ok := r.(*GroupByRecord); ok {
			out = append(out, g)
		}
	}
	return out
}
