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

// Package sorting orders records by an ordered list of sort expressions.
package sorting

import (
	"slices"

	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/tree"
)

// Direction of a sort expression.
type Direction int

const (
	// None leaves the expression out of the comparison.
	None Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	}
	return "none"
}

// Comparer compares two field values and returns a negative, zero or positive
// result. The direction of the expression is applied to its result.
type Comparer func(a, b any) int

// Expression sorts by one field. Expressions are applied in order: the first
// is the primary key, ties fall through to the next.
type Expression struct {
	FieldName  string
	Dir        Direction
	IgnoreCase bool
	// Comparer replaces the default value ordering when set.
	Comparer Comparer
}

// compare compares the field of a and b under this expression, direction
// included.
func (e Expression) compare(a, b records.Record) int {
	return e.compareValues(records.FieldValue(a, e.FieldName), records.FieldValue(b, e.FieldName), e.IgnoreCase)
}

func (e Expression) compareValues(va, vb any, ignoreCase bool) int {
	var cmp int
	if e.Comparer != nil {
		cmp = e.Comparer(va, vb)
	} else {
		cmp = records.Compare(va, vb, ignoreCase)
	}
	if e.Dir == Descending {
		return -cmp
	}
	return cmp
}

// Compare applies exprs to a and b in order and returns the first non-zero
// result.
func Compare(a, b records.Record, exprs []Expression) int {
	for _, e := range exprs {
		if e.Dir == None {
			continue
		}
		if cmp := e.compare(a, b); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// Sort returns a new slice holding data ordered by exprs. The sort is stable:
// records that compare equal keep their original relative order, and an empty
// expression list returns the records in input order. data is not modified.
func Sort[T records.Record](data []T, exprs []Expression) []T {
	out := slices.Clone(data)
	if out == nil {
		out = []T{}
	}
	exprs = active(exprs)
	if len(exprs) == 0 {
		return out
	}

	// Field values are read, and folded for IgnoreCase, once per record.
	keys := sortKeys(out, exprs)
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		for k, e := range exprs {
			if cmp := e.compareValues(keys[i][k], keys[j][k], false); cmp != 0 {
				return cmp
			}
		}
		return 0
	})

	res := make([]T, len(out))
	for i, idx := range order {
		res[i] = out[idx]
	}
	return res
}

// sortKeys returns the field values of every record under exprs. Values of
// IgnoreCase expressions are folded, except where a Comparer takes the raw
// value.
func sortKeys[T records.Record](data []T, exprs []Expression) [][]any {
	var fold *records.Folder
	keys := make([][]any, len(data))
	for i, rec := range data {
		row := make([]any, len(exprs))
		for k, e := range exprs {
			v := records.FieldValue(rec, e.FieldName)
			if e.IgnoreCase && e.Comparer == nil {
				if fold == nil {
					fold = records.NewFolder()
				}
				v = fold.Value(v)
			}
			row[k] = v
		}
		keys[i] = row
	}
	return keys
}

func active(exprs []Expression) []Expression {
	var out []Expression
	for _, e := range exprs {
		if e.Dir != None {
			out = append(out, e)
		}
	}
	return out
}

// SortTree clones every node, sorts each node's children before the node's
// own level and returns the sorted roots. Cloned nodes point at their cloned
// parents; the input tree is left as it was. Recursion depth equals the depth
// of the tree.
func SortTree(nodes []*tree.Record, exprs []Expression, parent *tree.Record) []*tree.Record {
	res := make([]*tree.Record, 0, len(nodes))
	for _, n := range nodes {
		rec := n.Clone()
		rec.Parent = parent
		if rec.Children != nil {
			rec.Children = SortTree(rec.Children, exprs, rec)
		}
		res = append(res, rec)
	}
	return Sort(res, exprs)
}

// Prepend returns the grouping expressions followed by the sorting
// expressions on fields that are not already grouped. Grouping requires its
// input to be sorted by the grouped fields first.
func Prepend(grouping, sorting []Expression) []Expression {
	out := make([]Expression, 0, len(grouping)+len(sorting))
	out = append(out, grouping...)
	for _, s := range sorting {
		if slices.ContainsFunc(grouping, func(g Expression) bool { return g.FieldName == s.FieldName }) {
			continue
		}
		out = append(out, s)
	}
	return out
}
