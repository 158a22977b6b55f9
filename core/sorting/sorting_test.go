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

package sorting

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/tree"
)

func ids(rows []records.Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r["id"]
	}
	return out
}

func TestSortMultiKey(t *testing.T) {
	data := []records.Row{
		{"id": 1, "age": 30},
		{"id": 2, "age": 20},
		{"id": 3, "age": 30},
	}
	got := Sort(data, []Expression{
		{FieldName: "age", Dir: Ascending},
		{FieldName: "id", Dir: Descending},
	})
	assert.Equal(t, []any{2, 3, 1}, ids(got))
	assert.Equal(t, []any{1, 2, 3}, ids(data), "input is not modified")
}

func TestSortWithoutExpressionsKeepsOrder(t *testing.T) {
	data := []records.Row{{"id": 3}, {"id": 1}, {"id": 2}}
	assert.Equal(t, []any{3, 1, 2}, ids(Sort(data, nil)))
	assert.Equal(t, []any{3, 1, 2}, ids(Sort(data, []Expression{{FieldName: "id", Dir: None}})))
	assert.NotNil(t, Sort([]records.Row(nil), nil))
}

func TestSortIsStable(t *testing.T) {
	data := []records.Row{
		{"id": 1, "team": "b"},
		{"id": 2, "team": "a"},
		{"id": 3, "team": "b"},
		{"id": 4, "team": "a"},
		{"id": 5, "team": "b"},
	}
	exprs := []Expression{{FieldName: "team", Dir: Ascending}}
	once := Sort(data, exprs)
	assert.Equal(t, []any{2, 4, 1, 3, 5}, ids(once))
	assert.Equal(t, ids(once), ids(Sort(once, exprs)), "sorting is idempotent")

	desc := Sort(data, []Expression{{FieldName: "team", Dir: Descending}})
	assert.Equal(t, []any{1, 3, 5, 2, 4}, ids(desc), "ties keep input order in both directions")
}

func TestSortNullsFirstAndCase(t *testing.T) {
	data := []records.Row{
		{"id": 1, "name": "bob"},
		{"id": 2, "name": "Alice"},
		{"id": 3},
		{"id": 4, "name": nil},
		{"id": 5, "name": "carl"},
	}
	sensitive := Sort(data, []Expression{{FieldName: "name", Dir: Ascending}})
	assert.Equal(t, []any{3, 4, 2, 1, 5}, ids(sensitive))

	data = append(data, records.Row{"id": 6, "name": "Bob"})
	insensitive := Sort(data, []Expression{{FieldName: "name", Dir: Ascending, IgnoreCase: true}})
	assert.Equal(t, []any{3, 4, 2, 1, 6, 5}, ids(insensitive))

	for i := 1; i < len(insensitive); i++ {
		a := records.FieldValue(insensitive[i-1], "name")
		b := records.FieldValue(insensitive[i], "name")
		assert.LessOrEqual(t, records.Compare(a, b, true), 0)
	}
}

func TestSortIgnoreCaseMatchesCompare(t *testing.T) {
	names := []any{"Straße", "STRASSE", "apple", "Äpfel", "Zed", nil, 3, "zed", "Apple", "äpfel"}
	data := make([]records.Row, len(names))
	for i, n := range names {
		data[i] = records.Row{"id": i, "name": n}
	}
	exprs := []Expression{{FieldName: "name", Dir: Descending, IgnoreCase: true}, {FieldName: "id", Dir: Ascending}}

	want := slices.Clone(data)
	slices.SortStableFunc(want, func(a, b records.Row) int { return Compare(a, b, exprs) })
	assert.Equal(t, ids(want), ids(Sort(data, exprs)))
}

func TestSortComparerSeesRawValues(t *testing.T) {
	var seen []any
	raw := func(a, b any) int {
		seen = append(seen, a, b)
		return records.Compare(a, b, false)
	}
	data := []records.Row{{"id": 1, "name": "B"}, {"id": 2, "name": "a"}}
	got := Sort(data, []Expression{{FieldName: "name", Dir: Ascending, IgnoreCase: true, Comparer: raw}})
	assert.Equal(t, []any{1, 2}, ids(got))
	assert.Contains(t, seen, "B")
}

func TestSortCustomComparer(t *testing.T) {
	byLength := func(a, b any) int {
		return len(a.(string)) - len(b.(string))
	}
	data := []records.Row{
		{"id": 1, "name": "ccc"},
		{"id": 2, "name": "a"},
		{"id": 3, "name": "bb"},
	}
	assert.Equal(t, []any{2, 3, 1}, ids(Sort(data, []Expression{{FieldName: "name", Dir: Ascending, Comparer: byLength}})))
	assert.Equal(t, []any{1, 3, 2}, ids(Sort(data, []Expression{{FieldName: "name", Dir: Descending, Comparer: byLength}})))
}

func TestSortTree(t *testing.T) {
	data := []records.Row{
		{"ID": 147, "Name": "John Winchester", "Age": 55, "Employees": []records.Row{
			{"ID": 475, "Name": "Michael Langdon", "Age": 30},
			{"ID": 957, "Name": "Thomas Hardy", "Age": 29},
			{"ID": 317, "Name": "Monica Reyes", "Age": 31, "Employees": []records.Row{
				{"ID": 711, "Name": "Roland Mendel", "Age": 35},
				{"ID": 998, "Name": "Sven Ottlieb", "Age": 44},
				{"ID": 299, "Name": "Peter Lewis", "Age": 25},
			}},
		}},
		{"ID": 19, "Name": "Yang Wang", "Age": 61},
		{"ID": 847, "Name": "Ana Sanders", "Age": 42},
	}
	roots := tree.FromHierarchical(data, tree.Options{PrimaryKey: "ID", ChildDataKey: "Employees", ExpansionDepth: tree.Unlimited})

	sorted := SortTree(roots, []Expression{{FieldName: "Name", Dir: Descending}}, nil)
	var names []string
	for _, n := range tree.Flatten(sorted) {
		names = append(names, n.Data["Name"].(string))
	}
	assert.Equal(t, []string{
		"Yang Wang", "John Winchester", "Thomas Hardy", "Monica Reyes",
		"Sven Ottlieb", "Roland Mendel", "Peter Lewis", "Michael Langdon", "Ana Sanders",
	}, names)

	john := sorted[1]
	require.Equal(t, 147, john.RowKey)
	assert.NotSame(t, roots[0], john, "nodes are cloned")
	for _, c := range john.Children {
		assert.Same(t, john, c.Parent, "children point at the cloned parent")
	}
	assert.Equal(t, 475, roots[0].Children[0].RowKey, "input tree keeps its order")
	assert.Same(t, roots[0], roots[0].Children[0].Parent)
}

func TestSortTreeUnknownFieldKeepsOrder(t *testing.T) {
	roots := tree.FromHierarchical([]records.Row{{"ID": 2}, {"ID": 1}}, tree.Options{PrimaryKey: "ID"})
	sorted := SortTree(roots, []Expression{{FieldName: "TEST", Dir: Descending}}, nil)
	assert.Equal(t, 2, sorted[0].RowKey)
}

func TestPrepend(t *testing.T) {
	grouping := []Expression{{FieldName: "dept", Dir: Ascending}}
	sorting := []Expression{{FieldName: "dept", Dir: Descending}, {FieldName: "name", Dir: Ascending}}
	got := Prepend(grouping, sorting)
	var fields []string
	for _, e := range got {
		fields = append(fields, e.FieldName+":"+e.Dir.String())
	}
	assert.Equal(t, "dept:asc,name:asc", strings.Join(fields, ","))
}
