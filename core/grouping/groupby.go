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

package grouping

import (
	"slices"

	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/sorting"
)

// GroupBy partitions data into groups, one level per expression. data must
// already be sorted by the same expressions: a level is split into contiguous
// runs of equal values, so unsorted input yields repeated groups.
// With no expressions the records are returned as they are and no group is
// created.
func GroupBy(data []records.Record, exprs []sorting.Expression) Result {
	if len(exprs) == 0 {
		return Result{Data: slices.Clone(data)}
	}
	res := Result{Data: make([]records.Record, 0, len(data))}
	groupRecursive(data, exprs, 0, nil, &res)
	return res
}

func groupRecursive(data []records.Record, exprs []sorting.Expression, level int, parent *GroupByRecord, res *Result) {
	expr := exprs[level]
	for i := 0; i < len(data); {
		j := runEnd(data, i, expr)
		g := &GroupByRecord{
			Expression:  expr,
			Value:       records.FieldValue(data[i], expr.FieldName),
			Level:       level + 1,
			Records:     slices.Clone(data[i:j]),
			GroupParent: parent,
		}
		if parent != nil {
			parent.Groups = append(parent.Groups, g)
		}
		res.Data = append(res.Data, g)

		if level < len(exprs)-1 {
			groupRecursive(g.Records, exprs, level+1, g, res)
		} else {
			res.Data = append(res.Data, g.Records...)
			res.Metadata = append(res.Metadata, g)
		}
		i = j
	}
}

// runEnd returns the end of the run of records starting at start that share
// the value of expr's field.
func runEnd(data []records.Record, start int, expr sorting.Expression) int {
	first := records.FieldValue(data[start], expr.FieldName)
	j := start + 1
	for ; j < len(data); j++ {
		if !sameGroup(expr, first, records.FieldValue(data[j], expr.FieldName)) {
			break
		}
	}
	return j
}

func sameGroup(expr sorting.Expression, a, b any) bool {
	if expr.Comparer != nil {
		return expr.Comparer(a, b) == 0
	}
	return records.Compare(a, b, expr.IgnoreCase) == 0
}
