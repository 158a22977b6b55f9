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

// Package filtering applies a caller-built predicate tree to grid data.
// Building the tree is left to the caller; this package only evaluates it.
package filtering

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/google/gridflow/core/records"
)

// ExpressionTree decides whether a record passes the filter.
type ExpressionTree interface {
	Match(rec records.Record) bool
}

// Func adapts a plain predicate to ExpressionTree.
type Func func(rec records.Record) bool

// Match calls f.
func (f Func) Match(rec records.Record) bool { return f(rec) }

// Strategy applies an expression tree to a sequence.
type Strategy interface {
	Filter(data []records.Record, tree ExpressionTree) []records.Record
}

// State pairs the grid's filter tree with the strategy applying it.
type State struct {
	Strategy Strategy
	Tree     ExpressionTree
}

// Filter applies state to data. A nil tree keeps every record and a nil
// strategy falls back to DefaultStrategy.
func Filter(data []records.Record, state *State) []records.Record {
	if state == nil || state.Tree == nil {
		return data
	}
	strategy := state.Strategy
	if strategy == nil {
		strategy = DefaultStrategy{}
	}
	return strategy.Filter(data, state.Tree)
}

// DefaultStrategy keeps the records matching the tree, in input order.
type DefaultStrategy struct{}

// Filter implements Strategy.
func (DefaultStrategy) Filter(data []records.Record, tree ExpressionTree) []records.Record {
	if tree == nil {
		return data
	}
	mask := Mask(data, tree)
	out := make([]records.Record, 0, mask.GetCardinality())
	it := mask.Iterator()
	for it.HasNext() {
		out = append(out, data[it.Next()])
	}
	return out
}

// Mask returns the indices of the records of data matching tree.
func Mask(data []records.Record, tree ExpressionTree) *roaring.Bitmap {
	mask := roaring.New()
	for i, rec := range data {
		if tree.Match(rec) {
			mask.Add(uint32(i))
		}
	}
	return mask
}
