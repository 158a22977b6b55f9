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

// Package pipeline runs the grid's data pipeline: filtering, sorting,
// grouping with expansion restore, and paging, in that order.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/google/gridflow/core/filtering"
	"github.com/google/gridflow/core/grouping"
	"github.com/google/gridflow/core/paging"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/sorting"
	"github.com/google/gridflow/core/transactions"
	"github.com/google/gridflow/core/tree"
)

// DefaultMaxGroupingExpressions is the number of grouping expressions a grid
// accepts unless configured otherwise.
const DefaultMaxGroupingExpressions = 10

// ErrTooManyGroupingExpressions is returned when a state groups by more
// fields than the pipeline allows.
var ErrTooManyGroupingExpressions = errors.New("too many grouping expressions")

// State is the view state of one grid. Any part may be nil, which disables
// that stage.
type State struct {
	Filtering *filtering.State
	Sorting   []sorting.Expression
	Grouping  *grouping.State
	Paging    *paging.State
}

// Result is the output of Process.
type Result struct {
	// Rows is the visible page: data records interleaved with group headers.
	Rows []records.Record
	// Groups is the full grouping result before expansion and paging.
	Groups grouping.Result
	// Total is the number of rows before paging.
	Total int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithFilterStrategy sets the strategy used when a filtering state has none.
func WithFilterStrategy(s filtering.Strategy) Option {
	return func(p *Pipeline) { p.strategy = s }
}

// WithMaxGroupingExpressions caps the number of grouping expressions.
func WithMaxGroupingExpressions(n int) Option {
	return func(p *Pipeline) { p.maxGrouping = n }
}

// Pipeline processes grid data. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	log         logr.Logger
	strategy    filtering.Strategy
	maxGrouping int
}

// New returns a pipeline configured by opts.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		log:         logr.Discard(),
		strategy:    filtering.DefaultStrategy{},
		maxGrouping: DefaultMaxGroupingExpressions,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs data through every stage configured in state. The input
// sequence is not modified. Paging metadata is written to state.Paging.
func (p *Pipeline) Process(data []records.Record, state State) (*Result, error) {
	var groupExprs []sorting.Expression
	if state.Grouping != nil {
		if n := len(state.Grouping.Expressions); n > p.maxGrouping {
			return nil, fmt.Errorf("%w: %d, at most %d allowed", ErrTooManyGroupingExpressions, n, p.maxGrouping)
		}
		groupExprs = ascending(state.Grouping.Expressions)
	}

	filtered := filtering.Filter(data, p.filterState(state.Filtering))
	p.log.V(4).Info("filter: ready", "in", len(data), "out", len(filtered))

	sorted := filtered
	if exprs := sorting.Prepend(groupExprs, state.Sorting); len(exprs) > 0 {
		sorted = sorting.Sort(filtered, exprs)
		p.log.V(4).Info("sort: ready", "expressions", len(exprs))
	}

	res := &Result{}
	rows := sorted
	if len(groupExprs) > 0 {
		res.Groups = grouping.GroupBy(sorted, groupExprs)
		rows = grouping.RestoreGroups(res.Groups, state.Grouping.Expansion, state.Grouping.DefaultExpanded)
		p.log.V(4).Info("group: ready", "groups", len(res.Groups.Metadata), "rows", len(rows))
	} else {
		res.Groups = grouping.Result{Data: sorted}
	}

	res.Total = len(rows)
	res.Rows = paging.Page(rows, state.Paging)
	if state.Paging != nil && state.Paging.Metadata.Error != paging.None {
		p.log.V(1).Info("page: invalid paging state", "error", state.Paging.Metadata.Error.String(),
			"page-index", state.Paging.PageIndex, "page-size", state.Paging.PageSize)
	}
	return res, nil
}

// TreeState is the view state of a tree grid.
type TreeState struct {
	Filter  filtering.ExpressionTree
	Sorting []sorting.Expression
	Paging  *paging.State
}

// TreeResult is the output of ProcessTree.
type TreeResult struct {
	// Roots is the filtered and sorted tree.
	Roots []*tree.Record
	// Rows is the visible page of the flattened tree.
	Rows  []*tree.Record
	Total int
}

// ProcessTree filters and sorts a tree, flattens the expanded part and pages
// it. Filtering keeps the ancestors of matching rows. The input tree is not
// modified.
func (p *Pipeline) ProcessTree(roots []*tree.Record, state TreeState) *TreeResult {
	res := &TreeResult{Roots: roots}
	if state.Filter != nil {
		res.Roots = filtering.TreeStrategy{}.Filter(res.Roots, state.Filter)
	}
	if len(state.Sorting) > 0 {
		res.Roots = sorting.SortTree(res.Roots, state.Sorting, nil)
	}
	visible := tree.Flatten(res.Roots)
	res.Total = len(visible)
	res.Rows = paging.Page(visible, state.Paging)
	p.log.V(4).Info("tree: ready", "roots", len(res.Roots), "visible", len(visible), "page", len(res.Rows))
	return res
}

func (p *Pipeline) filterState(s *filtering.State) *filtering.State {
	if s == nil || s.Strategy != nil {
		return s
	}
	return &filtering.State{Strategy: p.strategy, Tree: s.Tree}
}

// ascending defaults the direction of grouping expressions to ascending:
// grouping needs its input sorted by every grouped field.
func ascending(exprs []sorting.Expression) []sorting.Expression {
	out := make([]sorting.Expression, len(exprs))
	for i, e := range exprs {
		if e.Dir == sorting.None {
			e.Dir = sorting.Ascending
		}
		out[i] = e
	}
	return out
}

// Source is the committed data of a grid together with its pending changes.
type Source struct {
	Data   []records.Row
	Log    *transactions.Log
	Config transactions.Config
}

// Effective returns the rows the grid shows: Data with the pending changes
// applied and pending deletes removed.
func (s *Source) Effective() []records.Row {
	if s.Log == nil {
		return s.Data
	}
	return s.Log.Effective(s.Data, s.Config)
}

// Records returns the effective rows as a record sequence.
func (s *Source) Records() []records.Record {
	rows := s.Effective()
	out := make([]records.Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// Tree builds the effective rows into a tree using opts. Hierarchical data is
// read from Config.ChildDataKey; otherwise rows are linked by opts.ForeignKey.
func (s *Source) Tree(opts tree.Options) []*tree.Record {
	rows := s.Effective()
	if opts.PrimaryKey == "" {
		opts.PrimaryKey = s.Config.PrimaryKey
	}
	if s.Config.ChildDataKey != "" {
		opts.ChildDataKey = s.Config.ChildDataKey
		return tree.FromHierarchical(rows, opts)
	}
	return tree.FromFlat(rows, opts)
}
