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

// Package views turns pipeline results into template view models.
package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/safehtml"

	"github.com/google/gridflow/core/aggregates"
	"github.com/google/gridflow/core/grouping"
	"github.com/google/gridflow/core/paging"
	"github.com/google/gridflow/core/pipeline"
	"github.com/google/gridflow/core/query"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/tree"
)

// GridViewModel contains one page of a grid formatted for template consumption
type GridViewModel struct {
	Title   string
	Grid    string
	Columns []ColumnInfo
	Rows    []RowView

	CurrentURL safehtml.URL

	// Pagination info
	TotalRows   int // Rows before paging, group headers included
	Page        int // 1-based page number for display
	PageCount   int
	HasPrev     bool
	HasNext     bool
	PrevURL     safehtml.URL
	NextURL     safehtml.URL
	PagingError string

	PendingChanges  int
	FilterErrors    map[string]string // field -> error message
	RenderTimeMs    string
	TimingBreakdown []TimingEntry
}

// ColumnInfo contains information about a column for UI display
type ColumnInfo struct {
	Name      string
	SortDir   string       // "asc", "desc" or "none"
	SortURL   safehtml.URL // URL cycling the sort of this column
	IsGrouped bool
	GroupURL  safehtml.URL // URL toggling grouping by this column
	Filter    string       // Current filter pattern
}

// RowView is one display row: a group header, a data row or a tree node.
type RowView struct {
	IsGroup  bool
	Level    int // Indentation depth, 0 for top level
	Label    string
	Count    int // Records in the group
	Summary  string
	Expanded bool
	// HasToggle is set for group headers and tree nodes with children.
	HasToggle bool
	ToggleURL safehtml.URL
	// Context marks a tree row kept only because a descendant matched the filter.
	Context bool
	Cells   []string
}

// TimingEntry represents a single timing measurement
type TimingEntry struct {
	Operation  string
	DurationMs string
}

// LandingViewModel lists the grids served.
type LandingViewModel struct {
	Title    string
	Subtitle string
	Grids    []GridInfo
}

// GridInfo describes one grid on the landing page.
type GridInfo struct {
	Name        string
	Description string
	URL         safehtml.URL
	RecordCount int
	Kind        string // "flat" or "tree"
}

// BuildGridViewModel formats a pipeline result. It expects state to be the
// grouping state the result was produced with and meta the paging metadata
// the pipeline wrote.
func BuildGridViewModel(title string, q *query.Query, res *pipeline.Result, state *grouping.State, meta paging.Metadata) GridViewModel {
	vm := newViewModel(title, q, res.Total, meta)
	sums := aggregates.Summarize(res.Groups, q.Aggs)
	var exp *grouping.Expander
	if state != nil {
		exp = state.Expander()
	}
	for _, rec := range res.Rows {
		if g, ok := rec.(*grouping.GroupByRecord); ok {
			expanded := exp != nil && exp.IsExpanded(g)
			vm.Rows = append(vm.Rows, RowView{
				IsGroup:   true,
				Level:     g.Level - 1,
				Label:     fmt.Sprintf("%s: %s", g.Expression.FieldName, FormatCell(g.Value)),
				Count:     g.Length(),
				Summary:   summaryText(sums[g]),
				Expanded:  expanded,
				HasToggle: true,
				ToggleURL: q.WithGroupToggled(query.GroupPath(g), expanded),
			})
			continue
		}
		level := 0
		if state != nil {
			level = len(state.Expressions)
		}
		vm.Rows = append(vm.Rows, RowView{Level: level, Cells: cells(rec, q.Columns)})
	}
	return vm
}

func summaryText(sums []aggregates.Summary) string {
	parts := make([]string, len(sums))
	for i, s := range sums {
		parts[i] = fmt.Sprintf("%s %s: %s", s.Spec.Field, s.Spec.Type, s.Value)
	}
	return strings.Join(parts, ", ")
}

// BuildTreeViewModel formats a tree pipeline result. Tree toggles are
// recorded in the query as single-segment paths holding the row key.
func BuildTreeViewModel(title string, q *query.Query, res *pipeline.TreeResult, meta paging.Metadata) GridViewModel {
	vm := newViewModel(title, q, res.Total, meta)
	for _, n := range res.Rows {
		row := RowView{
			Level:     n.Level,
			Expanded:  n.Expanded,
			HasToggle: n.HasChildren(),
			Context:   n.IsFilteredOutParent,
			Cells:     cells(n, q.Columns),
		}
		if row.HasToggle {
			row.ToggleURL = q.WithGroupToggled([]string{query.FormatValue(n.RowKey)}, n.Expanded)
		}
		vm.Rows = append(vm.Rows, row)
	}
	return vm
}

// TreeExpansion converts the toggles of q into tree expansion states.
func TreeExpansion(q *query.Query) tree.ExpansionStates {
	states := tree.ExpansionStates{}
	for _, p := range q.Expanded {
		if len(p) == 1 {
			states.Expand(query.ParseValue(p[0]))
		}
	}
	for _, p := range q.Collapsed {
		if len(p) == 1 {
			states.Collapse(query.ParseValue(p[0]))
		}
	}
	return states
}

func newViewModel(title string, q *query.Query, total int, meta paging.Metadata) GridViewModel {
	vm := GridViewModel{
		Title:      title,
		Grid:       q.Grid,
		CurrentURL: q.ToSafeURL(),
		TotalRows:  total,
		Page:       q.Page + 1,
		PageCount:  meta.PageCount,
	}
	if meta.Error != paging.None {
		vm.PagingError = meta.Error.String()
	}
	if q.Page > 0 {
		vm.HasPrev = true
		vm.PrevURL = q.WithPage(min(q.Page-1, max(meta.PageCount-1, 0)))
	}
	if q.Page+1 < meta.PageCount {
		vm.HasNext = true
		vm.NextURL = q.WithPage(q.Page + 1)
	}
	for _, c := range q.Columns {
		dir := q.SortDirection(c)
		vm.Columns = append(vm.Columns, ColumnInfo{
			Name:      c,
			SortDir:   dir.String(),
			SortURL:   q.WithSortToggled(c),
			IsGrouped: q.IsGrouped(c),
			GroupURL:  q.WithGroupedToggled(c),
			Filter:    q.Filters[c],
		})
	}
	return vm
}

func cells(rec records.Record, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = FormatCell(records.FieldValue(rec, c))
	}
	return out
}

// FormatCell renders a field value for display. Null renders empty and
// dates without a time of day render as YYYY-MM-DD.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
