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

// Package query maps grid view state to and from URLs.
package query

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/google/safehtml"

	"github.com/google/gridflow/core/aggregates"
	"github.com/google/gridflow/core/filtering"
	"github.com/google/gridflow/core/grouping"
	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/paging"
	"github.com/google/gridflow/core/pipeline"
	"github.com/google/gridflow/core/sorting"
)

// DefaultPageSize is used when the URL carries no pagesize.
const DefaultPageSize = 25

// SortKey is one entry of the sort parameter.
type SortKey struct {
	Field string
	Dir   sorting.Direction
}

// Query represents the parsed state of a grid view URL
type Query struct {
	// Base path (e.g., "/grid")
	Path string

	Grid      string            // The grid being viewed
	Columns   []string          // Visible columns; grouped columns first
	Sort      []SortKey         // Sort keys in priority order
	Grouped   []string          // Grouped fields, outermost first
	Expanded  [][]string        // Group paths explicitly expanded
	Collapsed [][]string        // Group paths explicitly collapsed
	Filters   map[string]string // Field patterns (field -> pattern)
	Aggs      []aggregates.Spec // Group header summaries
	Page      int               // Zero-based page index
	PageSize  int
}

// NewQuery creates a Query from a URL.
//
// Parameters:
//
//	grid=orders
//	columns=region,product,qty
//	sort=qty:desc,product:asc
//	grouped=region,product
//	expanded=EU/Chai  (repeatable; one path segment per grouped field)
//	collapsed=US      (repeatable)
//	filter:product='Ch'
//	agg=qty:sum,amount:avg
//	page=0&pagesize=25
func NewQuery(u *url.URL) *Query {
	q := u.Query()
	s := &Query{
		Path:     u.Path,
		Grid:     q.Get("grid"),
		Columns:  splitList(q.Get("columns")),
		Grouped:  splitList(q.Get("grouped")),
		Filters:  make(map[string]string),
		PageSize: DefaultPageSize,
	}

	for _, part := range splitList(q.Get("sort")) {
		field, dir, _ := strings.Cut(part, ":")
		key := SortKey{Field: field, Dir: sorting.Ascending}
		if dir == "desc" {
			key.Dir = sorting.Descending
		}
		s.Sort = append(s.Sort, key)
	}

	for _, part := range splitList(q.Get("agg")) {
		field, name, _ := strings.Cut(part, ":")
		typ, err := aggregates.ParseType(name)
		if field == "" || err != nil {
			continue
		}
		s.Aggs = append(s.Aggs, aggregates.Spec{Field: field, Type: typ})
	}

	for _, p := range q["expanded"] {
		if path := splitPath(p); len(path) > 0 {
			s.Expanded = append(s.Expanded, path)
		}
	}
	for _, p := range q["collapsed"] {
		if path := splitPath(p); len(path) > 0 {
			s.Collapsed = append(s.Collapsed, path)
		}
	}

	for key, values := range q {
		if field, ok := strings.CutPrefix(key, "filter:"); ok && field != "" && len(values) > 0 && values[0] != "" {
			s.Filters[field] = values[0]
		}
	}

	// Invalid numbers are kept so paging can report them.
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Page = n
		}
	}
	if v := q.Get("pagesize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.PageSize = n
		}
	}

	s.reorderColumns()
	return s
}

func splitList(v string) []string {
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ",")
}

// splitPath decodes a group path: segments separated by '/', each
// path-escaped.
func splitPath(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "/")
	for i, p := range parts {
		if dec, err := url.PathUnescape(p); err == nil {
			parts[i] = dec
		}
	}
	return parts
}

func joinPath(path []string) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Clone creates a deep copy of the Query
func (s *Query) Clone() *Query {
	c := *s
	c.Columns = slices.Clone(s.Columns)
	c.Sort = slices.Clone(s.Sort)
	c.Grouped = slices.Clone(s.Grouped)
	c.Aggs = slices.Clone(s.Aggs)
	c.Expanded = clonePaths(s.Expanded)
	c.Collapsed = clonePaths(s.Collapsed)
	c.Filters = make(map[string]string, len(s.Filters))
	for k, v := range s.Filters {
		c.Filters[k] = v
	}
	return &c
}

func clonePaths(paths [][]string) [][]string {
	if paths == nil {
		return nil
	}
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = slices.Clone(p)
	}
	return out
}

// reorderColumns moves the visible grouped columns to the front, in grouping
// order. The other columns keep their order.
func (s *Query) reorderColumns() {
	if len(s.Columns) == 0 {
		return
	}
	out := make([]string, 0, len(s.Columns))
	for _, g := range s.Grouped {
		if slices.Contains(s.Columns, g) {
			out = append(out, g)
		}
	}
	for _, c := range s.Columns {
		if !slices.Contains(s.Grouped, c) {
			out = append(out, c)
		}
	}
	s.Columns = out
}

// ToURL converts the Query back to a URL string
func (s *Query) ToURL() string {
	u := &url.URL{Path: s.Path}
	q := url.Values{}

	if s.Grid != "" {
		q.Set("grid", s.Grid)
	}
	if len(s.Columns) > 0 {
		q.Set("columns", strings.Join(s.Columns, ","))
	}
	if len(s.Sort) > 0 {
		parts := make([]string, 0, len(s.Sort))
		for _, k := range s.Sort {
			parts = append(parts, k.Field+":"+k.Dir.String())
		}
		q.Set("sort", strings.Join(parts, ","))
	}
	if len(s.Grouped) > 0 {
		q.Set("grouped", strings.Join(s.Grouped, ","))
	}
	for _, p := range s.Expanded {
		q.Add("expanded", joinPath(p))
	}
	for _, p := range s.Collapsed {
		q.Add("collapsed", joinPath(p))
	}
	if len(s.Aggs) > 0 {
		parts := make([]string, 0, len(s.Aggs))
		for _, a := range s.Aggs {
			parts = append(parts, a.String())
		}
		q.Set("agg", strings.Join(parts, ","))
	}
	for field, pattern := range s.Filters {
		if pattern != "" {
			q.Set("filter:"+field, pattern)
		}
	}
	if s.Page != 0 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	q.Set("pagesize", strconv.Itoa(s.PageSize))

	u.RawQuery = q.Encode()
	return u.String()
}

// ToSafeURL converts the Query to a safehtml.URL
func (s *Query) ToSafeURL() safehtml.URL {
	return safehtml.URLSanitized(s.ToURL())
}

// SortDirection returns the direction field is sorted in, or sorting.None.
func (s *Query) SortDirection(field string) sorting.Direction {
	for _, k := range s.Sort {
		if k.Field == field {
			return k.Dir
		}
	}
	return sorting.None
}

// WithSortToggled returns a URL where field cycles ascending, descending,
// unsorted. A newly sorted field becomes the last sort key.
func (s *Query) WithSortToggled(field string) safehtml.URL {
	c := s.Clone()
	idx := slices.IndexFunc(c.Sort, func(k SortKey) bool { return k.Field == field })
	switch {
	case idx < 0:
		c.Sort = append(c.Sort, SortKey{Field: field, Dir: sorting.Ascending})
	case c.Sort[idx].Dir == sorting.Ascending:
		c.Sort[idx].Dir = sorting.Descending
	default:
		c.Sort = slices.Delete(c.Sort, idx, idx+1)
	}
	c.Page = 0
	return c.ToSafeURL()
}

// IsGrouped checks whether field is grouped.
func (s *Query) IsGrouped(field string) bool {
	return slices.Contains(s.Grouped, field)
}

// WithGroupedToggled returns a URL with field added to or removed from the
// grouping. Expansion paths no longer fit the new grouping and are dropped.
func (s *Query) WithGroupedToggled(field string) safehtml.URL {
	c := s.Clone()
	if i := slices.Index(c.Grouped, field); i >= 0 {
		c.Grouped = slices.Delete(c.Grouped, i, i+1)
	} else {
		c.Grouped = append(c.Grouped, field)
	}
	c.Expanded, c.Collapsed = nil, nil
	c.Page = 0
	c.reorderColumns()
	return c.ToSafeURL()
}

// WithGroupToggled returns a URL where the group at path shows the opposite
// of expanded.
func (s *Query) WithGroupToggled(path []string, expanded bool) safehtml.URL {
	c := s.Clone()
	same := func(p []string) bool { return slices.Equal(p, path) }
	c.Expanded = slices.DeleteFunc(c.Expanded, same)
	c.Collapsed = slices.DeleteFunc(c.Collapsed, same)
	if expanded {
		c.Collapsed = append(c.Collapsed, slices.Clone(path))
	} else {
		c.Expanded = append(c.Expanded, slices.Clone(path))
	}
	return c.ToSafeURL()
}

// WithFilter returns a URL filtering field by pattern. An empty pattern
// removes the filter.
func (s *Query) WithFilter(field, pattern string) safehtml.URL {
	c := s.Clone()
	if pattern == "" {
		delete(c.Filters, field)
	} else {
		c.Filters[field] = pattern
	}
	c.Page = 0
	return c.ToSafeURL()
}

// WithPage returns a URL showing page index.
func (s *Query) WithPage(index int) safehtml.URL {
	c := s.Clone()
	c.Page = index
	return c.ToSafeURL()
}

// WithPageSize returns a URL with a different page size, back on the first page.
func (s *Query) WithPageSize(size int) safehtml.URL {
	c := s.Clone()
	c.PageSize = size
	c.Page = 0
	return c.ToSafeURL()
}

// FilterTree builds the filter expression: every field pattern must match.
// It returns nil without filters.
func (s *Query) FilterTree() filtering.ExpressionTree {
	if len(s.Filters) == 0 {
		return nil
	}
	fields := make([]string, 0, len(s.Filters))
	for f := range s.Filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	all := make(filtering.All, 0, len(fields))
	for _, f := range fields {
		all = append(all, filtering.FieldMatch{Field: f, Pattern: s.Filters[f]})
	}
	return all
}

// SortExpressions returns the sort keys as sorting expressions.
func (s *Query) SortExpressions() []sorting.Expression {
	out := make([]sorting.Expression, 0, len(s.Sort))
	for _, k := range s.Sort {
		out = append(out, sorting.Expression{FieldName: k.Field, Dir: k.Dir})
	}
	return out
}

// GroupingState returns the grouping state of the URL, or nil when nothing
// is grouped. Group values in paths are typed with ParseValue so they match
// the values of the data.
func (s *Query) GroupingState(defaultExpanded bool) *grouping.State {
	if len(s.Grouped) == 0 {
		return nil
	}
	st := &grouping.State{DefaultExpanded: defaultExpanded}
	for _, f := range s.Grouped {
		st.Expressions = append(st.Expressions, sorting.Expression{FieldName: f, Dir: s.groupDirection(f)})
	}
	for _, p := range s.Collapsed {
		if h, ok := s.hierarchy(p); ok {
			st.Expansion = append(st.Expansion, grouping.ExpansionState{Hierarchy: h, Expanded: false})
		}
	}
	for _, p := range s.Expanded {
		if h, ok := s.hierarchy(p); ok {
			st.Expansion = append(st.Expansion, grouping.ExpansionState{Hierarchy: h, Expanded: true})
		}
	}
	return st
}

func (s *Query) groupDirection(field string) sorting.Direction {
	if d := s.SortDirection(field); d != sorting.None {
		return d
	}
	return sorting.Ascending
}

func (s *Query) hierarchy(path []string) (hierarchy.Path, bool) {
	if len(path) > len(s.Grouped) {
		return nil, false
	}
	h := make(hierarchy.Path, len(path))
	for i, v := range path {
		h[i] = hierarchy.Key{FieldName: s.Grouped[i], Value: ParseValue(v)}
	}
	return h, true
}

// GroupPath returns the URL path segments of a group.
func GroupPath(g *grouping.GroupByRecord) []string {
	h := g.Hierarchy()
	out := make([]string, len(h))
	for i, k := range h {
		out[i] = FormatValue(k.Value)
	}
	return out
}

// State returns the pipeline state the URL describes.
func (s *Query) State(defaultExpanded bool) pipeline.State {
	st := pipeline.State{
		Sorting:  s.SortExpressions(),
		Grouping: s.GroupingState(defaultExpanded),
		Paging:   &paging.State{PageIndex: s.Page, PageSize: s.PageSize},
	}
	if tree := s.FilterTree(); tree != nil {
		st.Filtering = &filtering.State{Tree: tree}
	}
	return st
}
