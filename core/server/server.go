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

// Package server serves grids: it turns request URLs into pipeline state,
// runs the pipeline and renders the result.
package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/safehtml"

	"github.com/google/gridflow/core/grouping"
	"github.com/google/gridflow/core/paging"
	"github.com/google/gridflow/core/pipeline"
	"github.com/google/gridflow/core/query"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/rendering"
	"github.com/google/gridflow/core/tree"
	"github.com/google/gridflow/core/views"
)

// Server represents the application server with all its dependencies
type Server struct {
	log      logr.Logger
	renderer *rendering.GridRenderer
	pipeline *pipeline.Pipeline

	title    string
	subtitle string

	mu    sync.RWMutex
	grids map[string]*Grid
	order []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger of the server and its pipeline.
func WithLogger(log logr.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithTitle sets the landing page title and subtitle.
func WithTitle(title, subtitle string) Option {
	return func(s *Server) { s.title, s.subtitle = title, subtitle }
}

// NewServer creates a new server without grids
func NewServer(opts ...Option) (*Server, error) {
	renderer, err := rendering.NewGridRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	s := &Server{
		log:      logr.Discard(),
		renderer: renderer,
		title:    "Grids",
		grids:    make(map[string]*Grid),
	}
	for _, o := range opts {
		o(s)
	}
	s.pipeline = pipeline.New(pipeline.WithLogger(s.log.WithName("pipeline")))
	return s, nil
}

// AddGrid registers g under its name.
func (s *Server) AddGrid(g *Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grids[g.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGrid, g.Name)
	}
	s.grids[g.Name] = g
	s.order = append(s.order, g.Name)
	s.log.V(1).Info("registered grid", "name", g.Name, "rows", g.Len(), "tree", g.Tree)
	return nil
}

// Grid returns the grid registered under name.
func (s *Server) Grid(name string) (*Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grids[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGridNotFound, name)
	}
	return g, nil
}

// Grids returns the registered grids in registration order.
func (s *Server) Grids() []*Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Grid, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.grids[n])
	}
	return out
}

// GridHandlerResult represents the result of handling a grid request
type GridHandlerResult struct {
	Error      error
	StatusCode int
	Message    string
}

// TimingCollector collects timing measurements for various operations
type TimingCollector struct {
	entries []views.TimingEntry
	start   time.Time
}

// NewTimingCollector creates a new timing collector
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{start: time.Now()}
}

// Record records a timing entry
func (tc *TimingCollector) Record(operation string, duration time.Duration) {
	tc.entries = append(tc.entries, views.TimingEntry{
		Operation:  operation,
		DurationMs: fmt.Sprintf("%.2f", float64(duration.Microseconds())/1000.0),
	})
}

// GetEntries returns all timing entries
func (tc *TimingCollector) GetEntries() []views.TimingEntry {
	return tc.entries
}

// TotalMs returns total elapsed time in milliseconds as formatted string
func (tc *TimingCollector) TotalMs() string {
	return fmt.Sprintf("%.2f", float64(time.Since(tc.start).Microseconds())/1000.0)
}

// resolve parses the request URL and fills in the grid's defaults.
func (s *Server) resolve(requestURL *url.URL) (*Grid, *query.Query, *GridHandlerResult) {
	q := query.NewQuery(requestURL)
	if q.Grid == "" {
		return nil, nil, &GridHandlerResult{StatusCode: http.StatusBadRequest, Message: "grid parameter is required"}
	}
	g, err := s.Grid(q.Grid)
	if err != nil {
		return nil, nil, &GridHandlerResult{Error: err, StatusCode: http.StatusNotFound, Message: fmt.Sprintf("grid '%s' not found", q.Grid)}
	}
	if len(q.Columns) == 0 {
		q.Columns = g.DefaultColumns
		if len(q.Columns) == 0 {
			q.Columns = g.Fields()
		}
	}
	if !requestURL.Query().Has("pagesize") && g.PageSize > 0 {
		q.PageSize = g.PageSize
	}
	return g, q, nil
}

// Page is the processed view of one grid request.
type Page struct {
	Grid  *Grid
	Query *query.Query
	// Rows holds group headers and data records; tree grids hold *tree.Record.
	Rows      []records.Record
	Total     int
	Metadata  paging.Metadata
	ViewModel views.GridViewModel
}

// Process runs the pipeline for requestURL. A nil result is returned on
// success.
func (s *Server) Process(requestURL *url.URL) (*Page, *GridHandlerResult) {
	timing := NewTimingCollector()

	g, q, fail := s.resolve(requestURL)
	if fail != nil {
		return nil, fail
	}
	timing.Record("Parse Query", time.Since(timing.start))

	page := &Page{Grid: g, Query: q}
	title := g.Title
	if g.Tree {
		start := time.Now()
		roots := g.Roots(views.TreeExpansion(q))
		pg := &paging.State{PageIndex: q.Page, PageSize: q.PageSize}
		res := s.pipeline.ProcessTree(roots, pipeline.TreeState{
			Filter: q.FilterTree(), Sorting: q.SortExpressions(), Paging: pg,
		})
		timing.Record("Process Tree", time.Since(start))
		for _, n := range res.Rows {
			page.Rows = append(page.Rows, n)
		}
		page.Total, page.Metadata = res.Total, pg.Metadata
		page.ViewModel = views.BuildTreeViewModel(title, q, res, pg.Metadata)
	} else {
		start := time.Now()
		state := q.State(g.GroupsExpanded)
		res, err := s.pipeline.Process(g.Records(), state)
		if err != nil {
			return nil, &GridHandlerResult{Error: err, StatusCode: http.StatusBadRequest, Message: err.Error()}
		}
		timing.Record("Process", time.Since(start))
		page.Rows, page.Total, page.Metadata = res.Rows, res.Total, state.Paging.Metadata
		page.ViewModel = views.BuildGridViewModel(title, q, res, state.Grouping, state.Paging.Metadata)
	}

	page.ViewModel.PendingChanges = g.Pending()
	page.ViewModel.FilterErrors = validateFilters(q, g.Fields())
	page.ViewModel.RenderTimeMs = timing.TotalMs()
	page.ViewModel.TimingBreakdown = timing.GetEntries()
	s.log.V(4).Info("processed grid request", "grid", g.Name, "rows", len(page.Rows), "total", page.Total,
		"ms", page.ViewModel.RenderTimeMs)
	return page, nil
}

// validateFilters reports filters on fields the grid does not have
func validateFilters(q *query.Query, fields []string) map[string]string {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	errs := make(map[string]string)
	for field := range q.Filters {
		if !known[field] {
			errs[field] = fmt.Sprintf("field '%s' does not exist", field)
		}
	}
	return errs
}

// HandleGridRequest processes a grid request and writes the HTML response.
// Returns an error result if the request is invalid, nil on success.
func (s *Server) HandleGridRequest(w io.Writer, requestURL *url.URL, setHeader func(key, value string)) *GridHandlerResult {
	page, fail := s.Process(requestURL)
	if fail != nil {
		return fail
	}
	setHeader("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, page.ViewModel); err != nil {
		s.log.Error(err, "template rendering error", "grid", page.Grid.Name)
		return &GridHandlerResult{Error: err}
	}
	return nil
}

// HandleLandingRequest processes the landing page request
func (s *Server) HandleLandingRequest(w io.Writer, setHeader func(key, value string)) error {
	setHeader("Content-Type", "text/html; charset=utf-8")

	vm := views.LandingViewModel{Title: s.title, Subtitle: s.subtitle}
	for _, g := range s.Grids() {
		kind := "flat"
		if g.Tree {
			kind = "tree"
		}
		u := &url.URL{Path: "/grid", RawQuery: url.Values{"grid": {g.Name}}.Encode()}
		vm.Grids = append(vm.Grids, views.GridInfo{
			Name:        g.Title,
			Description: g.Description,
			URL:         safehtml.URLSanitized(u.String()),
			RecordCount: g.Len(),
			Kind:        kind,
		})
	}

	if err := s.renderer.RenderLanding(w, vm); err != nil {
		s.log.Error(err, "landing page rendering error")
		return err
	}
	return nil
}

// GroupRow is the JSON form of a group header.
type GroupRow struct {
	Field    string   `json:"field"`
	Value    any      `json:"value"`
	Level    int      `json:"level"`
	Count    int      `json:"count"`
	Expanded bool     `json:"expanded"`
	Path     []string `json:"path"`
	Summary  string   `json:"summary,omitempty"`
}

// JSONRow is one row of the JSON rows endpoint: exactly one of Group and
// Data is set.
type JSONRow struct {
	Group *GroupRow      `json:"group,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	Level int            `json:"level"`
}

// JSONPage is the body of the JSON rows endpoint.
type JSONPage struct {
	Grid      string    `json:"grid"`
	Rows      []JSONRow `json:"rows"`
	Total     int       `json:"total"`
	PageCount int       `json:"pageCount"`
	Error     string    `json:"error,omitempty"`
	Pending   int       `json:"pending"`
}

// JSON returns the JSON form of page.
func (p *Page) JSON() JSONPage {
	out := JSONPage{
		Grid:      p.Grid.Name,
		Rows:      make([]JSONRow, 0, len(p.Rows)),
		Total:     p.Total,
		PageCount: p.Metadata.PageCount,
		Pending:   p.ViewModel.PendingChanges,
	}
	if p.Metadata.Error != paging.None {
		out.Error = p.Metadata.Error.String()
	}
	for i, rec := range p.Rows {
		vm := p.ViewModel.Rows[i]
		row := JSONRow{Level: vm.Level}
		if g, ok := rec.(*grouping.GroupByRecord); ok {
			row.Group = &GroupRow{
				Field:    g.Expression.FieldName,
				Value:    g.Value,
				Level:    g.Level,
				Count:    g.Length(),
				Expanded: vm.Expanded,
				Path:     query.GroupPath(g),
				Summary:  vm.Summary,
			}
		} else {
			row.Data = dataOf(rec, p.Grid.Config().ChildDataKey)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func dataOf(rec records.Record, childDataKey string) map[string]any {
	var row records.Row
	switch r := rec.(type) {
	case records.Row:
		row = r
	case *tree.Record:
		row = r.Data
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		if k != childDataKey {
			out[k] = v
		}
	}
	return out
}
