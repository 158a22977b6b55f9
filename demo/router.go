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

package demo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/server"
	"github.com/google/gridflow/core/transactions"
)

// Handler serves the HTML grids and the JSON API of a server.
type Handler struct {
	server *server.Server
	log    logr.Logger
	newID  func() string
}

// NewHandler returns a handler for s.
func NewHandler(s *server.Server, log logr.Logger) *Handler {
	return &Handler{server: s, log: log, newID: func() string { return uuid.New().String() }}
}

// Router returns the chi router of h.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/", h.Landing)
	r.Get("/grid", h.Grid)
	r.Route("/api/grids", func(r chi.Router) {
		r.Get("/", h.ListGrids)
		r.Route("/{grid}", func(r chi.Router) {
			r.Get("/rows", h.Rows)
			r.Get("/transactions", h.ListTransactions)
			r.Post("/transactions", h.AddTransaction)
			r.Delete("/transactions", h.ClearTransactions)
			r.Post("/commit", h.Commit)
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.V(1).Info("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start))
	})
}

// ErrorResponse is the body of a failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error(err, "failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusOf(err), ErrorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, server.ErrGridNotFound), errors.Is(err, server.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, transactions.ErrDuplicateID), errors.Is(err, transactions.ErrRecordDeleted):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// Landing renders the list of grids.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.server.HandleLandingRequest(&buf, w.Header().Set); err != nil {
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	_, _ = buf.WriteTo(w)
}

// Grid renders one grid page.
func (h *Handler) Grid(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if res := h.server.HandleGridRequest(&buf, r.URL, w.Header().Set); res != nil {
		if res.StatusCode != 0 {
			http.Error(w, res.Message, res.StatusCode)
		} else {
			http.Error(w, "rendering failed", http.StatusInternalServerError)
		}
		return
	}
	_, _ = buf.WriteTo(w)
}

// GridSummary is one entry of the grid list.
type GridSummary struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Rows    int    `json:"rows"`
	Tree    bool   `json:"tree"`
	Pending int    `json:"pending"`
}

// ListGrids returns every grid.
func (h *Handler) ListGrids(w http.ResponseWriter, r *http.Request) {
	out := []GridSummary{}
	for _, g := range h.server.Grids() {
		out = append(out, GridSummary{Name: g.Name, Title: g.Title, Rows: g.Len(), Tree: g.Tree, Pending: g.Pending()})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Rows returns one processed page of a grid. It accepts the query parameters
// of the HTML grid page.
func (h *Handler) Rows(w http.ResponseWriter, r *http.Request) {
	u := *r.URL
	q := u.Query()
	q.Set("grid", chi.URLParam(r, "grid"))
	u.RawQuery = q.Encode()

	page, res := h.server.Process(&u)
	if res != nil {
		status := res.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		h.writeJSON(w, status, ErrorResponse{Error: res.Message})
		return
	}
	h.writeJSON(w, http.StatusOK, page.JSON())
}

// TransactionRequest is the body of a new pending change.
type TransactionRequest struct {
	Type     string         `json:"type"`
	ID       any            `json:"id,omitempty"`
	NewValue map[string]any `json:"newValue,omitempty"`
	Path     []any          `json:"path,omitempty"`
}

// TransactionResponse describes a pending change.
type TransactionResponse struct {
	Type     string         `json:"type"`
	ID       any            `json:"id"`
	NewValue map[string]any `json:"newValue,omitempty"`
	Path     []any          `json:"path,omitempty"`
}

func parseType(s string) (transactions.Type, error) {
	switch strings.ToLower(s) {
	case "add":
		return transactions.Add, nil
	case "update":
		return transactions.Update, nil
	case "delete":
		return transactions.Delete, nil
	}
	return 0, fmt.Errorf("%w: %q", transactions.ErrUnknownType, s)
}

// AddTransaction adds a pending change to a grid. An add without an id gets
// a generated one, written into the new row's primary key field.
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	g, err := h.server.Grid(chi.URLParam(r, "grid"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req TransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	typ, err := parseType(req.Type)
	if err != nil {
		h.writeError(w, err)
		return
	}

	tx := transactions.Transaction{
		ID:       normalize(req.ID),
		Type:     typ,
		NewValue: records.Row(normalize(req.NewValue).(map[string]any)),
	}
	if req.Path != nil {
		tx.Path = normalize(req.Path).([]any)
	}
	pk := g.Config().PrimaryKey
	if typ == transactions.Add {
		if tx.NewValue == nil {
			tx.NewValue = records.Row{}
		}
		if tx.ID == nil {
			tx.ID = tx.NewValue[pk]
		}
		if tx.ID == nil {
			tx.ID = h.newID()
		}
		if pk != "" {
			tx.NewValue[pk] = tx.ID
		}
	}
	if tx.ID == nil {
		h.writeError(w, fmt.Errorf("%s needs an id", typ))
		return
	}

	if err := g.Apply(tx); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.V(1).Info("pending change added", "grid", g.Name, "type", typ.String(), "id", tx.ID)
	h.writeJSON(w, http.StatusCreated, response(tx))
}

func response(tx transactions.Transaction) TransactionResponse {
	return TransactionResponse{Type: tx.Type.String(), ID: tx.ID, NewValue: tx.NewValue, Path: tx.Path}
}

// ListTransactions returns the pending changes of a grid.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	g, err := h.server.Grid(chi.URLParam(r, "grid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := []TransactionResponse{}
	for _, tx := range g.Transactions() {
		out = append(out, response(tx))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ClearTransactions drops the pending changes of a grid.
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	g, err := h.server.Grid(chi.URLParam(r, "grid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	g.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Commit folds the pending changes of a grid into its data.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	g, err := h.server.Grid(chi.URLParam(r, "grid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	g.Commit()
	w.WriteHeader(http.StatusNoContent)
}

// normalize converts decoded JSON numbers to int64 where they are integral
// and float64 otherwise, so they compare equal to imported values.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		if x == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}
