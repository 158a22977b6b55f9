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

package server

import (
	"bytes"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/transactions"
	"github.com/google/gridflow/core/tree"
)

func ordersGrid() *Grid {
	g := NewGrid("orders", []records.Row{
		{"id": 1, "region": "EU", "qty": 5},
		{"id": 2, "region": "US", "qty": 3},
		{"id": 3, "region": "EU", "qty": 8},
	}, transactions.Config{PrimaryKey: "id"})
	g.PageSize = 10
	g.GroupsExpanded = true
	return g
}

func staffGrid() *Grid {
	g := NewGrid("staff", []records.Row{
		{"ID": 1, "Name": "Ana", "Employees": []records.Row{{"ID": 2, "Name": "Bob"}}},
		{"ID": 3, "Name": "Carl"},
	}, transactions.Config{PrimaryKey: "ID", ChildDataKey: "Employees"})
	g.Tree = true
	g.TreeOptions = tree.Options{ExpansionDepth: tree.Unlimited}
	return g
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer()
	require.NoError(t, err)
	require.NoError(t, s.AddGrid(ordersGrid()))
	require.NoError(t, s.AddGrid(staffGrid()))
	return s
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestAddGridDuplicate(t *testing.T) {
	s := newTestServer(t)
	assert.ErrorIs(t, s.AddGrid(ordersGrid()), ErrDuplicateGrid)
	_, err := s.Grid("nope")
	assert.ErrorIs(t, err, ErrGridNotFound)
	assert.Len(t, s.Grids(), 2)
}

func TestProcessDefaults(t *testing.T) {
	s := newTestServer(t)
	page, fail := s.Process(mustURL(t, "/grid?grid=orders"))
	require.Nil(t, fail)
	assert.Equal(t, []string{"id", "qty", "region"}, page.Query.Columns)
	assert.Equal(t, 10, page.Query.PageSize)
	assert.Equal(t, 3, page.Total)
}

func TestProcessErrors(t *testing.T) {
	s := newTestServer(t)
	_, fail := s.Process(mustURL(t, "/grid"))
	require.NotNil(t, fail)
	assert.Equal(t, http.StatusBadRequest, fail.StatusCode)

	_, fail = s.Process(mustURL(t, "/grid?grid=missing"))
	require.NotNil(t, fail)
	assert.Equal(t, http.StatusNotFound, fail.StatusCode)

	page, fail := s.Process(mustURL(t, "/grid?grid=orders&filter:colour=red"))
	require.Nil(t, fail)
	assert.Contains(t, page.ViewModel.FilterErrors, "colour")
}

func TestProcessGroupedJSON(t *testing.T) {
	s := newTestServer(t)
	page, fail := s.Process(mustURL(t, "/grid?grid=orders&grouped=region&sort=qty:desc"))
	require.Nil(t, fail)

	js := page.JSON()
	require.Len(t, js.Rows, 5)
	require.NotNil(t, js.Rows[0].Group)
	assert.Equal(t, "EU", js.Rows[0].Group.Value)
	assert.Equal(t, []string{"EU"}, js.Rows[0].Group.Path)
	assert.Equal(t, 8, js.Rows[1].Data["qty"])
	assert.Equal(t, 1, js.Rows[1].Level)
	assert.Equal(t, 1, js.PageCount)
	assert.Empty(t, js.Rows[0].Group.Summary)

	page, fail = s.Process(mustURL(t, "/grid?grid=orders&grouped=region&agg=qty:avg"))
	require.Nil(t, fail)
	js = page.JSON()
	assert.Equal(t, "qty avg: 6.50", js.Rows[0].Group.Summary)
}

func TestProcessTreeJSON(t *testing.T) {
	s := newTestServer(t)
	page, fail := s.Process(mustURL(t, "/grid?grid=staff&columns=Name"))
	require.Nil(t, fail)

	js := page.JSON()
	require.Len(t, js.Rows, 3)
	assert.Equal(t, map[string]any{"ID": 1, "Name": "Ana"}, js.Rows[0].Data, "child rows are not repeated")
	assert.Equal(t, 1, js.Rows[1].Level)

	page, fail = s.Process(mustURL(t, "/grid?grid=staff&collapsed=1"))
	require.Nil(t, fail)
	assert.Len(t, page.Rows, 2)
}

func TestGridTransactions(t *testing.T) {
	s := newTestServer(t)
	g, err := s.Grid("orders")
	require.NoError(t, err)

	require.NoError(t, g.Apply(transactions.Transaction{ID: 2, Type: transactions.Update, NewValue: records.Row{"qty": 30}}))
	require.NoError(t, g.Apply(transactions.Transaction{ID: 3, Type: transactions.Delete}))
	require.NoError(t, g.Apply(transactions.Transaction{ID: 4, Type: transactions.Add, NewValue: records.Row{"id": 4, "region": "APAC", "qty": 1}}))
	require.NoError(t, g.Apply(transactions.Transaction{ID: 4, Type: transactions.Update, NewValue: records.Row{"qty": 2}}))
	assert.ErrorIs(t, g.Apply(transactions.Transaction{ID: 99, Type: transactions.Delete}), ErrRecordNotFound)
	assert.Equal(t, 3, g.Pending())
	assert.Len(t, g.Transactions(), 4)

	page, fail := s.Process(mustURL(t, "/grid?grid=orders&sort=id"))
	require.Nil(t, fail)
	js := page.JSON()
	require.Len(t, js.Rows, 3)
	assert.Equal(t, 30, js.Rows[1].Data["qty"])
	assert.Equal(t, 2, js.Rows[2].Data["qty"])
	assert.Equal(t, 3, js.Pending)

	g.Commit()
	assert.Equal(t, 0, g.Pending())
	assert.Equal(t, 3, g.Len())

	require.NoError(t, g.Apply(transactions.Transaction{ID: 1, Type: transactions.Delete}))
	g.Clear()
	assert.Equal(t, 0, g.Pending())
}

func TestTreeGridTransactions(t *testing.T) {
	s := newTestServer(t)
	g, err := s.Grid("staff")
	require.NoError(t, err)

	require.NoError(t, g.Apply(transactions.Transaction{ID: 2, Type: transactions.Update, NewValue: records.Row{"Name": "Bobby"}, Path: []any{1, 2}}))
	require.NoError(t, g.Apply(transactions.Transaction{ID: 5, Type: transactions.Add, NewValue: records.Row{"ID": 5, "Name": "Dee"}, Path: []any{3}}))

	roots := g.Roots(nil)
	assert.Equal(t, "Bobby", roots[0].Children[0].Data["Name"])
	require.Len(t, roots[1].Children, 1)
	assert.Equal(t, "Dee", roots[1].Children[0].Data["Name"])
}

func TestHandleRequests(t *testing.T) {
	s := newTestServer(t)
	headers := map[string]string{}
	set := func(k, v string) { headers[k] = v }

	var buf bytes.Buffer
	require.Nil(t, s.HandleGridRequest(&buf, mustURL(t, "/grid?grid=orders&grouped=region"), set))
	assert.Contains(t, buf.String(), "region: EU (2)")
	assert.Equal(t, "text/html; charset=utf-8", headers["Content-Type"])

	buf.Reset()
	require.NoError(t, s.HandleLandingRequest(&buf, set))
	assert.Contains(t, buf.String(), "staff")
	assert.Contains(t, buf.String(), "tree, 2 records")
}
