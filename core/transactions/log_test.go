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

package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridflow/core/records"
)

func TestLogValidation(t *testing.T) {
	row := records.Row{"id": 1, "name": "a"}

	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 2, Type: Add, NewValue: records.Row{"id": 2}}, nil))
	assert.ErrorIs(t, l.Add(Transaction{ID: 2, Type: Add, NewValue: records.Row{"id": 2}}, nil), ErrDuplicateID)

	assert.ErrorIs(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "b"}}, nil), ErrMissingRecordRef)
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Delete}, row))
	assert.ErrorIs(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "b"}}, row), ErrRecordDeleted)
	assert.ErrorIs(t, l.Add(Transaction{ID: 1, Type: Delete}, row), ErrRecordDeleted)

	assert.ErrorIs(t, l.Add(Transaction{ID: 3, Type: Type(9)}, nil), ErrUnknownType)
	assert.Len(t, l.Transactions(), 2, "rejected transactions are not recorded")
}

func TestLogAggregatesUpdates(t *testing.T) {
	row := records.Row{"id": 1, "name": "a", "qty": 1}
	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "b"}}, row))
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"qty": 2}}, nil))

	s, ok := l.State(1)
	require.True(t, ok)
	assert.Equal(t, Update, s.Type)
	assert.Equal(t, records.Row{"name": "b", "qty": 2}, s.Value)
	assert.Len(t, l.TransactionsFor(1), 2)

	changes := l.AggregatedChanges(true)
	require.Len(t, changes, 1)
	assert.Equal(t, records.Row{"id": 1, "name": "b", "qty": 2}, changes[0].NewValue)
	assert.Equal(t, records.Row{"name": "b", "qty": 2}, l.AggregatedChanges(false)[0].NewValue)
}

func TestLogDropsNoOpUpdate(t *testing.T) {
	row := records.Row{"id": 1, "name": "a"}
	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "b"}}, row))
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "a"}}, nil))
	assert.Equal(t, 0, l.Len())
	assert.Len(t, l.Transactions(), 2)
}

func TestLogDeleteOfAddDropsState(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 5, Type: Add, NewValue: records.Row{"id": 5}}, nil))
	require.NoError(t, l.Add(Transaction{ID: 5, Type: Update, NewValue: records.Row{"name": "x"}}, nil))

	s, _ := l.State(5)
	assert.Equal(t, Add, s.Type)
	assert.Equal(t, records.Row{"id": 5, "name": "x"}, s.Value)

	require.NoError(t, l.Add(Transaction{ID: 5, Type: Delete}, nil))
	_, ok := l.State(5)
	assert.False(t, ok)
}

func TestLogStateOrder(t *testing.T) {
	l := NewLog()
	for _, id := range []int{3, 1, 2} {
		require.NoError(t, l.Add(Transaction{ID: id, Type: Add, NewValue: records.Row{"id": id}}, nil))
	}
	var ids []any
	for _, tx := range l.AggregatedChanges(false) {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []any{3, 1, 2}, ids)

	// A dropped state re-added moves to the end; updates keep the position.
	require.NoError(t, l.Add(Transaction{ID: 3, Type: Delete}, nil))
	require.NoError(t, l.Add(Transaction{ID: 3, Type: Add, NewValue: records.Row{"id": 3}}, nil))
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "x"}}, nil))
	ids = nil
	for _, tx := range l.AggregatedChanges(false) {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []any{1, 2, 3}, ids)
	assert.Equal(t, 3, l.Len())

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Transactions())
}

func TestLogDoesNotRetainInput(t *testing.T) {
	value := records.Row{"id": 1}
	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Add, NewValue: value}, nil))
	value["id"] = 99

	s, _ := l.State(1)
	assert.Equal(t, 1, s.Value["id"])
	s.Value["id"] = 7
	again, _ := l.State(1)
	assert.Equal(t, 1, again.Value["id"])
}

func TestLogEffectiveFlat(t *testing.T) {
	data := []records.Row{
		{"id": 1, "name": "a"},
		{"id": 2, "name": "b"},
		{"id": 3, "name": "c"},
	}
	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 1, Type: Update, NewValue: records.Row{"name": "A"}}, data[0]))
	require.NoError(t, l.Add(Transaction{ID: 2, Type: Delete}, data[1]))
	require.NoError(t, l.Add(Transaction{ID: 4, Type: Add, NewValue: records.Row{"id": 4, "name": "d"}}, nil))

	got := l.Effective(data, Config{PrimaryKey: "id"})
	assert.Equal(t, []records.Row{
		{"id": 1, "name": "A"},
		{"id": 3, "name": "c"},
		{"id": 4, "name": "d"},
	}, got)
	assert.Equal(t, "a", data[0]["name"])

	assert.Equal(t, data, NewLog().Effective(data, Config{PrimaryKey: "id"}))
}

func TestLogEffectiveHierarchical(t *testing.T) {
	data := employees()
	monica := child(t, data[0], "Employees", 1)

	l := NewLog()
	require.NoError(t, l.Add(Transaction{ID: 317, Type: Update, NewValue: records.Row{"Age": 32}, Path: []any{147, 317}}, monica))
	require.NoError(t, l.Add(Transaction{ID: 475, Type: Delete, Path: []any{147}}, child(t, data[0], "Employees", 0)))
	require.NoError(t, l.Add(Transaction{ID: 1000, Type: Add, NewValue: records.Row{"ID": 1000, "Name": "Nina"}, Path: []any{147, 317}}, nil))

	got := l.Effective(data, Config{PrimaryKey: "ID", ChildDataKey: "Employees"})
	kids, ok := got[0].Children("Employees")
	require.True(t, ok)
	require.Len(t, kids, 1)
	assert.Equal(t, 32, kids[0]["Age"])
	grand, _ := kids[0].Children("Employees")
	require.Len(t, grand, 2)
	assert.Equal(t, "Roland", grand[0]["Name"], "children survive a field-level update")
	assert.Equal(t, "Nina", grand[1]["Name"])
}
