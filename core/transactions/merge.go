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
	"slices"

	"github.com/google/gridflow/core/records"
)

// ChildrenKey is the field the flat merge descends into when a record nests
// other records.
const ChildrenKey = "children"

// Merge returns data with the pending changes of txs applied. Every record is
// matched against the first transaction carrying its key; when that is an
// update the record is replaced by the new value. Records nested under
// ChildrenKey are matched the same way. The new values of add transactions
// are appended in transaction order.
//
// Deletes are not applied here: use ExcludeDeleted.
func Merge(data []records.Row, txs []Transaction, primaryKey string) []records.Row {
	out := mergeUpdates(data, txs, primaryKey)
	for _, tx := range txs {
		if tx.Type == Add {
			out = append(out, tx.NewValue)
		}
	}
	return out
}

func mergeUpdates(data []records.Row, txs []Transaction, primaryKey string) []records.Row {
	out := make([]records.Row, len(data), len(data)+len(txs))
	for i, item := range data {
		key := records.KeyOf(item, primaryKey)
		merged := item
		if kids, ok := item.Children(ChildrenKey); ok {
			merged = item.Clone()
			merged[ChildrenKey] = mergeUpdates(kids, txs, primaryKey)
		}
		if tx := find(txs, key); tx != nil && tx.Type == Update {
			merged = tx.NewValue
		}
		out[i] = merged
	}
	return out
}

func find(txs []Transaction, key any) *Transaction {
	for i := range txs {
		if records.KeyEqual(txs[i].ID, key) {
			return &txs[i]
		}
	}
	return nil
}

// MergeHierarchical applies txs to nested data where child rows live under
// childDataKey. Transactions are applied in order:
//
//   - the parent row is found by walking Path level by level using primaryKey;
//     when a level cannot be resolved the transaction is skipped, as its
//     parent was deleted
//   - an add appends NewValue to the parent's children, creating the child
//     collection when needed, unless a child with the same id exists
//   - an update replaces the child with a field-level merge of the existing
//     child and NewValue
//   - an add without a path appends NewValue to the root collection
//
// An empty path addresses the root collection itself. Deletes are not
// applied here: use ExcludeDeleted. Rows along a changed path are cloned, so
// data and txs are left as they were.
func MergeHierarchical(data []records.Row, txs []Transaction, childDataKey, primaryKey string) []records.Row {
	m := &hierarchicalMerger{childDataKey: childDataKey, primaryKey: primaryKey}
	out := slices.Clone(data)
	if out == nil {
		out = []records.Row{}
	}
	for _, tx := range txs {
		if tx.Path == nil {
			switch tx.Type {
			case Add:
				out = append(out, tx.NewValue)
			case Update:
				out, _ = m.apply(out, nil, tx)
			}
			continue
		}
		path := tx.Path
		if n := len(path); n > 0 && records.KeyEqual(path[n-1], tx.ID) {
			path = path[:n-1]
		}
		out, _ = m.apply(out, path, tx)
	}
	return out
}

type hierarchicalMerger struct {
	childDataKey string
	primaryKey   string
}

// apply descends coll along path and applies tx to the children found at its
// end. It returns the rebuilt collection, or coll and false when the path
// does not resolve.
func (m *hierarchicalMerger) apply(coll []records.Row, path []any, tx Transaction) ([]records.Row, bool) {
	if len(path) == 0 {
		return m.applyAt(coll, tx), true
	}
	idx := m.indexOf(coll, path[0])
	if idx < 0 {
		return coll, false
	}
	parent := coll[idx]
	kids, _ := parent.Children(m.childDataKey)
	newKids, ok := m.apply(kids, path[1:], tx)
	if !ok {
		return coll, false
	}
	out := slices.Clone(coll)
	p := parent.Clone()
	p[m.childDataKey] = newKids
	out[idx] = p
	return out, true
}

func (m *hierarchicalMerger) applyAt(kids []records.Row, tx Transaction) []records.Row {
	switch tx.Type {
	case Add:
		if m.indexOf(kids, tx.ID) >= 0 {
			return kids
		}
		out := make([]records.Row, len(kids), len(kids)+1)
		copy(out, kids)
		return append(out, tx.NewValue)
	case Update:
		idx := m.indexOf(kids, tx.ID)
		if idx < 0 {
			return kids
		}
		out := slices.Clone(kids)
		out[idx] = kids[idx].Merge(tx.NewValue)
		return out
	}
	return kids
}

func (m *hierarchicalMerger) indexOf(coll []records.Row, key any) int {
	return slices.IndexFunc(coll, func(r records.Row) bool {
		return records.KeyEqual(records.KeyOf(r, m.primaryKey), key)
	})
}

// ExcludeDeleted returns data without the rows that have a pending delete in
// txs. When childDataKey is set, deleted rows are removed at every level
// together with their descendants. Rows whose subtree changed are cloned.
func ExcludeDeleted(data []records.Row, txs []Transaction, primaryKey, childDataKey string) []records.Row {
	deleted := make(map[string]bool)
	for _, tx := range txs {
		if tx.Type == Delete {
			deleted[records.CanonicalString(tx.ID)] = true
		}
	}
	if len(deleted) == 0 {
		return data
	}
	out, _ := excludeRows(data, deleted, primaryKey, childDataKey)
	return out
}

func excludeRows(rows []records.Row, deleted map[string]bool, primaryKey, childDataKey string) ([]records.Row, bool) {
	out := make([]records.Row, 0, len(rows))
	changed := false
	for _, row := range rows {
		if deleted[records.CanonicalString(records.KeyOf(row, primaryKey))] {
			changed = true
			continue
		}
		if childDataKey != "" {
			if kids, ok := row.Children(childDataKey); ok {
				if kept, kidsChanged := excludeRows(kids, deleted, primaryKey, childDataKey); kidsChanged {
					row = row.Clone()
					row[childDataKey] = kept
					changed = true
				}
			}
		}
		out = append(out, row)
	}
	if !changed {
		return rows, false
	}
	return out, true
}
