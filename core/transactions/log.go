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
	"fmt"
	"reflect"
	"slices"

	"github.com/google/gridflow/core/records"
)

// State aggregates every pending change made to one record.
type State struct {
	ID any
	// RecordRef is the committed record the changes apply to; nil for adds.
	RecordRef records.Row
	// Value holds the added record, or the changed fields of an update.
	Value records.Row
	Type  Type
	Path  []any
}

func (s *State) clone() *State {
	c := *s
	c.Value = s.Value.Clone()
	if s.Path != nil {
		c.Path = slices.Clone(s.Path)
	}
	return &c
}

// Config tells the log how the data it overlays is shaped.
type Config struct {
	PrimaryKey string
	// ChildDataKey selects hierarchical merging when set.
	ChildDataKey string
}

// Log is an append-only record of pending transactions. Alongside the raw
// list it keeps one aggregated State per record id, in the order records were
// first changed. The zero value is not usable; call NewLog.
type Log struct {
	transactions []Transaction
	// order lists the keys of states by first change; a record whose state
	// is dropped and later changed again moves to the end.
	order  []string
	states map[string]*State
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{states: make(map[string]*State)}
}

func (l *Log) track(key string, s *State) {
	l.order = append(l.order, key)
	l.states[key] = s
}

// drop forgets the aggregated state of key. The raw transactions are kept.
func (l *Log) drop(key string) {
	delete(l.states, key)
	l.order = slices.DeleteFunc(l.order, func(k string) bool { return k == key })
}

// Add validates tx against the pending state of its record and appends it.
// recordRef is the committed record tx changes and is required for the first
// update or delete of a record. Neither tx nor recordRef is retained.
func (l *Log) Add(tx Transaction, recordRef records.Row) error {
	if tx.Type != Add && tx.Type != Update && tx.Type != Delete {
		return fmt.Errorf("%w: %d", ErrUnknownType, tx.Type)
	}
	key := records.CanonicalString(tx.ID)
	state, exists := l.states[key]

	switch tx.Type {
	case Add:
		if exists {
			return fmt.Errorf("%w: %v", ErrDuplicateID, tx.ID)
		}
	case Update, Delete:
		if exists && state.Type == Delete {
			return fmt.Errorf("%w: %v", ErrRecordDeleted, tx.ID)
		}
		if !exists && recordRef == nil {
			return fmt.Errorf("%w: %s of %v", ErrMissingRecordRef, tx.Type, tx.ID)
		}
	}

	tx = tx.Clone()
	l.transactions = append(l.transactions, tx)
	l.updateState(key, state, exists, tx, recordRef)
	return nil
}

func (l *Log) updateState(key string, state *State, exists bool, tx Transaction, recordRef records.Row) {
	if !exists {
		state = &State{
			ID:        tx.ID,
			RecordRef: recordRef,
			Value:     tx.NewValue.Clone(),
			Type:      tx.Type,
			Path:      tx.Path,
		}
		l.track(key, state)
	} else {
		switch tx.Type {
		case Update:
			state.Value = state.Value.Merge(tx.NewValue)
		case Delete:
			if state.Type == Add {
				l.drop(key)
				return
			}
			state.Type = Delete
		}
		state.Path = tx.Path
	}

	if state.Type == Update && unchanged(state.RecordRef, state.Value) {
		l.drop(key)
	}
}

// unchanged reports whether every field of value already holds in ref.
func unchanged(ref, value records.Row) bool {
	if ref == nil {
		return false
	}
	for k, v := range value {
		old, ok := ref[k]
		if !ok || !reflect.DeepEqual(old, v) {
			return false
		}
	}
	return true
}

// Transactions returns a copy of every transaction in the order added.
func (l *Log) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	for i, tx := range l.transactions {
		out[i] = tx.Clone()
	}
	return out
}

// TransactionsFor returns the transactions added for id.
func (l *Log) TransactionsFor(id any) []Transaction {
	var out []Transaction
	for _, tx := range l.transactions {
		if records.KeyEqual(tx.ID, id) {
			out = append(out, tx.Clone())
		}
	}
	return out
}

// State returns a copy of the aggregated state of id.
func (l *Log) State(id any) (*State, bool) {
	s, ok := l.states[records.CanonicalString(id)]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Len returns the number of records with pending changes.
func (l *Log) Len() int {
	return len(l.order)
}

// Clear drops every transaction and state.
func (l *Log) Clear() {
	l.transactions = nil
	l.order = nil
	l.states = make(map[string]*State)
}

// AggregatedChanges returns one transaction per changed record. With
// mergeChanges set, update values are merged over their committed record.
// Child collections are stripped from the values.
func (l *Log) AggregatedChanges(mergeChanges bool) []Transaction {
	return l.changes(mergeChanges, true)
}

func (l *Log) changes(mergeChanges, stripChildren bool) []Transaction {
	out := make([]Transaction, 0, len(l.order))
	for _, key := range l.order {
		s := l.states[key]
		value := s.Value.Clone()
		if mergeChanges && s.RecordRef != nil {
			value = s.RecordRef.Merge(s.Value)
		}
		if stripChildren {
			value = stripCollections(value)
		}
		tx := Transaction{ID: s.ID, Type: s.Type, NewValue: value}
		if s.Path != nil {
			tx.Path = slices.Clone(s.Path)
		}
		out = append(out, tx)
	}
	return out
}

func stripCollections(row records.Row) records.Row {
	for k, v := range row {
		if v == nil {
			continue
		}
		if kind := reflect.TypeOf(v).Kind(); kind == reflect.Slice || kind == reflect.Array {
			delete(row, k)
		}
	}
	return row
}

// Effective returns data with every pending change applied and pending
// deletes removed. Flat data gets updates as whole records merged over the
// committed record; hierarchical data (cfg.ChildDataKey set) gets field-level
// merges along each transaction's path.
func (l *Log) Effective(data []records.Row, cfg Config) []records.Row {
	if len(l.order) == 0 {
		return data
	}
	if cfg.ChildDataKey != "" {
		changes := l.changes(false, true)
		merged := MergeHierarchical(data, changes, cfg.ChildDataKey, cfg.PrimaryKey)
		return ExcludeDeleted(merged, changes, cfg.PrimaryKey, cfg.ChildDataKey)
	}
	changes := l.changes(true, false)
	merged := Merge(data, changes, cfg.PrimaryKey)
	return ExcludeDeleted(merged, changes, cfg.PrimaryKey, "")
}
