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

// Package transactions overlays pending add, update and delete operations on
// committed grid data without changing either.
package transactions

import (
	"errors"
	"slices"

	"github.com/google/gridflow/core/records"
)

// Type of a pending change.
type Type int

const (
	Add Type = iota + 1
	Update
	Delete
)

func (t Type) String() string {
	switch t {
	case Add:
		return "add"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Transaction is one pending change. ID is the primary key value of the
// record, or the record itself when no primary key is configured.
//
// Path is set for hierarchical data only: the primary keys of the ancestors
// from the root down. Callers may include the record's own key as the last
// element; it is ignored. A nil Path on a hierarchical Add means a new root row.
type Transaction struct {
	ID       any
	Type     Type
	NewValue records.Row
	Path     []any
}

// Clone returns a copy of t that shares no row or path storage with it.
func (t Transaction) Clone() Transaction {
	c := t
	c.NewValue = t.NewValue.Clone()
	if t.Path != nil {
		c.Path = slices.Clone(t.Path)
	}
	return c
}

var (
	// ErrDuplicateID is returned when adding a record whose id already has pending changes.
	ErrDuplicateID = errors.New("record id already has pending changes")

	// ErrRecordDeleted is returned when updating or deleting a record that is pending deletion.
	ErrRecordDeleted = errors.New("record is pending deletion")

	// ErrMissingRecordRef is returned when the first change to an existing record comes without the record.
	ErrMissingRecordRef = errors.New("record reference required")

	// ErrUnknownType is returned for transactions with an invalid type.
	ErrUnknownType = errors.New("unknown transaction type")
)
