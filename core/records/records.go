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

// Package records defines the opaque record model shared by every stage of
// the grid pipeline, together with the value ordering and identity rules the
// stages agree on.
package records

// Record is an application row. The pipeline never looks at a record except
// through Get; a field that is not present reads as null.
type Record interface {
	Get(field string) (any, bool)
}

// Row is the map-backed Record used by the transaction merger and the demo.
type Row map[string]any

// Get returns the value stored under field.
func (r Row) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns a shallow copy of the row. Nested slices are shared.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Merge returns a copy of r where every field present in other overrides the
// field of r. r itself is left untouched.
func (r Row) Merge(other Row) Row {
	c := r.Clone()
	if c == nil {
		c = make(Row, len(other))
	}
	for k, v := range other {
		c[k] = v
	}
	return c
}

// Children returns the rows held under key. It accepts the shapes a decoded
// or hand-built row commonly carries: []Row, []map[string]any and []any of
// rows. The second result reports whether key holds a child collection at all.
func (r Row) Children(key string) ([]Row, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return AsRows(v)
}

// AsRows converts a child collection value to []Row. Elements that are not
// rows are skipped.
func AsRows(v any) ([]Row, bool) {
	switch c := v.(type) {
	case []Row:
		return c, true
	case []map[string]any:
		rows := make([]Row, len(c))
		for i, m := range c {
			rows[i] = Row(m)
		}
		return rows, true
	case []any:
		rows := make([]Row, 0, len(c))
		for _, e := range c {
			switch m := e.(type) {
			case Row:
				rows = append(rows, m)
			case map[string]any:
				rows = append(rows, Row(m))
			}
		}
		return rows, true
	}
	return nil, false
}

// KeyOf returns the identity of row: the primary key value when primaryKey is
// configured, otherwise the row itself (compared by reference in KeyEqual).
func KeyOf(row Row, primaryKey string) any {
	if primaryKey == "" {
		return row
	}
	return row[primaryKey]
}

// FieldValue reads field from rec, mapping a missing field to nil.
func FieldValue(rec Record, field string) any {
	if rec == nil {
		return nil
	}
	v, ok := rec.Get(field)
	if !ok {
		return nil
	}
	return v
}
