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

// Package hierarchy computes and compares the content-addressed key paths that
// identify a group header or a tree node independently of its position.
package hierarchy

import (
	"strconv"
	"strings"

	"github.com/google/gridflow/core/records"
)

// Key is one level of a hierarchy path.
type Key struct {
	FieldName string
	Value     any
}

// Path lists the keys from the root down to a node.
type Path []Key

// Node is anything that sits in a parent chain: group headers and tree records.
// HierarchyParent must return a nil interface at the root.
type Node interface {
	HierarchyKey() Key
	HierarchyParent() Node
}

// GetHierarchy walks the parent links of node and returns the path in
// root-to-node order. A nil node has an empty path.
func GetHierarchy(node Node) Path {
	var path Path
	for n := node; n != nil; n = n.HierarchyParent() {
		path = append(Path{n.HierarchyKey()}, path...)
	}
	return path
}

// IsHierarchyMatch reports whether both paths have the same length and equal
// keys at every level.
func IsHierarchyMatch(a, b Path) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FieldName != b[i].FieldName || !records.KeyEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// String serializes the path. Paths that match serialize identically, so the
// result can key a sparse map of per-path state.
func (p Path) String() string {
	var sb strings.Builder
	for i, k := range p {
		if i > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(strconv.Quote(k.FieldName))
		sb.WriteByte('=')
		sb.WriteString(records.CanonicalString(k.Value))
	}
	return sb.String()
}

// Clone returns a copy of the path that shares no backing array with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	c := make(Path, len(p))
	copy(c, p)
	return c
}
