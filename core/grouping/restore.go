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

package grouping

import (
	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/records"
)

// ExpansionState records an explicit expand or collapse of the group found at
// Hierarchy. An entry without a hierarchy applies to the first-level groups.
type ExpansionState struct {
	Hierarchy hierarchy.Path
	Expanded  bool
}

// overlay resolves expansion states by serialized path. When several entries
// match a group the first one wins.
type overlay struct {
	exact    map[string]int
	wildcard int
	states   []ExpansionState
}

func newOverlay(states []ExpansionState) *overlay {
	o := &overlay{exact: make(map[string]int, len(states)), wildcard: -1, states: states}
	for i, s := range states {
		if len(s.Hierarchy) == 0 {
			if o.wildcard < 0 {
				o.wildcard = i
			}
			continue
		}
		key := s.Hierarchy.String()
		if _, ok := o.exact[key]; !ok {
			o.exact[key] = i
		}
	}
	return o
}

// lookup returns the index of the state applying to g, or -1.
func (o *overlay) lookup(g *GroupByRecord) int {
	idx, ok := o.exact[g.Hierarchy().String()]
	if !ok {
		idx = -1
	}
	if g.GroupParent == nil && o.wildcard >= 0 && (idx < 0 || o.wildcard < idx) {
		idx = o.wildcard
	}
	return idx
}

func (o *overlay) expanded(g *GroupByRecord, defaultExpanded bool) bool {
	if idx := o.lookup(g); idx >= 0 {
		return o.states[idx].Expanded
	}
	return defaultExpanded
}

type segment struct {
	group *GroupByRecord
	rows  []records.Record
}

// RestoreGroups flattens a grouping for display. Starting at the leaf level
// and moving up, every group contributes its header followed by its members
// only when it resolves to expanded; a collapsed group contributes just its
// header. Groups are matched against expansion by hierarchy path, so the
// state follows a group across reorders and refreshes of the data.
func RestoreGroups(res Result, expansion []ExpansionState, defaultExpanded bool) []records.Record {
	if len(res.Metadata) == 0 {
		return res.Data
	}
	o := newOverlay(expansion)

	segments := make([]segment, 0, len(res.Metadata))
	for _, g := range res.Metadata {
		if len(g.Records) == 0 {
			continue
		}
		rows := []records.Record{g}
		if o.expanded(g, defaultExpanded) {
			rows = append(rows, g.Records...)
		}
		segments = append(segments, segment{group: g, rows: rows})
	}

	for level := res.Metadata[0].Level - 1; level >= 1; level-- {
		merged := make([]segment, 0, len(segments))
		for i := 0; i < len(segments); {
			parent := segments[i].group.GroupParent
			rows := []records.Record{parent}
			open := o.expanded(parent, defaultExpanded)
			j := i
			for ; j < len(segments) && segments[j].group.GroupParent == parent; j++ {
				if open {
					rows = append(rows, segments[j].rows...)
				}
			}
			merged = append(merged, segment{group: parent, rows: rows})
			i = j
		}
		segments = merged
	}

	var out []records.Record
	for _, s := range segments {
		out = append(out, s.rows...)
	}
	if out == nil {
		out = []records.Record{}
	}
	return out
}
