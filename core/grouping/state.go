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
	"slices"

	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/sorting"
)

// State is the grid's grouping configuration. Expansion only holds the
// groups whose state differs from DefaultExpanded.
type State struct {
	Expressions     []sorting.Expression
	Expansion       []ExpansionState
	DefaultExpanded bool
}

// Group groups data by the state's expressions.
func (s *State) Group(data []records.Record) Result {
	return GroupBy(data, s.Expressions)
}

// Restore flattens res using the state's expansion overlay.
func (s *State) Restore(res Result) []records.Record {
	if len(s.Expressions) == 0 {
		return res.Data
	}
	return RestoreGroups(res, s.Expansion, s.DefaultExpanded)
}

// IsExpanded resolves the expansion of g. Use Expander to resolve many groups
// against the same state.
func (s *State) IsExpanded(g *GroupByRecord) bool {
	return s.Expander().IsExpanded(g)
}

// Expander resolves group expansion against a snapshot of a State.
type Expander struct {
	overlay         *overlay
	defaultExpanded bool
}

// Expander indexes the current expansion states once. Later changes to s are
// not seen by the returned Expander.
func (s *State) Expander() *Expander {
	return &Expander{overlay: newOverlay(s.Expansion), defaultExpanded: s.DefaultExpanded}
}

// IsExpanded resolves the expansion of g.
func (e *Expander) IsExpanded(g *GroupByRecord) bool {
	return e.overlay.expanded(g, e.defaultExpanded)
}

// Toggle flips the expansion of g. An existing entry is flipped, otherwise an
// entry with the non-default state is recorded for g's hierarchy. The
// Expansion slice is replaced, never written through.
func (s *State) Toggle(g *GroupByRecord) {
	states := slices.Clone(s.Expansion)
	if idx := newOverlay(states).lookup(g); idx >= 0 {
		states[idx].Expanded = !states[idx].Expanded
	} else {
		states = append(states, ExpansionState{Hierarchy: g.Hierarchy(), Expanded: !s.DefaultExpanded})
	}
	s.Expansion = states
}

// SetExpanded records an explicit state for the group at path.
func (s *State) SetExpanded(path hierarchy.Path, expanded bool) {
	states := slices.DeleteFunc(slices.Clone(s.Expansion), func(e ExpansionState) bool {
		return hierarchy.IsHierarchyMatch(e.Hierarchy, path)
	})
	if expanded != s.DefaultExpanded {
		states = append(states, ExpansionState{Hierarchy: path.Clone(), Expanded: expanded})
	}
	s.Expansion = states
}

// ToggleAll clears every explicit state and flips the default.
func (s *State) ToggleAll() {
	s.Expansion = nil
	s.DefaultExpanded = !s.DefaultExpanded
}
