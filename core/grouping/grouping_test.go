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
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/gridflow/core/hierarchy"
	"github.com/google/gridflow/core/records"
	"github.com/google/gridflow/core/sorting"
)

func rows(rs ...records.Row) []records.Record {
	out := make([]records.Record, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

// shape renders a display sequence compactly: groups as "[field=value]" and
// records by their id.
func shape(seq []records.Record) string {
	parts := make([]string, 0, len(seq))
	for _, r := range seq {
		if g, ok := r.(*GroupByRecord); ok {
			parts = append(parts, "["+g.Expression.FieldName+"="+records.CanonicalString(g.Value)+"]")
			continue
		}
		parts = append(parts, records.CanonicalString(records.FieldValue(r, "id")))
	}
	return strings.Join(parts, " ")
}

var byDeptTeam = []sorting.Expression{
	{FieldName: "dept", Dir: sorting.Ascending},
	{FieldName: "team", Dir: sorting.Ascending},
}

func staff() []records.Record {
	data := rows(
		records.Row{"id": 1, "dept": "A", "team": "x"},
		records.Row{"id": 2, "dept": "B", "team": "y"},
		records.Row{"id": 3, "dept": "A", "team": "y"},
		records.Row{"id": 4, "dept": "A", "team": "x"},
		records.Row{"id": 5, "dept": "B", "team": "y"},
	)
	return sorting.Sort(data, byDeptTeam)
}

func TestGroupBySingleLevel(t *testing.T) {
	data := rows(
		records.Row{"id": 1, "dept": "A"},
		records.Row{"id": 3, "dept": "A"},
		records.Row{"id": 2, "dept": "B"},
	)
	res := GroupBy(data, []sorting.Expression{{FieldName: "dept", Dir: sorting.Ascending}})

	require.Len(t, res.Metadata, 2)
	assert.Equal(t, "A", res.Metadata[0].Value)
	assert.Equal(t, 2, res.Metadata[0].Length())
	assert.Equal(t, "B", res.Metadata[1].Value)
	assert.Equal(t, 1, res.Metadata[1].Length())
	assert.Equal(t, 1, res.Metadata[0].Level)
	assert.Nil(t, res.Metadata[0].GroupParent)
	assert.Equal(t, `[dept=s:"A"] n:1 n:3 [dept=s:"B"] n:2`, shape(res.Data))
}

func TestGroupByNested(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)

	assert.Equal(t, `[dept=s:"A"] [team=s:"x"] n:1 n:4 [team=s:"y"] n:3 [dept=s:"B"] [team=s:"y"] n:2 n:5`, shape(res.Data))
	require.Len(t, res.Metadata, 3)

	leaf := res.Metadata[1]
	assert.Equal(t, 2, leaf.Level)
	assert.Equal(t, hierarchy.Path{{FieldName: "dept", Value: "A"}, {FieldName: "team", Value: "y"}}, leaf.Hierarchy())
	require.NotNil(t, leaf.GroupParent)
	assert.Len(t, leaf.GroupParent.Groups, 2)
	assert.Equal(t, 3, leaf.GroupParent.Length(), "parent records hold every member")
}

func TestGroupByWithoutExpressions(t *testing.T) {
	data := staff()
	res := GroupBy(data, nil)
	assert.Empty(t, res.Metadata)
	assert.Equal(t, data, res.Data)
	assert.Equal(t, data, RestoreGroups(res, nil, true))
}

func TestGroupByIgnoreCase(t *testing.T) {
	data := rows(
		records.Row{"id": 1, "dept": "a"},
		records.Row{"id": 2, "dept": "A"},
		records.Row{"id": 3, "dept": "b"},
	)
	res := GroupBy(data, []sorting.Expression{{FieldName: "dept", Dir: sorting.Ascending, IgnoreCase: true}})
	require.Len(t, res.Metadata, 2)
	assert.Equal(t, "a", res.Metadata[0].Value, "the first record's value names the group")
}

func TestRestoreRoundTrip(t *testing.T) {
	data := staff()
	res := GroupBy(data, byDeptTeam)
	restored := RestoreGroups(res, nil, true)

	assert.Equal(t, data, Records(restored))
	assert.Len(t, Groups(restored), 5, "2 depts + 3 dept/team combinations")
}

func TestRestoreCollapsed(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)

	collapsedA := []ExpansionState{{Hierarchy: hierarchy.Path{{FieldName: "dept", Value: "A"}}, Expanded: false}}
	assert.Equal(t, `[dept=s:"A"] [dept=s:"B"] [team=s:"y"] n:2 n:5`, shape(RestoreGroups(res, collapsedA, true)))

	collapsedLeaf := []ExpansionState{{Hierarchy: hierarchy.Path{{FieldName: "dept", Value: "A"}, {FieldName: "team", Value: "x"}}}}
	assert.Equal(t, `[dept=s:"A"] [team=s:"x"] [team=s:"y"] n:3 [dept=s:"B"] [team=s:"y"] n:2 n:5`, shape(RestoreGroups(res, collapsedLeaf, true)))

	assert.Equal(t, `[dept=s:"A"] [dept=s:"B"]`, shape(RestoreGroups(res, nil, false)))

	expandB := []ExpansionState{
		{Hierarchy: hierarchy.Path{{FieldName: "dept", Value: "B"}}, Expanded: true},
	}
	assert.Equal(t, `[dept=s:"A"] [dept=s:"B"] [team=s:"y"]`, shape(RestoreGroups(res, expandB, false)))
}

func TestRestoreMatchIsExactNotPrefix(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	states := []ExpansionState{{Hierarchy: hierarchy.Path{{FieldName: "team", Value: "x"}}, Expanded: false}}
	assert.Len(t, Records(RestoreGroups(res, states, true)), 5)
}

func TestRestoreFirstMatchingStateWins(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	path := hierarchy.Path{{FieldName: "dept", Value: "B"}}
	states := []ExpansionState{{Hierarchy: path, Expanded: false}, {Hierarchy: path, Expanded: true}}
	assert.Equal(t, `[dept=s:"A"] [team=s:"x"] n:1 n:4 [team=s:"y"] n:3 [dept=s:"B"]`, shape(RestoreGroups(res, states, true)))
}

func TestRestoreStateWithoutHierarchyAppliesToTopLevel(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	states := []ExpansionState{{Expanded: false}}
	assert.Equal(t, `[dept=s:"A"] [dept=s:"B"]`, shape(RestoreGroups(res, states, true)))
}

func TestExpansionSurvivesReorder(t *testing.T) {
	base := staff()
	shuffled := make([]records.Record, len(base))
	copy(shuffled, base)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	states := []ExpansionState{{Hierarchy: hierarchy.Path{{FieldName: "dept", Value: "B"}, {FieldName: "team", Value: "y"}}}}

	first := RestoreGroups(GroupBy(base, byDeptTeam), states, true)
	second := RestoreGroups(GroupBy(sorting.Sort(shuffled, byDeptTeam), byDeptTeam), states, true)

	assert.Len(t, Groups(second), len(Groups(first)))
	assert.Len(t, Records(second), len(Records(first)))
	for _, seq := range [][]records.Record{first, second} {
		assert.NotContains(t, shape(seq), "n:2")
		assert.NotContains(t, shape(seq), "n:5")
		assert.Contains(t, shape(seq), `[dept=s:"B"] [team=s:"y"]`)
	}
}

func TestStateToggle(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	state := &State{Expressions: byDeptTeam, DefaultExpanded: true}
	a := res.Metadata[0].GroupParent

	assert.True(t, state.IsExpanded(a))
	state.Toggle(a)
	assert.False(t, state.IsExpanded(a))
	require.Len(t, state.Expansion, 1)

	shared := state.Expansion
	state.Toggle(a)
	assert.True(t, state.IsExpanded(a))
	assert.False(t, shared[0].Expanded, "toggle does not write through the old slice")
	assert.Len(t, state.Expansion, 1)

	state.SetExpanded(a.Hierarchy(), true)
	assert.Empty(t, state.Expansion, "default state is not stored")

	state.ToggleAll()
	assert.False(t, state.DefaultExpanded)
	assert.Equal(t, `[dept=s:"A"] [dept=s:"B"]`, shape(state.Restore(state.Group(staff()))))
}

func TestExpanderSnapshot(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	state := &State{Expressions: byDeptTeam, DefaultExpanded: true}
	state.Toggle(res.Metadata[0].GroupParent)

	exp := state.Expander()
	for _, g := range Groups(res.Data) {
		assert.Equal(t, state.IsExpanded(g), exp.IsExpanded(g))
	}
	assert.False(t, exp.IsExpanded(res.Metadata[0].GroupParent))

	b := res.Metadata[len(res.Metadata)-1].GroupParent
	state.ToggleAll()
	assert.True(t, exp.IsExpanded(b), "later changes are not seen")
	assert.False(t, state.Expander().IsExpanded(b))
}

func TestSetExpandedTimeAcrossZones(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	byDay := []sorting.Expression{{FieldName: "day", Dir: sorting.Ascending}}
	data := rows(records.Row{"id": 1, "day": day}, records.Row{"id": 2, "day": day.In(time.FixedZone("CEST", 2*60*60))})
	res := GroupBy(data, byDay)
	require.Len(t, res.Metadata, 1)

	state := &State{Expressions: byDay, DefaultExpanded: true}
	state.Toggle(res.Metadata[0])
	require.Len(t, state.Expansion, 1)

	state.SetExpanded(hierarchy.Path{{FieldName: "day", Value: day.In(time.FixedZone("CEST", 2*60*60))}}, true)
	assert.Empty(t, state.Expansion, "the collapsed entry for the same instant is replaced")
	assert.True(t, state.IsExpanded(res.Metadata[0]))
}

func TestGroupHeaderAsRecord(t *testing.T) {
	res := GroupBy(staff(), byDeptTeam)
	g := res.Metadata[0]
	v, ok := g.Get("team")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = g.Get("dept")
	assert.False(t, ok)
	assert.True(t, IsGroupByRecord(g))
	assert.False(t, IsGroupByRecord(records.Row{}))
}
