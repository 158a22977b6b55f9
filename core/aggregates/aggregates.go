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

// Package aggregates computes group summaries. States are built for the leaf
// groups and combined up the grouping hierarchy, so every record is read once.
package aggregates

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/gridflow/core/grouping"
	"github.com/google/gridflow/core/records"
)

// Type is a summary operation.
type Type int

const (
	Count Type = iota
	Sum
	Avg
	Min
	Max
)

var typeNames = []string{"count", "sum", "avg", "min", "max"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType maps a name such as "sum" to its Type.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if strings.EqualFold(n, s) {
			return Type(i), nil
		}
	}
	return Count, fmt.Errorf("unknown aggregate %q", s)
}

// Spec selects one summary of one field.
type Spec struct {
	Field string
	Type  Type
}

func (s Spec) String() string { return s.Field + ":" + s.Type.String() }

// NumericState stores intermediate state for numeric aggregates. Count also
// includes non-null values that are not numbers.
type NumericState struct {
	Count   int64 // Number of non-null values
	Numbers int64 // Number of numeric values
	Sum     float64
	Min     float64
	Max     float64
}

// NewNumericState creates a new empty state.
func NewNumericState() *NumericState {
	return &NumericState{Min: math.MaxFloat64, Max: -math.MaxFloat64}
}

// Add adds a single field value. Nulls are ignored.
func (s *NumericState) Add(v any) {
	if v == nil {
		return
	}
	s.Count++
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return
	}
	s.Numbers++
	s.Sum += f
	s.Min = min(s.Min, f)
	s.Max = max(s.Max, f)
}

// Combine merges other into s.
func (s *NumericState) Combine(other *NumericState) {
	if other == nil || other.Count == 0 {
		return
	}
	s.Count += other.Count
	s.Numbers += other.Numbers
	s.Sum += other.Sum
	s.Min = min(s.Min, other.Min)
	s.Max = max(s.Max, other.Max)
}

// Avg returns the mean of the numeric values.
func (s *NumericState) Avg() float64 {
	if s.Numbers == 0 {
		return 0
	}
	return s.Sum / float64(s.Numbers)
}

// Value returns the result of t, or false when no value contributes to it.
func (s *NumericState) Value(t Type) (float64, bool) {
	if t == Count {
		return float64(s.Count), true
	}
	if s.Numbers == 0 {
		return 0, false
	}
	switch t {
	case Sum:
		return s.Sum, true
	case Avg:
		return s.Avg(), true
	case Min:
		return s.Min, true
	case Max:
		return s.Max, true
	}
	return 0, false
}

// Format returns a formatted string for t.
func (s *NumericState) Format(t Type) string {
	v, ok := s.Value(t)
	if !ok {
		return "-"
	}
	return formatNumber(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Summary is one formatted summary of a group.
type Summary struct {
	Spec  Spec
	Value string
}

// Summaries maps every group of a grouping result to its summaries.
type Summaries map[*grouping.GroupByRecord][]Summary

// Summarize computes specs for every group of res. Leaf groups read their
// records; parent groups combine the states of their subgroups.
func Summarize(res grouping.Result, specs []Spec) Summaries {
	out := make(Summaries)
	if len(specs) == 0 {
		return out
	}
	states := make(map[*grouping.GroupByRecord][]*NumericState)
	var combine func(g *grouping.GroupByRecord) []*NumericState
	combine = func(g *grouping.GroupByRecord) []*NumericState {
		if st, ok := states[g]; ok {
			return st
		}
		st := make([]*NumericState, len(specs))
		for i := range st {
			st[i] = NewNumericState()
		}
		if len(g.Groups) == 0 {
			for _, rec := range g.Records {
				for i, sp := range specs {
					st[i].Add(records.FieldValue(rec, sp.Field))
				}
			}
		} else {
			for _, sub := range g.Groups {
				for i, s := range combine(sub) {
					st[i].Combine(s)
				}
			}
		}
		states[g] = st
		return st
	}

	for _, leaf := range res.Metadata {
		for g := leaf; g != nil; g = g.GroupParent {
			combine(g)
		}
	}
	for g, st := range states {
		sums := make([]Summary, len(specs))
		for i, sp := range specs {
			sums[i] = Summary{Spec: sp, Value: st[i].Format(sp.Type)}
		}
		out[g] = sums
	}
	return out
}
