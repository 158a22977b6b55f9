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

package filtering

import (
	"fmt"
	"strings"

	"github.com/google/gridflow/core/records"
)

// FieldMatch matches the string form of one field against a pattern.
//
// Pattern syntax: double quotes mean exact match, single quotes mean
// contains, a bare string defaults to exact match. ! negates a term, & joins
// terms, | separates alternatives; & binds tighter than |. There is no
// support for parentheses.
//
// Examples:
//
//	"CLOSED"        - exact match
//	'CLOSED'        - contains match
//	CLOSED|OPEN     - exact match CLOSED or OPEN
//	'a'&!'b'        - contains a but not b
type FieldMatch struct {
	Field   string
	Pattern string
}

// Match implements ExpressionTree. A missing or null field matches as the
// empty string.
func (m FieldMatch) Match(rec records.Record) bool {
	v := records.FieldValue(rec, m.Field)
	s := ""
	if v != nil {
		s = fmt.Sprint(v)
	}
	return MatchString(m.Pattern, s)
}

// MatchString evaluates pattern against value.
func MatchString(pattern string, value string) bool {
	orMatch := false
	for _, or := range strings.Split(pattern, "|") {
		andMatch := true
		for _, and := range strings.Split(or, "&") {
			and = strings.Trim(and, " ")
			not := false
			if strings.HasPrefix(and, "!") {
				not = true
				and = and[1:]
			}
			match := false
			switch {
			case quoted(and, '"'):
				match = value == and[1:len(and)-1]
			case quoted(and, '\''):
				match = strings.Contains(value, and[1:len(and)-1])
			case and != "":
				match = value == and
			}
			if not {
				match = !match
			}
			andMatch = andMatch && match
		}
		orMatch = orMatch || andMatch
	}
	return orMatch
}

func quoted(s string, q byte) bool {
	return len(s) >= 2 && s[0] == q && s[len(s)-1] == q
}

// All matches when every tree matches. An empty All matches everything.
type All []ExpressionTree

// Match implements ExpressionTree.
func (a All) Match(rec records.Record) bool {
	for _, t := range a {
		if !t.Match(rec) {
			return false
		}
	}
	return true
}

// Any matches when at least one tree matches.
type Any []ExpressionTree

// Match implements ExpressionTree.
func (a Any) Match(rec records.Record) bool {
	for _, t := range a {
		if t.Match(rec) {
			return true
		}
	}
	return false
}
