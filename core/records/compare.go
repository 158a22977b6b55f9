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

package records

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Values of different kinds are ordered by rank before they are compared.
const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
	rankTime
	rankDuration
	rankOther
)

// Compare orders two field values.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
// Null sorts before any defined value, numbers of any Go numeric type compare
// numerically and strings compare by code point unless caseInsensitive is set.
func Compare(a, b any, caseInsensitive bool) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return compareInts(int64(ra), int64(rb))
	}

	switch ra {
	case rankNil:
		return 0
	case rankBool:
		return compareBools(a.(bool), b.(bool))
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		sa, sb := toString(a), toString(b)
		if caseInsensitive {
			fold := cases.Fold()
			sa, sb = fold.String(sa), fold.String(sb)
		}
		return strings.Compare(sa, sb)
	case rankTime:
		return compareTimes(a.(time.Time), b.(time.Time))
	case rankDuration:
		return compareDurations(a.(time.Duration), b.(time.Duration))
	default:
		// Fallback: use string representation
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case string:
		return rankString
	case time.Time:
		return rankTime
	case time.Duration:
		return rankDuration
	}
	if _, ok := asInt(v); ok {
		return rankNumber
	}
	if _, ok := asFloat(v); ok {
		return rankNumber
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rankString
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return rankNil
	}
	return rankOther
}

// Folder case-folds string values ahead of comparison so that a sort folds
// each value once. A Folder is not safe for concurrent use.
type Folder struct {
	caser cases.Caser
}

// NewFolder returns a Folder.
func NewFolder() *Folder {
	return &Folder{caser: cases.Fold()}
}

// Value returns the folded form of a string value and any other value as it
// is. Compare(f.Value(a), f.Value(b), false) orders like Compare(a, b, true).
func (f *Folder) Value(v any) any {
	if rank(v) != rankString {
		return v
	}
	return f.caser.String(toString(v))
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return reflect.ValueOf(v).String()
}

// asInt reports the value of v when it is an integer kind that fits int64.
func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if _, isDuration := v.(time.Duration); isDuration {
			return 0, false
		}
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// compareNumbers compares integers exactly and falls back to float64 when
// either side is a float.
func compareNumbers(a, b any) int {
	ia, aok := asInt(a)
	ib, bok := asInt(b)
	if aok && bok {
		return compareInts(ia, ib)
	}
	fa, _ := asFloat(a)
	fb, _ := asFloat(b)
	return compareFloat64s(fa, fb)
}

func compareInts(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareTimes compares two time.Time values
func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

// compareDurations compares two time.Duration values
func compareDurations(a, b time.Duration) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareBools compares two bool values (false < true)
func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// compareFloat64s compares two float64 values with NaN handling.
// NaN values are considered greater than all other values (sort to end).
func compareFloat64s(a, b float64) int {
	aNaN := math.IsNaN(a)
	bNaN := math.IsNaN(b)

	if aNaN && bNaN {
		return 0
	}
	if aNaN {
		return 1
	}
	if bNaN {
		return -1
	}

	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// KeyEqual reports whether two record keys identify the same record.
// Numbers are equal across Go numeric types and times are equal when they
// name the same instant. Maps, slices and pointers are equal only when they
// are the same reference; any other comparable values use ==.
func KeyEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if rank(a) == rankNumber && rank(b) == rankNumber {
		return compareNumbers(a, b) == 0 && !isNaN(a)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if va.Kind() == reflect.Slice && va.Len() != vb.Len() {
			return false
		}
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	return false
}

func isNaN(v any) bool {
	f, ok := asFloat(v)
	return ok && math.IsNaN(f)
}

// CanonicalString renders v so that values which are KeyEqual render the same
// way. It is used to build map keys for hierarchy paths.
func CanonicalString(v any) string {
	switch rank(v) {
	case rankNil:
		return "nil"
	case rankBool:
		return "b:" + strconv.FormatBool(v.(bool))
	case rankNumber:
		if i, ok := asInt(v); ok {
			return "n:" + strconv.FormatInt(i, 10)
		}
		f, _ := asFloat(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return "n:" + strconv.FormatInt(int64(f), 10)
		}
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	case rankString:
		return "s:" + strconv.Quote(toString(v))
	case rankTime:
		return "t:" + v.(time.Time).UTC().Format(time.RFC3339Nano)
	case rankDuration:
		return "d:" + v.(time.Duration).String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Func, reflect.Chan:
		return fmt.Sprintf("p:%T:%x", v, rv.Pointer())
	}
	return fmt.Sprintf("v:%T:%v", v, v)
}
