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

// Package paging slices a sequence into fixed-size pages.
package paging

// Error reports why a page could not be produced.
type Error int

const (
	None Error = iota
	BadPageIndex
	BadPageSize
)

func (e Error) String() string {
	switch e {
	case BadPageIndex:
		return "bad page index"
	case BadPageSize:
		return "bad page size"
	}
	return "none"
}

// Metadata is recomputed by every call to Page.
type Metadata struct {
	PageCount   int
	RecordCount int
	Error       Error
}

// State selects a page. Metadata is output only.
type State struct {
	PageIndex int
	PageSize  int
	Metadata  Metadata
}

// PageCount returns the number of pages needed for recordCount records.
func PageCount(recordCount, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	n := recordCount / pageSize
	if recordCount%pageSize != 0 {
		n++
	}
	return n
}

// Page returns the records of the page selected by state and overwrites
// state.Metadata. Invalid input yields an empty page and an error code in the
// metadata; an empty input returns itself without error. A nil state returns
// data unchanged.
func Page[T any](data []T, state *State) []T {
	if state == nil {
		return data
	}
	state.Metadata = Metadata{RecordCount: len(data)}

	if state.PageIndex < 0 {
		state.Metadata.Error = BadPageIndex
		return []T{}
	}
	if state.PageSize <= 0 {
		state.Metadata.Error = BadPageSize
		return []T{}
	}
	state.Metadata.PageCount = PageCount(len(data), state.PageSize)
	if len(data) == 0 {
		return data
	}
	if state.PageIndex >= state.Metadata.PageCount {
		state.Metadata.Error = BadPageIndex
		return []T{}
	}
	start := state.PageIndex * state.PageSize
	end := start + min(state.PageSize, len(data)-start)
	return data[start:end:end]
}
