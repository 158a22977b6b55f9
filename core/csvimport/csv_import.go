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

// Package csvimport loads grid rows from CSV data, typing each column from a
// sample of its values.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/gridflow/core/records"
)

// ColumnType specifies the data type for a column
type ColumnType int

const (
	// ColumnTypeAuto auto-detects type from data (default)
	ColumnTypeAuto ColumnType = iota
	// ColumnTypeString forces string type
	ColumnTypeString
	// ColumnTypeInt64 forces int64 type
	ColumnTypeInt64
	// ColumnTypeFloat64 forces float64 type
	ColumnTypeFloat64
	// ColumnTypeBool forces bool type
	ColumnTypeBool
	// ColumnTypeTime forces time.Time type (RFC 3339 or YYYY-MM-DD)
	ColumnTypeTime
)

var typeNames = map[string]ColumnType{
	"":        ColumnTypeAuto,
	"auto":    ColumnTypeAuto,
	"string":  ColumnTypeString,
	"int":     ColumnTypeInt64,
	"int64":   ColumnTypeInt64,
	"float":   ColumnTypeFloat64,
	"float64": ColumnTypeFloat64,
	"bool":    ColumnTypeBool,
	"time":    ColumnTypeTime,
}

// ParseColumnType maps a configuration name such as "int" or "time" to a
// ColumnType.
func ParseColumnType(name string) (ColumnType, error) {
	t, ok := typeNames[strings.ToLower(name)]
	if !ok {
		return ColumnTypeAuto, fmt.Errorf("unknown column type %q", name)
	}
	return t, nil
}

var (
	// ErrEmpty is returned for input without any record.
	ErrEmpty = errors.New("CSV input is empty")
	// ErrNoRows is returned for input with a header but no data rows.
	ErrNoRows = errors.New("CSV input has no data rows")
)

// ColumnSource defines how one column is imported
type ColumnSource struct {
	// Name is the field name (defaults to the header)
	Name string
	// Type specifies the data type for this column (default: auto-detect)
	Type ColumnType
}

// ImportOptions configures CSV import behavior
type ImportOptions struct {
	// HasHeader indicates whether the first row contains column headers
	HasHeader bool
	// Delimiter is the field delimiter (defaults to comma)
	Delimiter rune
	// ColumnSources provides configuration for specific columns by header name
	ColumnSources map[string]ColumnSource
	// SampleSize is the number of rows to sample for type detection (default: 100)
	SampleSize int
}

// DefaultOptions returns default import options
func DefaultOptions() ImportOptions {
	return ImportOptions{
		HasHeader:     true,
		Delimiter:     ',',
		ColumnSources: make(map[string]ColumnSource),
		SampleSize:    100,
	}
}

// ImportFromFile imports a CSV file
func ImportFromFile(path string, options ImportOptions) ([]records.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ImportFromReader(file, options)
}

// ImportFromReader imports CSV data from an io.Reader. Empty cells become
// null fields. A cell that does not parse as its column type is kept as a
// string.
func ImportFromReader(reader io.Reader, options ImportOptions) ([]records.Row, error) {
	csvReader := csv.NewReader(reader)
	if options.Delimiter != 0 {
		csvReader.Comma = options.Delimiter
	}
	csvReader.FieldsPerRecord = -1

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	var headers []string
	dataRows := rows
	if options.HasHeader {
		headers = rows[0]
		dataRows = rows[1:]
	} else {
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	if len(dataRows) == 0 {
		return nil, ErrNoRows
	}

	sampleSize := options.SampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}
	types := detectColumnTypes(headers, dataRows, sampleSize, options.ColumnSources)

	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = strings.TrimSpace(h)
		if src, ok := options.ColumnSources[h]; ok && src.Name != "" {
			names[i] = src.Name
		}
	}

	out := make([]records.Row, 0, len(dataRows))
	for _, row := range dataRows {
		rec := make(records.Row, len(headers))
		for i, name := range names {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			rec[name] = convert(value, types[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func convert(value string, t ColumnType) any {
	if value == "" {
		return nil
	}
	switch t {
	case ColumnTypeInt64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case ColumnTypeFloat64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case ColumnTypeBool:
		if b, err := ParseBool(value); err == nil {
			return b
		}
	case ColumnTypeTime:
		if ts, err := ParseTime(value); err == nil {
			return ts
		}
	}
	return value
}

// ParseBool accepts the usual spellings of a boolean.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "t", "y":
		return true, nil
	case "false", "no", "f", "n":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as boolean", s)
}

// ParseTime accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// detectColumnTypes samples data to pick the narrowest type every sampled
// value parses as: int64, float64, bool, time, then string.
func detectColumnTypes(headers []string, dataRows [][]string, sampleSize int, configs map[string]ColumnSource) []ColumnType {
	types := make([]ColumnType, len(headers))
	rowsToSample := min(sampleSize, len(dataRows))

	for i, header := range headers {
		if config, ok := configs[header]; ok && config.Type != ColumnTypeAuto {
			types[i] = config.Type
			continue
		}

		isInt, isFloat, isBool, isTime := true, true, true, true
		hasNonEmpty := false
		for j := 0; j < rowsToSample; j++ {
			if i >= len(dataRows[j]) {
				continue
			}
			value := strings.TrimSpace(dataRows[j][i])
			if value == "" {
				continue
			}
			hasNonEmpty = true
			if isInt {
				_, err := strconv.ParseInt(value, 10, 64)
				isInt = err == nil
			}
			if isFloat {
				_, err := strconv.ParseFloat(value, 64)
				isFloat = err == nil
			}
			if isBool {
				_, err := ParseBool(value)
				isBool = err == nil
			}
			if isTime {
				_, err := ParseTime(value)
				isTime = err == nil
			}
		}

		switch {
		case !hasNonEmpty:
			types[i] = ColumnTypeString
		case isInt:
			types[i] = ColumnTypeInt64
		case isFloat:
			types[i] = ColumnTypeFloat64
		case isBool:
			types[i] = ColumnTypeBool
		case isTime:
			types[i] = ColumnTypeTime
		default:
			types[i] = ColumnTypeString
		}
	}
	return types
}
