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

package demo

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/google/gridflow/core/csvimport"
	"github.com/google/gridflow/core/records"
)

//go:embed data/*.csv
var dataFS embed.FS

// builtins maps the names of the bundled datasets to their loaders.
var builtins = map[string]func() ([]records.Row, error){
	"orders":    func() ([]records.Row, error) { return importEmbedded("data/orders.csv") },
	"employees": func() ([]records.Row, error) { return importEmbedded("data/employees.csv") },
	"company":   func() ([]records.Row, error) { return CompanyData(), nil },
}

// Builtin returns the bundled dataset called name.
func Builtin(name string) ([]records.Row, error) {
	load, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("no builtin dataset %q", name)
	}
	return load()
}

func importEmbedded(path string) ([]records.Row, error) {
	data, err := dataFS.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := csvimport.ImportFromReader(bytes.NewReader(data), csvimport.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return rows, nil
}

// CompanyData returns a hierarchical dataset: every employee nests its
// reports under "Employees".
func CompanyData() []records.Row {
	return []records.Row{
		{"ID": 147, "Name": "John Winchester", "Title": "Development Manager", "Age": 55, "Employees": []records.Row{
			{"ID": 475, "Name": "Michael Langdon", "Title": "Software Developer", "Age": 43, "Employees": []records.Row{
				{"ID": 673, "Name": "Trevor Ashworth", "Title": "Software Developer", "Age": 32},
			}},
			{"ID": 957, "Name": "Thomas Hardy", "Title": "Senior Software Developer", "Age": 29},
			{"ID": 317, "Name": "Monica Reyes", "Title": "QA Lead", "Age": 31, "Employees": []records.Row{
				{"ID": 711, "Name": "Roland Mendel", "Title": "QA Engineer", "Age": 35},
				{"ID": 998, "Name": "Sven Ottlieb", "Title": "QA Engineer", "Age": 44},
			}},
		}},
		{"ID": 847, "Name": "Ana Sanders", "Title": "CEO", "Age": 42, "Employees": []records.Row{
			{"ID": 225, "Name": "Laurence Johnson", "Title": "Director", "Age": 44, "Employees": []records.Row{
				{"ID": 663, "Name": "Elizabeth Richards", "Title": "Vice President", "Age": 25},
			}},
			{"ID": 141, "Name": "Yang Wang", "Title": "Localization Developer", "Age": 61},
		}},
		{"ID": 19, "Name": "Victoria Lincoln", "Title": "Accounting Manager", "Age": 49},
	}
}
