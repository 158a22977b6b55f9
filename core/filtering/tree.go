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
	"github.com/google/gridflow/core/tree"
)

// TreeStrategy filters tree records. A node that does not match is kept when
// one of its descendants matches, flagged as IsFilteredOutParent. The result
// is made of clones; the input tree is not modified.
type TreeStrategy struct{}

// Filter returns the filtered roots. A nil expression tree returns roots.
func (s TreeStrategy) Filter(roots []*tree.Record, et ExpressionTree) []*tree.Record {
	if et == nil {
		return roots
	}
	return s.filter(roots, et, nil)
}

func (s TreeStrategy) filter(nodes []*tree.Record, et ExpressionTree, parent *tree.Record) []*tree.Record {
	var out []*tree.Record
	for _, n := range nodes {
		rec := n.Clone()
		rec.Parent = parent
		if rec.Children != nil {
			kept := s.filter(rec.Children, et, rec)
			if len(kept) > 0 {
				rec.Children = kept
			} else {
				rec.Children = nil
			}
		}
		switch {
		case et.Match(rec):
			rec.IsFilteredOutParent = false
			out = append(out, rec)
		case len(rec.Children) > 0:
			rec.IsFilteredOutParent = true
			out = append(out, rec)
		}
	}
	return out
}
