// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
)

// MalformedIndexError is returned by NewFunctionIndex when the input
// function records violate the (filePath, startLine) uniqueness invariant
// or carry an endLine before their startLine.
type MalformedIndexError struct {
	FunctionID string
	Reason     string
}

func (e *MalformedIndexError) Error() string {
	return fmt.Sprintf("malformed function index entry %s: %s", e.FunctionID, e.Reason)
}

// FunctionIndex is the exclusive, read-only-after-construction catalog of
// known functions. Built once per run from a flat slice of Function
// records; the Coordinator owns construction, stages only read it.
type FunctionIndex struct {
	byID       map[string]Function
	byFileLine map[string]map[int]string // normalized path -> line -> function id
	byNameFile map[string]map[string][]string // normalized path -> name -> ids, source order
	ctorOf     map[string]string              // class name -> constructor function id
}

// normalizePath makes a (filePath, startLine) key stable regardless of
// how the caller spelled the path: absolute, platform-native, cleaned.
func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// NewFunctionIndex builds the index from a flat list of function records.
// Records must be supplied in the order they were discovered within each
// file: when two functions nest and therefore share lines, the one
// supplied later wins the per-line map on the shared lines, matching the
// "inner wins" invariant (inner functions are naturally discovered after
// their enclosing function during a pre-order walk).
func NewFunctionIndex(functions []Function) (*FunctionIndex, error) {
	idx := &FunctionIndex{
		byID:       make(map[string]Function, len(functions)),
		byFileLine: make(map[string]map[int]string),
		byNameFile: make(map[string]map[string][]string),
		ctorOf:     make(map[string]string),
	}

	seenAt := make(map[string]string) // "path@line" -> function id, for the uniqueness check

	for _, fn := range functions {
		if fn.EndLine < fn.StartLine {
			return nil, &MalformedIndexError{FunctionID: fn.ID, Reason: "end line precedes start line"}
		}
		if _, exists := idx.byID[fn.ID]; exists {
			return nil, &MalformedIndexError{FunctionID: fn.ID, Reason: "duplicate function id"}
		}

		path := normalizePath(fn.FilePath)
		posKey := fmt.Sprintf("%s@%d", path, fn.StartLine)
		if other, exists := seenAt[posKey]; exists && other != fn.ID {
			return nil, &MalformedIndexError{FunctionID: fn.ID, Reason: "duplicate (filePath, startLine) key with " + other}
		}
		seenAt[posKey] = fn.ID

		idx.byID[fn.ID] = fn

		if idx.byFileLine[path] == nil {
			idx.byFileLine[path] = make(map[int]string)
		}
		for line := fn.StartLine; line <= fn.EndLine; line++ {
			idx.byFileLine[path][line] = fn.ID // later insertion (inner fn) wins
		}

		if idx.byNameFile[path] == nil {
			idx.byNameFile[path] = make(map[string][]string)
		}
		idx.byNameFile[path][fn.Name] = append(idx.byNameFile[path][fn.Name], fn.ID)

		if fn.IsMethod() && (fn.Name == "constructor" || fn.Name == fn.ClassName) {
			idx.ctorOf[fn.ClassName] = fn.ID
		}
	}

	return idx, nil
}

// ByID returns the function record for an id, if present.
func (idx *FunctionIndex) ByID(id string) (Function, bool) {
	fn, ok := idx.byID[id]
	return fn, ok
}

// ByFileLine finds the function containing a given line of a file in
// O(1), via the per-line expansion built at construction time.
func (idx *FunctionIndex) ByFileLine(path string, line int) (string, bool) {
	lines, ok := idx.byFileLine[normalizePath(path)]
	if !ok {
		return "", false
	}
	id, ok := lines[line]
	return id, ok
}

// ByName returns every function id matching a name within one file, in
// source order.
func (idx *FunctionIndex) ByName(path, name string) []string {
	names, ok := idx.byNameFile[normalizePath(path)]
	if !ok {
		return nil
	}
	out := make([]string, len(names[name]))
	copy(out, names[name])
	return out
}

// ByNameAnyFile returns every function matching a name across the
// whole index, sorted deterministically (class name, then file path) for
// CHA's candidate ordering (spec 4.G step 4).
func (idx *FunctionIndex) ByNameAnyFile(name string) []Function {
	var out []Function
	for _, fn := range idx.byID {
		if fn.Name == name {
			out = append(out, fn)
		}
	}
	sortCandidates(out)
	return out
}

// ByNameAndClasses returns every function named `name` declared on one of
// the given classes, sorted deterministically.
func (idx *FunctionIndex) ByNameAndClasses(name string, classes []string) []Function {
	want := make(map[string]bool, len(classes))
	for _, c := range classes {
		want[c] = true
	}
	var out []Function
	for _, fn := range idx.byID {
		if fn.Name == name && want[fn.ClassName] {
			out = append(out, fn)
		}
	}
	sortCandidates(out)
	return out
}

func sortCandidates(fns []Function) {
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].ClassName != fns[j].ClassName {
			return fns[i].ClassName < fns[j].ClassName
		}
		if fns[i].FilePath != fns[j].FilePath {
			return fns[i].FilePath < fns[j].FilePath
		}
		return fns[i].StartLine < fns[j].StartLine
	})
}

// ConstructorOf returns the constructor function id for a class, if known.
func (idx *FunctionIndex) ConstructorOf(className string) (string, bool) {
	id, ok := idx.ctorOf[className]
	return id, ok
}

// Len returns the number of indexed functions.
func (idx *FunctionIndex) Len() int {
	return len(idx.byID)
}
