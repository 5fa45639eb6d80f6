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

import "regexp"

// Declaration is a location a symbol is declared at.
type Declaration struct {
	FilePath  string
	Line      int
	ImportedFrom string // module specifier this declaration arrived through, if any
}

// Symbol carries everything the core needs about an identifier: its
// possible declaration sites, each with the module specifier it was
// imported through, if any.
type Symbol struct {
	Declarations []Declaration
}

// TypeOracle is the symbol-lookup, declared-type, and import-resolution
// capability the core consumes. A real implementation wraps a type
// checker; DeclaredTypeOracle (type_oracle_default.go) is a best-effort
// standalone implementation for hosts without one.
type TypeOracle interface {
	// SymbolOf returns the symbol an identifier node refers to, or nil if
	// it cannot be resolved.
	SymbolOf(node Node) *Symbol

	// DeclaredTypeText returns the textual form of an expression's
	// declared type (e.g. "Dog", "Shape | null", "Array<Cat>"), or "" if
	// unknown.
	DeclaredTypeText(node Node) string

	// IsBuiltinModule classifies a module specifier as builtin (part of
	// the host language/runtime, never user code) or not. The builtin set
	// is host-supplied configuration, never hard-coded by the core.
	IsBuiltinModule(moduleSpecifier string) bool
}

// trailingCapitalizedIdentifier extracts the last capitalized identifier
// run from a declared-type string, falling back to the whole text. This
// is the regex spec section 4.B names for turning "Array<Dog>" into "Dog"
// and "Shape | null" into "Shape".
var trailingCapitalizedIdentifier = regexp.MustCompile(`[A-Z][A-Za-z0-9_]*`)

// ReceiverTypeName derives the simple class/interface name of an
// expression's declared type: the trailing capitalized identifier in its
// declared-type text, or the whole text if no such run exists.
func ReceiverTypeName(oracle TypeOracle, node Node) string {
	text := oracle.DeclaredTypeText(node)
	if text == "" {
		return ""
	}
	matches := trailingCapitalizedIdentifier.FindAllString(text, -1)
	if len(matches) == 0 {
		return text
	}
	return matches[len(matches)-1]
}

// ResolveImported returns the first declaration location for an
// identifier node, or nil if it has none.
func ResolveImported(oracle TypeOracle, node Node) *Declaration {
	sym := oracle.SymbolOf(node)
	if sym == nil || len(sym.Declarations) == 0 {
		return nil
	}
	return &sym.Declarations[0]
}
