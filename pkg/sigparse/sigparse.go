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

// Package sigparse provides parameter-list parsing for a structurally
// typed, class-based scripting language's function signatures. It is a
// dependency-free package, importable by both pkg/resolve (for
// interface-dispatch-via-parameter-type matching) and any downstream
// query tooling.
package sigparse

import "strings"

// ParamInfo holds a parsed parameter's name and declared base type.
type ParamInfo struct {
	Name string // Parameter name (e.g., "handler")
	Type string // Base type name, stripped of generics/arrays/union noise
}

// ParseParams parses a "(name: Type, name2: Type2)" style parameter list
// and returns each parameter's name and base type.
//
// It handles:
//   - Simple params: "name: string, age: number"
//   - Optional params: "name?: string" → type "string"
//   - Array types: "items: Cat[]" → base type "Cat"
//   - Generic types: "items: Array<Cat>" → base type "Cat"
//   - Union types: "value: Dog | null" → first named type "Dog"
//   - Destructured/rest params: skipped, they carry no single named type
//   - Default values: "count: number = 0" → type "number"
//
// signature should be a full method/function signature string, e.g.
// "handle(event: Event, ctx?: Context): void" or just the parenthesized
// list itself; ExtractParamString locates the parens either way.
func ParseParams(signature string) []ParamInfo {
	paramStr := ExtractParamString(signature)
	if paramStr == "" {
		return nil
	}

	var params []ParamInfo
	for _, part := range splitAtTopLevelCommas(paramStr) {
		p := strings.TrimSpace(part)
		if p == "" || strings.HasPrefix(p, "...") || strings.HasPrefix(p, "{") || strings.HasPrefix(p, "[") {
			continue
		}

		colon := topLevelColon(p)
		if colon == -1 {
			continue
		}
		name := strings.TrimSpace(p[:colon])
		name = strings.TrimSuffix(name, "?")
		if name == "" || !isIdentifier(name) {
			continue
		}

		typeExpr := strings.TrimSpace(p[colon+1:])
		for i := 0; i < len(typeExpr); i++ {
			if typeExpr[i] == '=' && (i+1 >= len(typeExpr) || typeExpr[i+1] != '>') {
				typeExpr = strings.TrimSpace(typeExpr[:i])
				break
			}
		}
		base := NormalizeType(typeExpr)
		if base == "" {
			continue
		}
		params = append(params, ParamInfo{Name: name, Type: base})
	}

	return params
}

// ExtractParamString extracts the content between the first top-level
// parentheses in a signature. Given
// "handle(event: Event, ctx?: Context): void", returns
// "event: Event, ctx?: Context".
func ExtractParamString(sig string) string {
	start := strings.IndexByte(sig, '(')
	if start == -1 {
		return ""
	}
	end := findMatchingParen(sig, start)
	if end == -1 {
		return ""
	}
	return sig[start+1 : end]
}

// NormalizeType extracts the base named type from a declared-type
// expression:
//
//	"Cat[]" → "Cat"
//	"Array<Cat>" → "Cat"
//	"Dog | null" → "Dog"
//	"Dog | Cat" → "Dog"
//	"readonly Cat[]" → "Cat"
//	"string" → "string"
//	"() => void" → "function"
func NormalizeType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "readonly ")
	t = strings.TrimSpace(t)

	if strings.Contains(t, "=>") {
		return "function"
	}

	if idx := strings.Index(t, "|"); idx >= 0 {
		t = strings.TrimSpace(t[:idx])
	}

	t = strings.TrimSuffix(t, "[]")
	t = strings.TrimSpace(t)

	if lt := strings.IndexByte(t, '<'); lt >= 0 {
		gt := strings.LastIndexByte(t, '>')
		if gt > lt {
			inner := t[lt+1 : gt]
			if strings.EqualFold(strings.TrimSpace(t[:lt]), "Array") {
				return NormalizeType(inner)
			}
			t = t[:lt]
		}
	}

	return strings.TrimSpace(t)
}

func findMatchingParen(s string, pos int) int {
	depth := 0
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitAtTopLevelCommas splits on commas that are not nested inside
// (), [], <>, or {} groups.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '>', '}':
			if s[i] == '>' && i > 0 && s[i-1] == '=' {
				continue
			}
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelColon finds the first ':' not nested inside a bracketed group,
// so "handler: (x: number) => void" reports the outer colon.
func topLevelColon(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '<', '{':
			depth++
		case ')', ']', '>', '}':
			depth--
		case ':':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return false
		}
		if i > 0 && !isLetter && !isDigit {
			return false
		}
	}
	return true
}
