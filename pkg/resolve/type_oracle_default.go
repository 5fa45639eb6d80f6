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
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	namedImportPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?\{([^}]+)\}\s+from\s+['"]([^'"]+)['"]`)
	defaultImportPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?([A-Za-z_$][\w$]*)\s*,?\s*(?:\{[^}]*\})?\s*from\s+['"]([^'"]+)['"]`)
	declaredTypePattern = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*:\s*([A-Z][\w$.]*(?:<[^>{};]*>)?(?:\[\])?(?:\s*\|\s*[A-Za-z_$][\w$.]*)*)`)
	importAliasSplit = regexp.MustCompile(`\s*,\s*`)
)

type importRecord struct {
	moduleSpecifier string
	targetFile      string
}

// DeclaredTypeOracle is the default TypeOracle: a best-effort, regex-based
// reading of import statements and ": Type" annotations, with no real
// type checker behind it. It resolves relative import specifiers to
// files in the given file set by suffix/basename match, the same
// fallback chain the teacher's resolver.go uses for Go import paths.
type DeclaredTypeOracle struct {
	builtins            map[string]bool
	importsByFile       map[string]map[string]importRecord
	declaredTypesByFile map[string]map[string]string
}

// BuildDeclaredTypeOracle scans every file for import statements and
// declared-type annotations.
func BuildDeclaredTypeOracle(files []string, builtinModules []string) (*DeclaredTypeOracle, error) {
	o := &DeclaredTypeOracle{
		builtins:            make(map[string]bool, len(builtinModules)),
		importsByFile:       make(map[string]map[string]importRecord),
		declaredTypesByFile: make(map[string]map[string]string),
	}
	for _, m := range builtinModules {
		o.builtins[m] = true
	}

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		text := string(content)

		imports := make(map[string]importRecord)
		for _, m := range namedImportPattern.FindAllStringSubmatch(text, -1) {
			spec := m[2]
			target := o.resolveModuleSpecifier(f, spec, files)
			for _, raw := range importAliasSplit.Split(m[1], -1) {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				local := raw
				if idx := strings.Index(raw, " as "); idx >= 0 {
					local = strings.TrimSpace(raw[idx+4:])
				}
				imports[local] = importRecord{moduleSpecifier: spec, targetFile: target}
			}
		}
		for _, m := range defaultImportPattern.FindAllStringSubmatch(text, -1) {
			spec := m[2]
			target := o.resolveModuleSpecifier(f, spec, files)
			imports[m[1]] = importRecord{moduleSpecifier: spec, targetFile: target}
		}
		o.importsByFile[f] = imports

		types := make(map[string]string)
		for _, m := range declaredTypePattern.FindAllStringSubmatch(text, -1) {
			types[m[1]] = m[2]
		}
		o.declaredTypesByFile[f] = types
	}

	return o, nil
}

// resolveModuleSpecifier maps a relative/bare module specifier to one of
// the known files, by joining it against the importing file's directory
// and matching candidate extensions, falling back to a basename match
// across the whole file set.
func (o *DeclaredTypeOracle) resolveModuleSpecifier(fromFile, spec string, files []string) string {
	if !strings.HasPrefix(spec, ".") {
		return ""
	}
	joined := filepath.Clean(filepath.Join(filepath.Dir(fromFile), spec))
	for _, ext := range []string{"", ".ts", ".tsx", ".js", ".jsx"} {
		candidate := joined + ext
		for _, f := range files {
			if filepath.Clean(f) == candidate {
				return f
			}
		}
	}
	base := filepath.Base(joined)
	for _, f := range files {
		if strings.TrimSuffix(filepath.Base(f), filepath.Ext(f)) == base {
			return f
		}
	}
	return ""
}

// SymbolOf resolves an identifier node to its import declaration, if any.
// Local (non-imported) identifiers return nil: LocalStage is expected to
// have already settled those.
func (o *DeclaredTypeOracle) SymbolOf(node Node) *Symbol {
	t, ok := node.(*tsNode)
	if !ok {
		return nil
	}
	rec, ok := o.importsByFile[t.File()][t.Text()]
	if !ok {
		return nil
	}
	return &Symbol{Declarations: []Declaration{{
		FilePath:     rec.targetFile,
		Line:         0,
		ImportedFrom: rec.moduleSpecifier,
	}}}
}

// DeclaredTypeText returns the best-effort declared-type annotation text
// found for an identifier's name within its file.
func (o *DeclaredTypeOracle) DeclaredTypeText(node Node) string {
	t, ok := node.(*tsNode)
	if !ok {
		return ""
	}
	return o.declaredTypesByFile[t.File()][t.Text()]
}

// IsBuiltinModule matches a module specifier exactly or as a path prefix
// of a configured builtin (covering deep-import specifiers like
// "node:fs/promises" against a configured "node:fs").
func (o *DeclaredTypeOracle) IsBuiltinModule(moduleSpecifier string) bool {
	if o.builtins[moduleSpecifier] {
		return true
	}
	for b := range o.builtins {
		if strings.HasPrefix(moduleSpecifier, b+"/") {
			return true
		}
	}
	return false
}
