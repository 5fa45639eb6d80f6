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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// collectSourceFiles walks root and returns every regular file whose
// root-relative, slash-normalized path matches at least one of include and
// none of exclude.
//
// Grounded on the teacher's delta.go filterContext.shouldInclude, with the
// missing matchesGlob helper replaced by matchGlob below since it was never
// part of the retrieved package.
func collectSourceFiles(root string, include, exclude []string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && matchesAny(rel+"/", exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(rel, exclude) {
			return nil
		}
		if len(include) > 0 && !matchesAny(rel, include) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func matchesAny(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if matchGlob(relPath, p) {
			return true
		}
	}
	return false
}

// matchGlob matches relPath against a glob pattern that may contain "**"
// as a path-spanning wildcard, e.g. "node_modules/**" or "**/*.ts". A
// pattern without "**" is matched with filepath.Match against the whole
// path.
func matchGlob(relPath, pattern string) bool {
	if !strings.Contains(pattern, "**") {
		ok, _ := filepath.Match(pattern, relPath)
		if ok {
			return true
		}
		// Also try matching just the base name, so "*.ts" excludes
		// nested files the way a .gitignore-style pattern would.
		ok, _ = filepath.Match(pattern, filepath.Base(relPath))
		return ok
	}

	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" && !strings.HasPrefix(relPath, prefix) {
		return false
	}
	remainder := strings.TrimPrefix(relPath, prefix)
	remainder = strings.TrimPrefix(remainder, "/")

	if suffix == "" {
		return true
	}
	if ok, _ := filepath.Match(suffix, filepath.Base(remainder)); ok {
		return true
	}
	// Allow the suffix to match any path depth under the prefix, not just
	// the base name (e.g. "**/*.ts" against "src/pkg/a.ts").
	segments := strings.Split(remainder, "/")
	for i := range segments {
		candidate := strings.Join(segments[i:], "/")
		if ok, _ := filepath.Match(suffix, candidate); ok {
			return true
		}
	}
	return false
}
