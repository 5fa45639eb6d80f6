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

// Package persist implements the optional, host-side persisted-state
// layout for a resolve.Coordinator run: the function catalog and the
// resolved edge set, plus a small key/value table for incremental
// bookkeeping between runs.
//
// Grounded on storage/embedded.go's EnsureSchema/project-meta idiom, with
// CozoDB's embedded Datalog engine replaced by modernc.org/sqlite (pure
// Go, no CGo toolchain required) -- see DESIGN.md for the substitution
// rationale.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/callweave/pkg/resolve"
)

// Store is a SQLite-backed persistence layer for one project's resolved
// call graph. Safe for concurrent use; all writes are serialized through
// an internal mutex the way EmbeddedBackend serializes CozoDB access.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Config configures where the store keeps its data.
type Config struct {
	// DataDir is the directory the sqlite file lives in. Defaults to
	// ~/.callweave/data/<ProjectID> when empty, mirroring
	// EmbeddedConfig.DataDir's default.
	DataDir string
	// ProjectID namespaces DataDir when DataDir is left empty.
	ProjectID string
}

// Open creates (or reopens) the project's sqlite database and ensures its
// schema exists.
func Open(cfg Config) (*Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".callweave", "data")
		if cfg.ProjectID != "" {
			dir = filepath.Join(dir, cfg.ProjectID)
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := filepath.Join(dir, "callweave.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single file-backed connection avoids SQLITE_BUSY under the
	// store's own mutex; modernc.org/sqlite does not support true
	// concurrent writers on one file anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the store's tables if they don't exist. Idempotent
// and safe to call multiple times, the same contract EmbeddedBackend's
// EnsureSchema makes.
func (s *Store) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resolve_function (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			class_name TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			lexical_path TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolve_function_file ON resolve_function(file_path)`,
		`CREATE TABLE IF NOT EXISTS resolve_edge (
			id TEXT PRIMARY KEY,
			caller_id TEXT NOT NULL,
			callee_id TEXT NOT NULL,
			callee_name TEXT NOT NULL,
			callee_class TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			optional_chaining INTEGER NOT NULL DEFAULT 0,
			confidence REAL NOT NULL,
			level INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			runtime_confirmed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolve_edge_caller ON resolve_edge(caller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_resolve_edge_callee ON resolve_edge(callee_id)`,
		`CREATE TABLE IF NOT EXISTS resolve_project_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// SaveFunctions upserts a batch of functions in one transaction.
func (s *Store) SaveFunctions(ctx context.Context, functions []resolve.Function) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO resolve_function
		(id, name, class_name, file_path, start_line, end_line, lexical_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, class_name=excluded.class_name,
			file_path=excluded.file_path, start_line=excluded.start_line,
			end_line=excluded.end_line, lexical_path=excluded.lexical_path`)
	if err != nil {
		return fmt.Errorf("prepare function upsert: %w", err)
	}
	defer stmt.Close()

	for _, fn := range functions {
		if _, err := stmt.ExecContext(ctx, fn.ID, fn.Name, fn.ClassName, fn.FilePath, fn.StartLine, fn.EndLine, fn.LexicalPath); err != nil {
			return fmt.Errorf("upsert function %s: %w", fn.ID, err)
		}
	}
	return tx.Commit()
}

// SaveEdges upserts a batch of resolved edges in one transaction.
func (s *Store) SaveEdges(ctx context.Context, edges []resolve.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO resolve_edge
		(id, caller_id, callee_id, callee_name, callee_class, kind, line, col,
		 optional_chaining, confidence, level, source, runtime_confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			confidence=excluded.confidence, level=excluded.level,
			source=excluded.source, runtime_confirmed=excluded.runtime_confirmed`)
	if err != nil {
		return fmt.Errorf("prepare edge upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.ID, e.CallerID, e.CalleeID, e.CalleeName, e.CalleeClass,
			string(e.Kind), e.Line, e.Column, boolToInt(e.OptionalChaining), e.Confidence, int(e.Level),
			e.Source, boolToInt(e.RuntimeConfirmed)); err != nil {
			return fmt.Errorf("upsert edge %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// EdgesByCaller returns every persisted edge whose caller is the given
// function id, for a host querying the call graph after a run.
func (s *Store) EdgesByCaller(ctx context.Context, callerID string) ([]resolve.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, caller_id, callee_id, callee_name, callee_class, kind,
		line, col, optional_chaining, confidence, level, source, runtime_confirmed
		FROM resolve_edge WHERE caller_id = ?`, callerID)
	if err != nil {
		return nil, fmt.Errorf("query edges by caller: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// FunctionsByFile returns every persisted function declared in the given
// file path.
func (s *Store) FunctionsByFile(ctx context.Context, filePath string) ([]resolve.Function, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, class_name, file_path, start_line, end_line, lexical_path
		FROM resolve_function WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, fmt.Errorf("query functions by file: %w", err)
	}
	defer rows.Close()

	var out []resolve.Function
	for rows.Next() {
		var fn resolve.Function
		if err := rows.Scan(&fn.ID, &fn.Name, &fn.ClassName, &fn.FilePath, &fn.StartLine, &fn.EndLine, &fn.LexicalPath); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		out = append(out, fn)
	}
	return out, rows.Err()
}

// DeleteForFile removes every function declared in filePath along with
// any edge whose caller or callee belonged to one of them, mirroring
// EmbeddedBackend.DeleteEntitiesForFile's per-file teardown. Nothing in
// this module calls it; the watch command re-resolves the whole project.
func (s *Store) DeleteForFile(ctx context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resolve_edge WHERE caller_id IN
		(SELECT id FROM resolve_function WHERE file_path = ?)
		OR callee_id IN (SELECT id FROM resolve_function WHERE file_path = ?)`, filePath, filePath); err != nil {
		return fmt.Errorf("delete edges for file: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM resolve_function WHERE file_path = ?`, filePath); err != nil {
		return fmt.Errorf("delete functions for file: %w", err)
	}
	return tx.Commit()
}

// GetMeta retrieves a project metadata value, or "" if the key is unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM resolve_project_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta sets a project metadata value, e.g. the last-resolved snapshot
// tag.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO resolve_project_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func scanEdges(rows *sql.Rows) ([]resolve.Edge, error) {
	var out []resolve.Edge
	for rows.Next() {
		var e resolve.Edge
		var kind string
		var optionalChaining, runtimeConfirmed int
		var level int
		if err := rows.Scan(&e.ID, &e.CallerID, &e.CalleeID, &e.CalleeName, &e.CalleeClass, &kind,
			&e.Line, &e.Column, &optionalChaining, &e.Confidence, &level, &e.Source, &runtimeConfirmed); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = resolve.CallKind(kind)
		e.OptionalChaining = optionalChaining != 0
		e.RuntimeConfirmed = runtimeConfirmed != 0
		e.Level = resolve.ResolutionLevel(level)
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
