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
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/callweave/pkg/resolve"
)

// watchSkipDirs names directories runWatch never descends into, matching
// the teacher's watchSkipDirs in cmd/cie/watch.go.
var watchSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".callweave":   true,
}

// runWatch resolves the project once, then watches its source tree and
// re-resolves on a debounce timer whenever a file changes.
//
// Grounded on the teacher's cmd/cie/watch.go: an fsnotify.Watcher recursively
// registered over every non-skipped directory, and a debounce timer that
// coalesces bursts of fs events (editors routinely emit several events per
// save) into a single re-resolve.
func runWatch(args []string, configPath string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	path := fs.String("path", ".", "Project root to watch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = DefaultConfig("")
	}

	debounce := time.Duration(cfg.Watch.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addWatchDirs(watcher, *path); err != nil {
		return err
	}

	var mu sync.Mutex
	inProgress := false

	resolveOnce := func() {
		mu.Lock()
		if inProgress {
			mu.Unlock()
			return
		}
		inProgress = true
		mu.Unlock()

		defer func() {
			mu.Lock()
			inProgress = false
			mu.Unlock()
		}()

		logger.Info("watch.resolve.start")
		if err := runResolve([]string{"--path", *path}, configPath, globals); err != nil && err != resolve.ErrCancelled {
			logger.Warn("watch.resolve.error", "err", err)
		}
	}

	resolveOnce()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var timerCh <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if watchSkipDirs[filepath.Base(filepath.Dir(event.Name))] {
				continue
			}
			timerCh = time.After(debounce)

		case <-timerCh:
			timerCh = nil
			go resolveOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch.fsnotify.error", "err", err)

		case <-sigCh:
			logger.Info("watch.shutdown_signal")
			return nil
		}
	}
}

// addWatchDirs registers root and every non-skipped subdirectory with w.
func addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() != "." && watchSkipDirs[info.Name()] {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
