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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/callweave/pkg/persist"
	"github.com/kraklabs/callweave/pkg/resolve"
)

// runResolve resolves the call graph for a project directory and prints a
// statistics summary, grounded on the teacher's cmd/cie/index.go: a
// Prometheus metrics endpoint started in the background, a progress bar
// driven by a callback, and a signal handler that cancels the run on
// SIGINT/SIGTERM instead of killing the process mid-walk.
func runResolve(args []string, configPath string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	path := fs.String("path", ".", "Project root to resolve")
	full := fs.Bool("full", false, "Re-walk every file through the local and import stages when the first pass resolves no edges")
	metricsAddr := fs.String("metrics-addr", "", "If set, serve Prometheus metrics at this address (e.g. :9090)")
	storeDir := fs.String("store", "", "If set, persist functions and edges to a SQLite store at this directory")
	snapshot := fs.String("snapshot", "", "Snapshot tag distinguishing function ids across re-indexed runs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = DefaultConfig("")
	}

	logLevel := slog.LevelInfo
	if globals.Verbose >= 2 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var metrics *resolve.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = resolve.NewMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	files, err := collectSourceFiles(*path, cfg.Resolve.Include, cfg.Resolve.Exclude)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no source files matched under %s", *path)
	}

	functions, err := resolve.DiscoverFunctions(files, *snapshot)
	if err != nil {
		return fmt.Errorf("discover functions: %w", err)
	}

	hierarchy, err := resolve.BuildClassHierarchy(files)
	if err != nil {
		return fmt.Errorf("build class hierarchy: %w", err)
	}
	types, err := resolve.BuildDeclaredTypeOracle(files, cfg.Resolve.BuiltinModules)
	if err != nil {
		return fmt.Errorf("build type oracle: %w", err)
	}
	syntax := resolve.NewTreeSitterSyntaxOracle()

	coordinator := resolve.NewCoordinator(syntax, types, hierarchy, logger, metrics)

	opts := resolve.DefaultOptions()
	opts.ForceSecondPass = *full || cfg.Resolve.ForceSecondPass
	opts.DebugTrace = globals.Verbose >= 2
	if cfg.Resolve.ParseWorkers > 0 {
		opts.Concurrency.ParseWorkers = cfg.Resolve.ParseWorkers
	}

	var bar *progressbar.ProgressBar
	showProgress := !globals.Quiet && !globals.JSON && isatty.IsTerminal(os.Stderr.Fd())
	if showProgress {
		bar = progressbar.Default(int64(len(files)), "resolving")
	}
	opts.OnFileWalked = func(string) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			logger.Info("resolve.cancel_signal")
			cancel()
		}
	}()

	result, runErr := coordinator.Run(ctx, files, functions, nil, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if runErr != nil && runErr != resolve.ErrCancelled {
		return fmt.Errorf("resolve: %w", runErr)
	}

	if *storeDir != "" {
		store, err := persist.Open(persist.Config{DataDir: *storeDir, ProjectID: cfg.ProjectID})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = store.Close() }()
		if err := store.SaveFunctions(ctx, functions); err != nil {
			return fmt.Errorf("save functions: %w", err)
		}
		if err := store.SaveEdges(ctx, result.Edges); err != nil {
			return fmt.Errorf("save edges: %w", err)
		}
	}

	if globals.JSON {
		return printResolveJSON(result)
	}
	printResolveSummary(result, globals)
	if globals.Verbose >= 2 {
		printEdgeSignatures(result.Edges, functions)
	}

	if runErr == resolve.ErrCancelled {
		return resolve.ErrCancelled
	}
	return nil
}

func printResolveJSON(result resolve.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printResolveSummary(result resolve.Result, globals GlobalFlags) {
	bold := color.New(color.Bold)
	stats := result.Statistics

	bold.Println("Call graph resolution complete")
	fmt.Printf("  files walked:       %d\n", stats.FilesWalked)
	fmt.Printf("  functions indexed:  %d\n", stats.FunctionCount)
	fmt.Printf("  edges resolved:     %d\n", len(result.Edges))
	fmt.Printf("    local:            %d\n", stats.LocalEdges)
	fmt.Printf("    import:           %d\n", stats.ImportEdges)
	fmt.Printf("    cha:              %d\n", stats.CHAEdges)
	fmt.Printf("    rta:              %d\n", stats.RTAEdges)
	fmt.Printf("    runtime:          %d\n", stats.RuntimeConfirmed)
	fmt.Printf("  cha reduction rate: %.2f\n", stats.CHAReductionRate)
	fmt.Printf("  dropped (unknown caller): %d\n", stats.DroppedCallerUnknown)
	fmt.Printf("  duration:           %s\n", stats.TotalDuration.Round(time.Millisecond))

	if stats.ParseErrors > 0 {
		color.New(color.FgYellow).Printf("  parse errors:       %d\n", stats.ParseErrors)
		if globals.Verbose >= 1 {
			for _, pe := range result.ParseErrors {
				fmt.Printf("    %s: %v\n", pe.FilePath, pe.Err)
			}
		}
	}
}

// printEdgeSignatures prints each edge's callee with its declared
// parameter types, for -vv callers who want overload-level detail beyond
// the plain callee name.
func printEdgeSignatures(edges []resolve.Edge, functions []resolve.Function) {
	byID := make(map[string]resolve.Function, len(functions))
	for _, fn := range functions {
		byID[fn.ID] = fn
	}

	fmt.Println("  edges:")
	for _, e := range edges {
		callee := byID[e.CalleeID]
		params := callee.ParamTypes()
		sig := e.CalleeName + "()"
		if len(params) > 0 {
			types := make([]string, len(params))
			for i, p := range params {
				types[i] = p.Name + ": " + p.Type
			}
			sig = e.CalleeName + "(" + strings.Join(types, ", ") + ")"
		}
		fmt.Printf("    %s -> %s [%s, %.2f]\n", e.CallerID, sig, e.Level, e.Confidence)
	}
}
