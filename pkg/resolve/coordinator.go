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
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunState names the Coordinator's position in the pipeline state
// machine: idle -> indexing -> walking -> cha -> rta -> runtime -> done.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateIndexing  RunState = "indexing"
	StateWalking   RunState = "walking"
	StateCHA       RunState = "cha"
	StateRTA       RunState = "rta"
	StateRuntime   RunState = "runtime"
	StateDone      RunState = "done"
)

// Coordinator drives one resolution run end to end: build the
// FunctionIndex, walk every file through LocalStage then ImportStage,
// run CHAStage over the resulting unresolved queue, refine with RTAStage,
// and optionally apply runtime observations. It owns the per-run
// EdgeLedger and FunctionIndex and is not safe for concurrent Run calls.
//
// Grounded on the teacher's local_pipeline.go LocalPipeline: a
// single-purpose orchestrator with injected capabilities, a progress
// callback, and a result struct returned at the end of a run.
type Coordinator struct {
	syntax    SyntaxOracle
	types     TypeOracle
	hierarchy ClassHierarchy
	logger    *slog.Logger
	metrics   *Metrics

	mu    sync.Mutex
	state RunState
}

// NewCoordinator builds a Coordinator over the three external
// capabilities. logger and metrics may be nil; a nil logger falls back to
// slog.Default(), a nil metrics recorder is a no-op.
func NewCoordinator(syntax SyntaxOracle, types TypeOracle, hierarchy ClassHierarchy, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		syntax:    syntax,
		types:     types,
		hierarchy: hierarchy,
		logger:    logger,
		metrics:   metrics,
		state:     StateIdle,
	}
}

// State returns the Coordinator's current position in the run state
// machine. Safe to call concurrently with Run.
func (c *Coordinator) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("resolve.stage", "state", string(s))
}

// Result bundles everything a Run call produces: the resolved edges, the
// statistics, and any per-file parse errors encountered along the way.
type Result struct {
	Edges      []Edge
	Statistics Statistics
	ParseErrors []ParseError
}

// Run executes the full pipeline over the given files and pre-built
// function catalog. Observations, if non-nil, are applied as the final
// runtime-confirmation stage. Cancelling ctx stops the walk between files;
// a run whose walk was cut short skips CHA, RTA and the runtime stage, and
// the work already committed to the ledger is retained and returned
// alongside ErrCancelled. Cancellation is not checked after the walk: once
// the walk has finished, the remaining stages run to completion.
func (c *Coordinator) Run(ctx context.Context, files []string, functions []Function, observations []RuntimeObservation, opts Options) (Result, error) {
	start := time.Now()
	c.setState(StateIndexing)

	index, err := NewFunctionIndex(functions)
	if err != nil {
		c.setState(StateIdle)
		return Result{}, err
	}

	ledger := NewEdgeLedger()
	stats := Statistics{FunctionCount: index.Len()}

	local := NewLocalStage(c.syntax, index, ledger)
	imp := NewImportStage(c.syntax, c.types, index, ledger)

	c.setState(StateWalking)
	walkStart := time.Now()

	parseErrs, cancelled := c.walk(ctx, files, local, imp, opts, &stats)
	stats.WalkDuration = time.Since(walkStart)

	if !cancelled && opts.ForceSecondPass && stats.FilesWalked > 0 && len(ledger.Edges()) == 0 {
		c.logger.Debug("resolve.second_pass", "reason", "empty_graph_after_first_pass")
		secondStart := time.Now()
		stats.SecondPassRun = true
		moreErrs, secondCancelled := c.walk(ctx, files, local, imp, opts, &stats)
		parseErrs = append(parseErrs, moreErrs...)
		cancelled = secondCancelled
		stats.SecondPassDuration = time.Since(secondStart)
	}

	if cancelled {
		stats.Cancelled = true
		stats.TotalDuration = time.Since(start)
		c.setState(StateIdle)
		if c.metrics != nil {
			c.metrics.ObserveRun(stats)
		}
		return Result{Edges: ledger.Edges(), Statistics: stats, ParseErrors: parseErrs}, ErrCancelled
	}

	unresolvedAfterImport := ledger.UnresolvedQueue()
	stats.UnresolvedAfterImport = len(unresolvedAfterImport)

	c.setState(StateCHA)
	chaStart := time.Now()
	cha := NewCHAStage(c.hierarchy, index, ledger)
	cha.Run()
	stats.UnresolvedAfterCHA = len(ledger.UnresolvedQueue())
	stats.CHADuration = time.Since(chaStart)

	c.setState(StateRTA)
	rtaStart := time.Now()
	rta := NewRTAStage(c.hierarchy, index, ledger, cha)
	rta.Run(unresolvedAfterImport)
	stats.CHAReductionRate = rta.ReductionRate()
	stats.RTADuration = time.Since(rtaStart)

	if len(observations) > 0 {
		c.setState(StateRuntime)
		runtimeStart := time.Now()
		rt := NewRuntimeStage(ledger)
		rt.Run(observations)
		stats.RuntimeConfirmed = rt.Confirmed()
		stats.RuntimeDuration = time.Since(runtimeStart)
	}

	edges := ledger.Edges()
	for _, e := range edges {
		switch e.Level {
		case LevelLocalExact:
			stats.LocalEdges++
		case LevelImportExact:
			stats.ImportEdges++
		case LevelCHAResolved:
			stats.CHAEdges++
		case LevelRTAResolved:
			stats.RTAEdges++
		}
	}
	stats.DroppedCallerUnknown = ledger.DroppedCallerUnknown()
	stats.TotalDuration = time.Since(start)

	c.setState(StateDone)
	if c.metrics != nil {
		c.metrics.ObserveRun(stats)
	}

	c.logger.Info("resolve.run_complete",
		"files", stats.FilesWalked,
		"edges", len(edges),
		"local", stats.LocalEdges,
		"import", stats.ImportEdges,
		"cha", stats.CHAEdges,
		"rta", stats.RTAEdges,
		"cha_reduction_rate", stats.CHAReductionRate,
		"duration", stats.TotalDuration,
	)

	return Result{Edges: edges, Statistics: stats, ParseErrors: parseErrs}, nil
}

// Reset returns the Coordinator to its idle state. Coordinators are
// single-use per Run call but Reset lets a caller reuse the struct (and
// its capabilities) for a subsequent run without reconstructing it.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

// walk runs LocalStage then ImportStage over every file, bounded by
// opts.Concurrency.ParseWorkers goroutines (sequential for <= 1), and
// reports whether ctx was cancelled before every file was walked. It
// mutates stats.FilesWalked/ParseErrors as it goes; the edge ledger's own
// locking makes the two stages safe to call from multiple workers, and
// EdgeLedger.Edges sorts its output so the run's final edge list does not
// depend on which worker finishes which file first.
func (c *Coordinator) walk(ctx context.Context, files []string, local *LocalStage, imp *ImportStage, opts Options, stats *Statistics) ([]ParseError, bool) {
	workers := opts.Concurrency.ParseWorkers
	if workers < 1 {
		workers = 1
	}

	walkOne := func(f string) *ParseError {
		if opts.DebugTrace {
			c.logger.Debug("resolve.walk_file", "file", f)
		}
		if err := local.Run(f); err != nil {
			return &ParseError{FilePath: f, Err: err}
		}
		if err := imp.Run(f); err != nil {
			return &ParseError{FilePath: f, Err: err}
		}
		return nil
	}

	var mu sync.Mutex
	var parseErrs []ParseError
	cancelled := false

	if workers == 1 {
		for _, f := range files {
			select {
			case <-ctx.Done():
				cancelled = true
			default:
			}
			if cancelled {
				break
			}

			stats.FilesWalked++
			if perr := walkOne(f); perr != nil {
				parseErrs = append(parseErrs, *perr)
				stats.ParseErrors++
			} else if opts.OnFileWalked != nil {
				opts.OnFileWalked(f)
			}
		}
		return parseErrs, cancelled
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				mu.Lock()
				skip := cancelled
				mu.Unlock()
				if skip {
					continue
				}

				select {
				case <-ctx.Done():
					mu.Lock()
					cancelled = true
					mu.Unlock()
					continue
				default:
				}

				perr := walkOne(f)

				mu.Lock()
				stats.FilesWalked++
				if perr != nil {
					parseErrs = append(parseErrs, *perr)
					stats.ParseErrors++
				}
				mu.Unlock()

				if perr == nil && opts.OnFileWalked != nil {
					opts.OnFileWalked(f)
				}
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	return parseErrs, cancelled
}
