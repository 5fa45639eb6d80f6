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

import "time"

// Statistics summarizes one Coordinator run, grounded on the teacher's
// IngestionResult in local_pipeline.go: one flat struct of counters and
// durations a caller can log, export as metrics, or print to a terminal.
type Statistics struct {
	FilesWalked   int
	ParseErrors   int
	FunctionCount int

	LocalEdges   int
	ImportEdges  int
	CHAEdges     int
	RTAEdges     int
	RuntimeConfirmed int

	UnresolvedAfterImport int
	UnresolvedAfterCHA    int

	CHAReductionRate float64

	DroppedCallerUnknown int

	WalkDuration       time.Duration
	CHADuration        time.Duration
	RTADuration        time.Duration
	RuntimeDuration    time.Duration
	SecondPassDuration time.Duration
	TotalDuration      time.Duration

	// SecondPassRun reports whether Options.ForceSecondPass actually
	// triggered a re-walk (the first pass produced zero edges despite
	// walking at least one file), as opposed to being requested but never
	// firing because the first pass already resolved something.
	SecondPassRun bool

	Cancelled bool
}

// LevelCounts tallies the final ledger's edges by resolution level, the
// shape most useful to a caller wanting a one-line confidence breakdown.
func LevelCounts(edges []Edge) map[ResolutionLevel]int {
	counts := make(map[ResolutionLevel]int)
	for _, e := range edges {
		counts[e.Level]++
	}
	return counts
}
