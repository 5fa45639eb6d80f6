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

// ConcurrencyOptions bounds the Coordinator's internal parallelism.
type ConcurrencyOptions struct {
	// ParseWorkers is the number of files walked concurrently by Run's
	// local+import pass. Values <= 1 walk sequentially, in file order; a
	// value >1 spreads the walk across that many goroutines. The edge
	// ledger dedups and sorts on read, so the final edge list is the same
	// regardless of ParseWorkers or the order workers happen to finish in.
	ParseWorkers int
}

// Options configures one Coordinator run. The zero value is not usable
// directly; callers should start from DefaultOptions.
type Options struct {
	Concurrency ConcurrencyOptions

	// ForceSecondPass re-walks every file through LocalStage and
	// ImportStage a second time when the first pass produced zero edges
	// despite having walked at least one file successfully (spec's "force
	// a second pass when the first yields an empty graph despite
	// non-trivial input"). A no-op once the first pass resolves anything.
	ForceSecondPass bool

	// DebugTrace adds a slog debug line per file entering the walk. Like
	// every other debug record, it only appears when the logger's level
	// admits debug output. Stage transitions are logged at debug level
	// whether or not DebugTrace is set.
	DebugTrace bool

	// OnFileWalked, if set, is called for a file immediately after
	// LocalStage and ImportStage have both run over it without a parse
	// error. A file that fails to parse gets no call, and a forced second
	// pass calls it again for every file that pass walks. With
	// Concurrency.ParseWorkers > 1 it may be called from multiple
	// goroutines concurrently with itself, but never concurrently for the
	// same file.
	OnFileWalked func(filePath string)
}

// DefaultOptions returns sane defaults: four parse workers, no forced
// second pass, tracing off.
func DefaultOptions() Options {
	return Options{
		Concurrency: ConcurrencyOptions{
			ParseWorkers: 4,
		},
		ForceSecondPass: false,
		DebugTrace:      false,
	}
}
