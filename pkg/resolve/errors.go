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
	"errors"
	"fmt"
)

// ErrCancelled is returned by Coordinator.Run when the supplied context is
// cancelled mid-pipeline. Work already committed to the ledger up to the
// point of cancellation is retained; Statistics.Cancelled is set true.
var ErrCancelled = errors.New("resolve: run cancelled")

// ParseError wraps a per-file failure encountered while walking source
// with a SyntaxOracle. The Coordinator counts these and continues with
// the remaining files rather than aborting the run.
type ParseError struct {
	FilePath string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("resolve: parse %s: %v", e.FilePath, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
