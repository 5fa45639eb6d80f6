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

// RuntimeObservation is a single (caller, callee) pair witnessed during
// execution, e.g. via a profiler or tracing agent. RuntimeStage is the
// pipeline's only consumer of observations; it never runs or instruments
// the traced program itself.
type RuntimeObservation struct {
	CallerID string
	CalleeID string
	Line     int
}

// RuntimeStage confirms edges already present in the ledger against
// observations collected outside the static pipeline. It never
// synthesizes an edge for a pair the earlier stages missed: a
// observation with no matching edge key is simply counted as unmatched.
type RuntimeStage struct {
	ledger *EdgeLedger

	confirmed int
	unmatched int
}

// NewRuntimeStage builds a RuntimeStage over the given ledger.
func NewRuntimeStage(ledger *EdgeLedger) *RuntimeStage {
	return &RuntimeStage{ledger: ledger}
}

// Run applies every observation, latching RuntimeConfirmed and raising
// confidence to 1.00 on each matching edge.
func (s *RuntimeStage) Run(observations []RuntimeObservation) {
	for _, obs := range observations {
		if s.ledger.ConfirmEdge(obs.CallerID, obs.CalleeID, obs.Line) {
			s.confirmed++
		} else {
			s.unmatched++
		}
	}
}

// Confirmed returns how many observations matched an existing edge.
func (s *RuntimeStage) Confirmed() int { return s.confirmed }

// Unmatched returns how many observations had no corresponding edge.
func (s *RuntimeStage) Unmatched() int { return s.unmatched }
