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
	"sort"
	"sync"
)

// EdgeLedger is the append-once, dedup-by-key store of edges, the
// unresolved-call queue, and the instantiation-event log. It is owned
// exclusively by the Coordinator for the lifetime of one run; stages
// receive it by reference and never retain it across runs.
type EdgeLedger struct {
	mu sync.Mutex

	edges    map[string]*Edge // edge key -> edge
	edgeByID map[string]*Edge

	unresolved      map[string]UnresolvedCall // unresolved key -> entry
	unresolvedOrder []string

	external map[string]bool // per-file AST node identity -> marked external

	instantiations []InstantiationEvent

	droppedCallerUnknown int
}

// NewEdgeLedger returns an empty ledger.
func NewEdgeLedger() *EdgeLedger {
	return &EdgeLedger{
		edges:      make(map[string]*Edge),
		edgeByID:   make(map[string]*Edge),
		unresolved: make(map[string]UnresolvedCall),
		external:   make(map[string]bool),
	}
}

// AddEdge inserts an edge, or refines an existing one at the same key.
//
// Dedup is first-writer-wins except:
//   - RuntimeConfirmed latches false->true only, never the reverse; a
//     re-insertion carrying it sets it on the stored edge and raises that
//     edge's confidence to 1.00.
//   - A later stage replaces an earlier edge at the same key only if its
//     confidence is strictly greater (the monotonicity rule, spec 4.0).
//
// index resolves the caller id to confirm it exists; addEdge silently
// drops edges whose caller is unknown and increments a counter, per the
// "missing caller" error kind in spec 7.
func (l *EdgeLedger) AddEdge(edge Edge, index *FunctionIndex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := index.ByID(edge.CallerID); !ok {
		l.droppedCallerUnknown++
		return
	}

	key := edge.Key()
	existing, ok := l.edges[key]
	if !ok {
		e := edge
		l.edges[key] = &e
		l.edgeByID[e.ID] = &e
		return
	}

	if edge.Confidence > existing.Confidence {
		confirmed := existing.RuntimeConfirmed
		e := edge
		if confirmed {
			e.RuntimeConfirmed = true
			if e.Confidence < 1.0 {
				e.Confidence = 1.0
			}
		}
		l.edges[key] = &e
		l.edgeByID[e.ID] = &e
	} else if edge.RuntimeConfirmed && !existing.RuntimeConfirmed {
		existing.RuntimeConfirmed = true
		if existing.Confidence < 1.0 {
			existing.Confidence = 1.0
		}
	}
}

// EnqueueUnresolved adds a call site to the CHA work queue, deduped by
// (callerID, methodName, siteLine). A no-op if the node has already been
// marked external.
func (l *EdgeLedger) EnqueueUnresolved(call UnresolvedCall, nodeIdentity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if nodeIdentity != "" && l.external[nodeIdentity] {
		return
	}

	key := call.Key()
	if _, exists := l.unresolved[key]; exists {
		return
	}
	l.unresolved[key] = call
	l.unresolvedOrder = append(l.unresolvedOrder, key)
}

// MarkExternal suppresses future enqueueing for the AST node identity
// (typically file path + start byte offset, opaque to the ledger).
func (l *EdgeLedger) MarkExternal(nodeIdentity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.external[nodeIdentity] = true
}

// RecordInstantiation appends an instantiation event. The log is a plain
// ordered sequence with no observer pattern; RTAStage reads it once.
func (l *EdgeLedger) RecordInstantiation(event InstantiationEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instantiations = append(l.instantiations, event)
}

// ConfirmEdge sets an existing edge's RuntimeConfirmed bit and raises its
// confidence to 1.00. Pairs with no matching edge key are ignored: the
// ledger never synthesizes edges from runtime confirmation alone.
func (l *EdgeLedger) ConfirmEdge(callerID, calleeID string, line int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Edge{CallerID: callerID, CalleeID: calleeID, Line: line}.Key()
	e, ok := l.edges[key]
	if !ok {
		return false
	}
	e.RuntimeConfirmed = true
	e.Confidence = 1.0
	e.Level = LevelRuntimeConfirmed
	return true
}

// Edges returns a deterministic snapshot of every edge currently in the
// ledger, sorted by (CallerID, CalleeID, Line) so that two runs over an
// unchanged input produce a byte-identical edge list regardless of the
// randomized map iteration order behind the scenes.
func (l *EdgeLedger) Edges() []Edge {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Edge, 0, len(l.edges))
	for _, e := range l.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CallerID != out[j].CallerID {
			return out[i].CallerID < out[j].CallerID
		}
		if out[i].CalleeID != out[j].CalleeID {
			return out[i].CalleeID < out[j].CalleeID
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// UnresolvedQueue returns the current unresolved-call queue in the order
// entries were first enqueued.
func (l *EdgeLedger) UnresolvedQueue() []UnresolvedCall {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]UnresolvedCall, 0, len(l.unresolvedOrder))
	for _, key := range l.unresolvedOrder {
		out = append(out, l.unresolved[key])
	}
	return out
}

// Instantiations returns the instantiation-event log in recorded order.
func (l *EdgeLedger) Instantiations() []InstantiationEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]InstantiationEvent, len(l.instantiations))
	copy(out, l.instantiations)
	return out
}

// DroppedCallerUnknown returns the number of addEdge calls dropped
// because the caller id was absent from the FunctionIndex.
func (l *EdgeLedger) DroppedCallerUnknown() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.droppedCallerUnknown
}
