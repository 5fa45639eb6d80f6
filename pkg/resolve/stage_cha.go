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

// CHAStage performs class-hierarchy analysis over the unresolved-call
// queue ImportStage built: for each entry it enumerates every subtype of
// the declared receiver type that defines the called method, and records
// one edge per call site pointing at the first candidate in a
// deterministic order, carrying the full candidate set for RTAStage to
// refine later.
//
// Grounded on the teacher's implements.go: BuildImplementsIndex matches
// interfaces to implementers by exact method-name set containment; CHA
// here generalizes that match to "any subtype names the method", since
// the receiver type may itself already be a concrete class.
type CHAStage struct {
	hierarchy ClassHierarchy
	index     *FunctionIndex
	ledger    *EdgeLedger

	// candidatesByCall retains each call site's refined candidate set for
	// RTAStage, keyed by the unresolved call's dedup key.
	candidatesByCall map[string][]CHACandidate
}

// NewCHAStage builds a CHAStage over the given capabilities.
func NewCHAStage(hierarchy ClassHierarchy, index *FunctionIndex, ledger *EdgeLedger) *CHAStage {
	return &CHAStage{
		hierarchy:        hierarchy,
		index:            index,
		ledger:           ledger,
		candidatesByCall: make(map[string][]CHACandidate),
	}
}

// Run processes every entry currently in the ledger's unresolved queue.
func (s *CHAStage) Run() {
	for _, call := range s.ledger.UnresolvedQueue() {
		s.resolveOne(call)
	}
}

func (s *CHAStage) resolveOne(call UnresolvedCall) {
	var classes []string
	if call.ReceiverType != "" {
		classes = s.hierarchy.SubtypesOf(call.ReceiverType)
	}

	var fns []Function
	if len(classes) > 0 {
		fns = s.index.ByNameAndClasses(call.MethodName, classes)
	} else {
		// No declared receiver type, or one with no known subtypes: fall
		// back to every function with this name across the whole program, still deterministically
		// ordered, so at least a best-effort candidate set exists.
		fns = s.index.ByNameAnyFile(call.MethodName)
	}
	if len(fns) == 0 {
		return
	}

	candidates := make([]CHACandidate, 0, len(fns))
	for _, fn := range fns {
		candidates = append(candidates, CHACandidate{ClassName: fn.ClassName, FunctionID: fn.ID})
	}
	s.candidatesByCall[call.Key()] = candidates

	primary := fns[0]
	hasAbstractParent := false
	receiverIsClass := call.ReceiverType != "" && !s.hierarchy.IsInterface(call.ReceiverType)
	for _, c := range classes {
		if s.hierarchy.IsAbstract(c) {
			hasAbstractParent = true
			break
		}
	}

	candidateIDs := make([]string, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.FunctionID
	}

	edge := NewEdge(call.CallerID, primary.ID, call.MethodName, primary.ClassName, CallVirtual,
		call.Line, call.Column, LevelCHAResolved, "cha",
		call.OptionalChain, hasAbstractParent, receiverIsClass)
	edge.Candidates = candidateIDs
	s.ledger.AddEdge(edge, s.index)
}

// CandidatesFor returns the candidate set CHAStage computed for an
// unresolved call key, for RTAStage's refinement pass.
func (s *CHAStage) CandidatesFor(callKey string) ([]CHACandidate, bool) {
	c, ok := s.candidatesByCall[callKey]
	return c, ok
}

// CallsByKey returns every unresolved call CHAStage processed, keyed the
// same way as CandidatesFor, so RTAStage can recover line/column/caller
// without re-walking source.
func (s *CHAStage) CallsByKey(calls []UnresolvedCall) map[string]UnresolvedCall {
	out := make(map[string]UnresolvedCall, len(calls))
	for _, c := range calls {
		out[c.Key()] = c
	}
	return out
}
