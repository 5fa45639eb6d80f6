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

// RTAStage narrows CHA's candidate sets down to classes actually
// constructed somewhere in the program (rapid type analysis). It only
// ever removes candidates CHA already proposed; it never invents a
// callee CHA did not see, and it only emits an edge when the narrowed set
// is a strict, non-empty subset of the original.
//
// Grounded conceptually on the confidence-combination style in
// other_examples' callgraph-resolution-chaining sample: a later stage
// raises confidence only when it has strictly more information than the
// stage before it, never merely agreeing with it.
type RTAStage struct {
	hierarchy ClassHierarchy
	index     *FunctionIndex
	ledger    *EdgeLedger
	cha       *CHAStage

	reducedCalls int
	totalCalls   int
}

// NewRTAStage builds an RTAStage over the given capabilities. cha must be
// the same CHAStage instance that already ran over this ledger.
func NewRTAStage(hierarchy ClassHierarchy, index *FunctionIndex, ledger *EdgeLedger, cha *CHAStage) *RTAStage {
	return &RTAStage{hierarchy: hierarchy, index: index, ledger: ledger, cha: cha}
}

// Run computes the instantiated-class set from the ledger's instantiation
// log, then replays every CHA-processed call against it.
func (s *RTAStage) Run(calls []UnresolvedCall) {
	instantiated := s.instantiatedClasses()

	for _, call := range calls {
		s.refineOne(call, instantiated)
	}
}

// instantiatedClasses expands every instantiated type name to the
// interfaces it implements, since a call against an interface receiver
// must count any instantiated implementer as live.
func (s *RTAStage) instantiatedClasses() map[string]bool {
	live := make(map[string]bool)
	for _, event := range s.ledger.Instantiations() {
		live[event.TypeName] = true
		for _, iface := range s.hierarchy.InterfacesOf(event.TypeName) {
			live[iface] = true
		}
	}
	return live
}

func (s *RTAStage) refineOne(call UnresolvedCall, instantiated map[string]bool) {
	candidates, ok := s.cha.CandidatesFor(call.Key())
	if !ok || len(candidates) == 0 {
		return
	}
	s.totalCalls++

	var refined []CHACandidate
	for _, c := range candidates {
		if instantiated[c.ClassName] {
			refined = append(refined, c)
		}
	}

	if len(refined) == 0 || len(refined) >= len(candidates) {
		// Nothing survived (every candidate class is dead code as far as
		// RTA can tell -- too risky to assert) or nothing was actually
		// eliminated: RTA only speaks up when it strictly narrows CHA.
		return
	}
	s.reducedCalls++

	primary := refined[0]
	candidateIDs := make([]string, len(refined))
	for i, c := range refined {
		candidateIDs[i] = c.FunctionID
	}

	edge := NewEdge(call.CallerID, primary.FunctionID, call.MethodName, primary.ClassName, CallVirtual,
		call.Line, call.Column, LevelRTAResolved, "rta",
		call.OptionalChain, false, false)
	edge.Candidates = candidateIDs
	s.ledger.AddEdge(edge, s.index)
}

// ReductionRate reports the fraction of CHA-processed calls RTA managed
// to strictly narrow, for Statistics.
func (s *RTAStage) ReductionRate() float64 {
	if s.totalCalls == 0 {
		return 0
	}
	return float64(s.reducedCalls) / float64(s.totalCalls)
}
