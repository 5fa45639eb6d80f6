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

import "fmt"

// LocalStage resolves call sites whose callee is unambiguously defined in
// the same file: bare identifier calls and this.method() calls. It is the
// first and cheapest stage; everything it cannot resolve is left for
// ImportStage to pick up (property-access calls on non-this receivers are
// never enqueued here, only by ImportStage, matching the "import stage is
// sole enqueuer" rule).
//
// Grounded on the two-pass containment walk in the teacher's
// parser_go.go (walkGoAST collects function bodies, then a second pass
// classifies each call_expression against the file's own function set).
type LocalStage struct {
	syntax SyntaxOracle
	index  *FunctionIndex
	ledger *EdgeLedger
}

// NewLocalStage builds a LocalStage over the given capabilities.
func NewLocalStage(syntax SyntaxOracle, index *FunctionIndex, ledger *EdgeLedger) *LocalStage {
	return &LocalStage{syntax: syntax, index: index, ledger: ledger}
}

// Run walks one file and resolves its local call sites, recording every
// "new T(...)" as an instantiation event regardless of resolution outcome.
func (s *LocalStage) Run(filePath string) error {
	return s.syntax.Walk(filePath, func(n Node) bool {
		switch n.Kind() {
		case NodeNew:
			s.handleNew(filePath, n)
		case NodeCall:
			s.handleCall(filePath, n)
		}
		return true
	})
}

func (s *LocalStage) handleNew(filePath string, n Node) {
	typeName := s.syntax.NewTypeName(n)
	if typeName == "" {
		return
	}
	s.ledger.RecordInstantiation(InstantiationEvent{
		TypeName: typeName,
		FilePath: filePath,
		Line:     n.StartLine(),
		Kind:     InstantiationConstructor,
	})

	callerID, ok := s.index.ByFileLine(filePath, n.StartLine())
	if !ok {
		return
	}
	calleeID, ok := s.index.ConstructorOf(typeName)
	if !ok {
		return
	}
	if ctor, found := s.index.ByID(calleeID); !found || ctor.FilePath != filePath {
		return
	}
	edge := NewEdge(callerID, calleeID, typeName, typeName, CallConstructor,
		n.StartLine(), n.StartColumn(), LevelLocalExact, "constructor_local",
		false, false, false)
	s.ledger.AddEdge(edge, s.index)
}

func (s *LocalStage) handleCall(filePath string, n Node) {
	callerID, ok := s.index.ByFileLine(filePath, n.StartLine())
	if !ok {
		return
	}

	callee := s.syntax.CallCallee(n)
	if callee == nil {
		return
	}

	switch callee.Kind() {
	case NodeIdentifier:
		s.resolveIdentifierCall(filePath, n, callee, callerID)
	case NodePropertyAccess:
		s.resolveThisCall(filePath, n, callee, callerID)
	}
}

// resolveIdentifierCall handles bare name calls: f(...). Candidates are
// restricted to the same file; same-class methods are preferred over
// free functions when both exist, since a bare call inside a method body
// most often means "call my sibling method."
func (s *LocalStage) resolveIdentifierCall(filePath string, callNode, calleeNode Node, callerID string) {
	name := calleeNode.Text()
	ids := s.index.ByName(filePath, name)
	if len(ids) == 0 {
		return
	}

	enclosingClass := s.syntax.EnclosingClass(callNode)
	calleeID := ids[0]
	if enclosingClass != "" {
		for _, id := range ids {
			fn, ok := s.index.ByID(id)
			if ok && fn.ClassName == enclosingClass {
				calleeID = id
				break
			}
		}
	}

	fn, ok := s.index.ByID(calleeID)
	if !ok {
		return
	}

	edge := NewEdge(callerID, calleeID, name, fn.ClassName, CallDirect,
		callNode.StartLine(), callNode.StartColumn(), LevelLocalExact, "identifier_local",
		false, false, false)
	s.ledger.AddEdge(edge, s.index)
}

// resolveThisCall handles this.method() sites: the receiver must be the
// literal "this" keyword and the method must be declared on the enclosing
// class, in the same file.
func (s *LocalStage) resolveThisCall(filePath string, callNode, propNode Node, callerID string) {
	receiver := s.syntax.PropertyReceiver(propNode)
	if receiver == nil || receiver.Kind() != NodeThis {
		return
	}

	enclosingClass := s.syntax.EnclosingClass(callNode)
	if enclosingClass == "" {
		return
	}

	name := s.syntax.PropertyName(propNode)
	optional := s.syntax.IsOptionalChain(propNode)

	for _, id := range s.index.ByName(filePath, name) {
		fn, ok := s.index.ByID(id)
		if !ok || fn.ClassName != enclosingClass {
			continue
		}
		edge := NewEdge(callerID, id, name, fn.ClassName, CallDirect,
			callNode.StartLine(), callNode.StartColumn(), LevelLocalExact, "this_local",
			optional, false, false)
		s.ledger.AddEdge(edge, s.index)
		return
	}
}

// nodeIdentity produces the opaque key EdgeLedger uses to recognize the
// same call site across stages (LocalStage never marks anything external,
// but the identity scheme is shared with ImportStage for consistency).
func nodeIdentity(filePath string, n Node) string {
	return fmt.Sprintf("%s:%d:%d", filePath, n.StartLine(), n.StartColumn())
}
