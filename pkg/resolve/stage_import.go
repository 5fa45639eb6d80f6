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

// ImportStage resolves calls LocalStage left alone: identifier calls whose
// declaration lives in another file reached through an import, and
// property-access calls (obj.method()) whose receiver is not "this". A
// property-access call it cannot settle to an exact callee is handed to
// CHAStage as an UnresolvedCall, carrying the receiver's declared
// class/interface name rather than the variable's own spelling --
// ImportStage is the pipeline's sole enqueuer. An identifier call it
// cannot resolve is not enqueued and gets no edge.
//
// Grounded on the teacher's resolver.go: buildImportPathMapping's
// direct/suffix/basename fallback chain, and resolveDotImportCall's
// builtin-module short-circuit before any lookup is attempted.
type ImportStage struct {
	syntax SyntaxOracle
	types  TypeOracle
	index  *FunctionIndex
	ledger *EdgeLedger
}

// NewImportStage builds an ImportStage over the given capabilities.
func NewImportStage(syntax SyntaxOracle, types TypeOracle, index *FunctionIndex, ledger *EdgeLedger) *ImportStage {
	return &ImportStage{syntax: syntax, types: types, index: index, ledger: ledger}
}

// Run walks one file, handling only the call shapes LocalStage does not
// fully settle. Call sites LocalStage already resolved are harmless to
// revisit: AddEdge's monotone-confidence rule means a second, lower- or
// equal-confidence proposal at the same key is simply ignored.
func (s *ImportStage) Run(filePath string) error {
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

func (s *ImportStage) handleNew(filePath string, n Node) {
	callerID, ok := s.index.ByFileLine(filePath, n.StartLine())
	if !ok {
		return
	}
	typeName := s.syntax.NewTypeName(n)
	if typeName == "" {
		return
	}

	calleeID, ok := s.index.ConstructorOf(typeName)
	if !ok {
		return
	}
	edge := NewEdge(callerID, calleeID, typeName, typeName, CallConstructor,
		n.StartLine(), n.StartColumn(), LevelImportExact, "constructor_import",
		false, false, false)
	s.ledger.AddEdge(edge, s.index)
}

func (s *ImportStage) handleCall(filePath string, n Node) {
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
		s.resolveIdentifier(filePath, n, callee, callerID)
	case NodePropertyAccess:
		s.resolveProperty(filePath, n, callee, callerID)
	}
}

// resolveIdentifier handles a bare-name call whose declaration may be an
// imported symbol rather than a same-file one.
func (s *ImportStage) resolveIdentifier(filePath string, callNode, identNode Node, callerID string) {
	name := identNode.Text()
	decl := ResolveImported(s.types, identNode)

	if decl == nil {
		// No symbol information at all: nothing further to try, and an
		// unqualified name gives CHA no receiver type to search on, so it
		// is not worth enqueueing.
		return
	}

	if decl.ImportedFrom != "" && s.types.IsBuiltinModule(decl.ImportedFrom) {
		s.ledger.MarkExternal(nodeIdentity(filePath, callNode))
		return
	}

	calleeID, ok := s.index.ByFileLine(decl.FilePath, decl.Line)
	if !ok {
		ids := s.index.ByName(decl.FilePath, name)
		if len(ids) == 0 {
			return
		}
		calleeID = ids[0]
	}

	fn, ok := s.index.ByID(calleeID)
	if !ok {
		return
	}
	edge := NewEdge(callerID, calleeID, name, fn.ClassName, CallDirect,
		callNode.StartLine(), callNode.StartColumn(), LevelImportExact, "identifier_import",
		false, false, false)
	s.ledger.AddEdge(edge, s.index)
}

// resolveProperty handles obj.method() sites: this is ImportStage's
// primary job, since these calls are structurally virtual (the receiver's
// declared type may have many implementations) and are never settled by
// LocalStage except for this.method().
func (s *ImportStage) resolveProperty(filePath string, callNode, propNode Node, callerID string) {
	receiver := s.syntax.PropertyReceiver(propNode)
	if receiver == nil || receiver.Kind() == NodeThis {
		// this.method() already handled (or attempted) by LocalStage.
		return
	}

	name := s.syntax.PropertyName(propNode)
	optional := s.syntax.IsOptionalChain(propNode)
	identity := nodeIdentity(filePath, callNode)

	decl := ResolveImported(s.types, receiver)
	receiverType := ReceiverTypeName(s.types, receiver)

	if decl != nil && decl.ImportedFrom != "" && s.types.IsBuiltinModule(decl.ImportedFrom) {
		s.ledger.MarkExternal(identity)
		return
	}

	if decl != nil && receiverType != "" {
		// The receiver's declaration site is known: if its declared class
		// resolves to a single exact function, take the import_exact path.
		// Otherwise enqueue for CHA with the declared receiver type, never
		// the variable's own spelling.
		candidates := s.index.ByNameAndClasses(name, []string{receiverType})
		if len(candidates) == 1 {
			fn := candidates[0]
			edge := NewEdge(callerID, fn.ID, name, fn.ClassName, CallVirtual,
				callNode.StartLine(), callNode.StartColumn(), LevelImportExact, "field_import",
				optional, false, false)
			s.ledger.AddEdge(edge, s.index)
			return
		}
	}

	s.ledger.EnqueueUnresolved(UnresolvedCall{
		CallerID:      callerID,
		MethodName:    name,
		ReceiverType:  receiverType,
		FilePath:      filePath,
		Line:          callNode.StartLine(),
		Column:        callNode.StartColumn(),
		OptionalChain: optional,
	}, identity)
}
