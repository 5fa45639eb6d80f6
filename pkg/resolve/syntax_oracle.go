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

// NodeKind classifies an AST node the way the core needs to see it,
// independent of the concrete parser behind the SyntaxOracle.
type NodeKind int

const (
	NodeOther NodeKind = iota
	NodeCall
	NodeNew
	NodePropertyAccess
	NodeIdentifier
	NodeThis
	NodeFunctionLike
	NodeClass
	NodeModuleDeclaration
	NodeImportDeclaration
)

// Node is a read-only handle into a parsed file. Concrete SyntaxOracle
// implementations embed whatever identifies a position in their own AST;
// the core only ever touches it through the oracle's accessor methods.
type Node interface {
	Kind() NodeKind
	Text() string
	StartLine() int
	StartColumn() int
}

// SyntaxOracle is the read-only AST traversal and classification
// capability the core consumes. Implementations must guarantee
// deterministic, side-effect-free, pre-order traversal: two walks of the
// same file produce identical node streams.
type SyntaxOracle interface {
	// Walk visits every descendant of the file's root in pre-order,
	// calling visit for each. Returning false from visit stops the walk
	// early (used by stages that only need a subtree).
	Walk(filePath string, visit func(Node) bool) error

	// CallCallee returns the sub-node identifying what a call or new node
	// invokes (an identifier or a property access), or nil if node is not
	// a call/new node.
	CallCallee(node Node) Node

	// PropertyReceiver returns the object expression of a property-access
	// node (the "obj" in "obj.method(...)"), or nil if node is not a
	// property access.
	PropertyReceiver(node Node) Node

	// PropertyName returns the member name of a property-access node.
	PropertyName(node Node) string

	// NewTypeName returns the constructed type name of a "new T(...)"
	// node, or "" if node is not a new-expression.
	NewTypeName(node Node) string

	// IsOptionalChain reports whether a property-access node used "?."
	// rather than ".".
	IsOptionalChain(node Node) bool

	// EnclosingFunction returns the nearest function-like ancestor node
	// containing the given node, or nil if the node is at top level.
	EnclosingFunction(node Node) Node

	// EnclosingClass returns the name of the class the given node is
	// lexically nested in, or "" if none.
	EnclosingClass(node Node) string
}
