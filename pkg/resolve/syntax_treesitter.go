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
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterSyntaxOracle is the default SyntaxOracle, covering both
// JavaScript and TypeScript source through go-tree-sitter grammars. It
// guesses the grammar from the file extension (.ts/.tsx -> TypeScript,
// everything else -> JavaScript).
//
// Grounded on the teacher's parser_treesitter.go (per-language sync.Pool
// of parsers, since tree-sitter parsers are not safe for concurrent use)
// and parser_javascript.go's node classification (call_expression,
// member_expression, class_declaration).
type TreeSitterSyntaxOracle struct {
	jsPool sync.Pool
	tsPool sync.Pool
	once   sync.Once
}

// NewTreeSitterSyntaxOracle builds a ready-to-use oracle.
func NewTreeSitterSyntaxOracle() *TreeSitterSyntaxOracle {
	return &TreeSitterSyntaxOracle{}
}

func (o *TreeSitterSyntaxOracle) initPools() {
	o.once.Do(func() {
		o.jsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(javascript.GetLanguage())
			return p
		}
		o.tsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(typescript.GetLanguage())
			return p
		}
	})
}

func isTypeScriptPath(path string) bool {
	return strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".tsx")
}

// tsNode is the concrete Node implementation wrapping a *sitter.Node and
// the source bytes it was parsed from.
type tsNode struct {
	n      *sitter.Node
	source []byte
	kind   NodeKind
	file   string
}

func (n *tsNode) Kind() NodeKind   { return n.kind }
func (n *tsNode) Text() string     { return string(n.source[n.n.StartByte():n.n.EndByte()]) }
func (n *tsNode) StartLine() int   { return int(n.n.StartPoint().Row) + 1 }
func (n *tsNode) StartColumn() int { return int(n.n.StartPoint().Column) + 1 }

// File returns the path of the file this node was parsed from. Not part
// of the Node interface; TypeOracle implementations that need file
// context type-assert to *tsNode the same way CallCallee and friends do.
func (n *tsNode) File() string { return n.file }

func classifyNodeType(nodeType string) NodeKind {
	switch nodeType {
	case "call_expression":
		return NodeCall
	case "new_expression":
		return NodeNew
	case "member_expression", "subscript_expression":
		return NodePropertyAccess
	case "identifier", "property_identifier", "shorthand_property_identifier":
		return NodeIdentifier
	case "this":
		return NodeThis
	case "function_declaration", "function_expression", "arrow_function", "method_definition", "generator_function_declaration":
		return NodeFunctionLike
	case "class_declaration", "class":
		return NodeClass
	case "program":
		return NodeModuleDeclaration
	case "import_statement":
		return NodeImportDeclaration
	default:
		return NodeOther
	}
}

func (o *TreeSitterSyntaxOracle) wrap(n *sitter.Node, source []byte, file string) *tsNode {
	if n == nil {
		return nil
	}
	return &tsNode{n: n, source: source, kind: classifyNodeType(n.Type()), file: file}
}

// Walk parses filePath and visits every descendant node in pre-order.
func (o *TreeSitterSyntaxOracle) Walk(filePath string, visit func(Node) bool) error {
	o.initPools()

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	pool := &o.jsPool
	if isTypeScriptPath(filePath) {
		pool = &o.tsPool
	}
	parserObj := pool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return fmt.Errorf("syntax oracle: invalid parser type from pool for %s", filePath)
	}
	defer pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n == nil {
			return true
		}
		if !visit(o.wrap(n, content, filePath)) {
			return false
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if !walk(n.Child(i)) {
				return false
			}
		}
		return true
	}
	walk(tree.RootNode())
	return nil
}

// CallCallee returns the callee sub-node of a call_expression/new_expression.
func (o *TreeSitterSyntaxOracle) CallCallee(node Node) Node {
	t, ok := node.(*tsNode)
	if !ok {
		return nil
	}
	var field string
	switch t.n.Type() {
	case "call_expression":
		field = "function"
	case "new_expression":
		field = "constructor"
	default:
		return nil
	}
	return o.wrap(t.n.ChildByFieldName(field), t.source, t.file)
}

// PropertyReceiver returns the object sub-node of a member_expression.
func (o *TreeSitterSyntaxOracle) PropertyReceiver(node Node) Node {
	t, ok := node.(*tsNode)
	if !ok || t.n.Type() != "member_expression" {
		return nil
	}
	return o.wrap(t.n.ChildByFieldName("object"), t.source, t.file)
}

// PropertyName returns the member name of a member_expression.
func (o *TreeSitterSyntaxOracle) PropertyName(node Node) string {
	t, ok := node.(*tsNode)
	if !ok || t.n.Type() != "member_expression" {
		return ""
	}
	prop := t.n.ChildByFieldName("property")
	if prop == nil {
		return ""
	}
	return string(t.source[prop.StartByte():prop.EndByte()])
}

// NewTypeName returns the constructed type's simple name from a
// new_expression, stripping any generic argument list and any namespace
// qualifier ("a.B" yields "B").
func (o *TreeSitterSyntaxOracle) NewTypeName(node Node) string {
	t, ok := node.(*tsNode)
	if !ok || t.n.Type() != "new_expression" {
		return ""
	}
	ctor := t.n.ChildByFieldName("constructor")
	if ctor == nil {
		return ""
	}
	name := string(t.source[ctor.StartByte():ctor.EndByte()])
	if idx := strings.IndexByte(name, '<'); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// IsOptionalChain reports whether a member_expression used "?." in the
// source text directly between the receiver's end and the property's
// start. The JavaScript/TypeScript tree-sitter grammars do not expose
// optional chaining as a distinct field, so this inspects the raw bytes.
func (o *TreeSitterSyntaxOracle) IsOptionalChain(node Node) bool {
	t, ok := node.(*tsNode)
	if !ok || t.n.Type() != "member_expression" {
		return false
	}
	obj := t.n.ChildByFieldName("object")
	prop := t.n.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return false
	}
	between := string(t.source[obj.EndByte():prop.StartByte()])
	return strings.Contains(between, "?.")
}

// EnclosingFunction returns the nearest function-like ancestor.
func (o *TreeSitterSyntaxOracle) EnclosingFunction(node Node) Node {
	t, ok := node.(*tsNode)
	if !ok {
		return nil
	}
	for p := t.n.Parent(); p != nil; p = p.Parent() {
		if classifyNodeType(p.Type()) == NodeFunctionLike {
			return o.wrap(p, t.source, t.file)
		}
	}
	return nil
}

// EnclosingClass returns the name of the nearest enclosing class.
func (o *TreeSitterSyntaxOracle) EnclosingClass(node Node) string {
	t, ok := node.(*tsNode)
	if !ok {
		return ""
	}
	for p := t.n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "class_declaration" || p.Type() == "abstract_class_declaration" {
			nameNode := p.ChildByFieldName("name")
			if nameNode == nil {
				return ""
			}
			return string(t.source[nameNode.StartByte():nameNode.EndByte()])
		}
	}
	return ""
}
