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

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DiscoverFunctions builds the Function catalog a Coordinator.Run call
// needs by parsing every file itself: function declarations, class methods,
// and named arrow/function-expression bindings, each attributed to its
// enclosing class when nested inside one.
//
// Grounded on the teacher's parser_javascript.go walkJSFunctions: the same
// node shapes (function_declaration, method_definition, variable_declarator
// wrapping an arrow_function or function_expression), generalized to also
// record the enclosing class_declaration so methods get a ClassName.
// snapshotTag distinguishes function ids across re-indexed snapshots of the
// same file (pass the empty string for a single, non-incremental run).
func DiscoverFunctions(paths []string, snapshotTag string) ([]Function, error) {
	var jsParser, tsParser *sitter.Parser

	var functions []Function
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("discover functions: read %s: %w", path, err)
		}

		var parser *sitter.Parser
		if isTypeScriptPath(path) {
			if tsParser == nil {
				tsParser = sitter.NewParser()
				tsParser.SetLanguage(typescript.GetLanguage())
			}
			parser = tsParser
		} else {
			if jsParser == nil {
				jsParser = sitter.NewParser()
				jsParser.SetLanguage(javascript.GetLanguage())
			}
			parser = jsParser
		}

		tree, err := parser.ParseCtx(context.Background(), nil, content)
		if err != nil {
			return nil, fmt.Errorf("discover functions: parse %s: %w", path, err)
		}

		walkDiscoverNode(tree.RootNode(), content, path, snapshotTag, "", &functions)
		tree.Close()
	}

	return functions, nil
}

// walkDiscoverNode recursively visits n, recording functions found directly
// at this level and recursing with enclosingClass set whenever it descends
// into a class_declaration body.
func walkDiscoverNode(n *sitter.Node, content []byte, path, snapshotTag, enclosingClass string, out *[]Function) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		if fn := discoverNamedFunction(n, content, path, snapshotTag, enclosingClass); fn != nil {
			*out = append(*out, *fn)
		}
	case "method_definition":
		if fn := discoverMethod(n, content, path, snapshotTag, enclosingClass); fn != nil {
			*out = append(*out, *fn)
		}
	case "variable_declarator":
		nameNode := n.ChildByFieldName("name")
		valueNode := n.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function_expression", "function":
				if fn := discoverBoundFunction(nameNode, valueNode, content, path, snapshotTag, enclosingClass); fn != nil {
					*out = append(*out, *fn)
				}
			}
		}
	case "class_declaration", "abstract_class_declaration":
		nameNode := n.ChildByFieldName("name")
		className := enclosingClass
		if nameNode != nil {
			className = string(content[nameNode.StartByte():nameNode.EndByte()])
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walkDiscoverNode(n.Child(i), content, path, snapshotTag, className, out)
		}
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkDiscoverNode(n.Child(i), content, path, snapshotTag, enclosingClass, out)
	}
}

func discoverNamedFunction(n *sitter.Node, content []byte, path, snapshotTag, class string) *Function {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	return &Function{
		ID:        GenerateFunctionID(path, class, name, snapshotTag, startLine),
		Name:      name,
		ClassName: class,
		FilePath:  path,
		StartLine: startLine,
		EndLine:   endLine,
		Signature: name + paramsText(n, content),
	}
}

func discoverMethod(n *sitter.Node, content []byte, path, snapshotTag, class string) *Function {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1
	return &Function{
		ID:        GenerateFunctionID(path, class, name, snapshotTag, startLine),
		Name:      name,
		ClassName: class,
		FilePath:  path,
		StartLine: startLine,
		EndLine:   endLine,
		Signature: name + paramsText(n, content),
	}
}

func discoverBoundFunction(nameNode, valueNode *sitter.Node, content []byte, path, snapshotTag, class string) *Function {
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	startLine := int(nameNode.StartPoint().Row) + 1
	endLine := int(valueNode.EndPoint().Row) + 1
	return &Function{
		ID:        GenerateFunctionID(path, class, name, snapshotTag, startLine),
		Name:      name,
		ClassName: class,
		FilePath:  path,
		StartLine: startLine,
		EndLine:   endLine,
		Signature: name + paramsText(valueNode, content),
	}
}

// paramsText returns "(...)" for a function-like node's parameter list,
// or "()" if it has none, for Function.Signature.
func paramsText(n *sitter.Node, content []byte) string {
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = n.ChildByFieldName("parameter")
	}
	if paramsNode == nil {
		return "()"
	}
	text := string(content[paramsNode.StartByte():paramsNode.EndByte()])
	if !strings.HasPrefix(text, "(") {
		text = "(" + text + ")"
	}
	return text
}
