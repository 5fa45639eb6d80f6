// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTypeOracle struct {
	declaredTypes map[string]string
	symbols       map[string]*Symbol
	builtins      map[string]bool
}

func (f *fakeTypeOracle) SymbolOf(node Node) *Symbol {
	return f.symbols[node.Text()]
}

func (f *fakeTypeOracle) DeclaredTypeText(node Node) string {
	return f.declaredTypes[node.Text()]
}

func (f *fakeTypeOracle) IsBuiltinModule(moduleSpecifier string) bool {
	return f.builtins[moduleSpecifier]
}

type fakeIdentNode struct {
	text string
}

func (n fakeIdentNode) Kind() NodeKind   { return NodeIdentifier }
func (n fakeIdentNode) Text() string     { return n.text }
func (n fakeIdentNode) StartLine() int   { return 1 }
func (n fakeIdentNode) StartColumn() int { return 1 }

func TestReceiverTypeName_TrailingCapitalizedIdentifier(t *testing.T) {
	oracle := &fakeTypeOracle{declaredTypes: map[string]string{
		"fido":    "Dog",
		"pets":    "Array<Dog>",
		"maybe":   "Shape | null",
		"untyped": "",
	}}

	assert.Equal(t, "Dog", ReceiverTypeName(oracle, fakeIdentNode{text: "fido"}))
	assert.Equal(t, "Dog", ReceiverTypeName(oracle, fakeIdentNode{text: "pets"}))
	assert.Equal(t, "Shape", ReceiverTypeName(oracle, fakeIdentNode{text: "maybe"}))
	assert.Equal(t, "", ReceiverTypeName(oracle, fakeIdentNode{text: "untyped"}))
}

func TestReceiverTypeName_FallsBackToWholeText(t *testing.T) {
	oracle := &fakeTypeOracle{declaredTypes: map[string]string{
		"x": "number",
	}}
	assert.Equal(t, "number", ReceiverTypeName(oracle, fakeIdentNode{text: "x"}))
}

func TestResolveImported(t *testing.T) {
	oracle := &fakeTypeOracle{symbols: map[string]*Symbol{
		"Dog": {Declarations: []Declaration{{FilePath: "dog.ts", Line: 3}}},
	}}

	decl := ResolveImported(oracle, fakeIdentNode{text: "Dog"})
	if assert.NotNil(t, decl) {
		assert.Equal(t, "dog.ts", decl.FilePath)
	}

	assert.Nil(t, ResolveImported(oracle, fakeIdentNode{text: "Unknown"}))
}
