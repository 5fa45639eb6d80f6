// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStage_IdentifierCall_PrefersSameClassMethod(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:free", Name: "helper", FilePath: "a.ts", StartLine: 20, EndLine: 22},
		{ID: "fn:method", Name: "helper", ClassName: "Dog", FilePath: "a.ts", StartLine: 30, EndLine: 32},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	calleeIdent := &fakeNode{kind: NodeIdentifier, text: "helper", line: 3, col: 5}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = calleeIdent
	syntax.enclosingClassOf[callNode] = "Dog"

	ledger := NewEdgeLedger()
	stage := NewLocalStage(syntax, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "fn:method", edges[0].CalleeID, "bare call inside a method should prefer the sibling method over a free function")
	assert.Equal(t, LevelLocalExact, edges[0].Level)
}

func TestLocalStage_ThisCall_SameClassOnly(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "speak", ClassName: "Dog", FilePath: "a.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:bark", Name: "bark", ClassName: "Dog", FilePath: "a.ts", StartLine: 20, EndLine: 22},
		{ID: "fn:otherBark", Name: "bark", ClassName: "Cat", FilePath: "a.ts", StartLine: 30, EndLine: 32},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	thisNode := &fakeNode{kind: NodeThis, text: "this", line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = thisNode
	syntax.propertyNameOf[propNode] = "bark"
	syntax.enclosingClassOf[callNode] = "Dog"

	ledger := NewEdgeLedger()
	stage := NewLocalStage(syntax, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "fn:bark", edges[0].CalleeID)
}

func TestLocalStage_PropertyAccessOnNonThis_NotHandled(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:bark", Name: "bark", ClassName: "Dog", FilePath: "a.ts", StartLine: 20, EndLine: 22},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	receiverIdent := &fakeNode{kind: NodeIdentifier, text: "d", line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = receiverIdent
	syntax.propertyNameOf[propNode] = "bark"

	ledger := NewEdgeLedger()
	stage := NewLocalStage(syntax, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	assert.Empty(t, ledger.Edges(), "LocalStage must leave non-this property access to ImportStage")
}

func TestLocalStage_New_RecordsInstantiationEvenWithoutConstructor(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	newNode := &fakeNode{kind: NodeNew, line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{newNode}
	syntax.newTypeOf[newNode] = "Dog"

	ledger := NewEdgeLedger()
	stage := NewLocalStage(syntax, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	events := ledger.Instantiations()
	require.Len(t, events, 1)
	assert.Equal(t, "Dog", events[0].TypeName)
	assert.Empty(t, ledger.Edges(), "no constructor indexed, so no edge, but the instantiation is still recorded")
}
