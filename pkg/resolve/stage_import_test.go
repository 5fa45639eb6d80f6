// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStage_PropertyAccess_SingleCandidate_ImportExact(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:bark", Name: "bark", ClassName: "Dog", FilePath: "dog.ts", StartLine: 1, EndLine: 3},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	recvNode := &fakeNode{kind: NodeIdentifier, text: "d", line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = recvNode
	syntax.propertyNameOf[propNode] = "bark"

	types := &fakeTypeOracle{
		declaredTypes: map[string]string{"d": "Dog"},
		symbols:       map[string]*Symbol{"d": {Declarations: []Declaration{{FilePath: "dog.ts", Line: 1, ImportedFrom: "./dog"}}}},
	}

	ledger := NewEdgeLedger()
	stage := NewImportStage(syntax, types, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "fn:bark", edges[0].CalleeID)
	assert.Equal(t, LevelImportExact, edges[0].Level)
	assert.Empty(t, ledger.UnresolvedQueue())
}

func TestImportStage_PropertyAccess_MultipleCandidates_Enqueues(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:dogBark", Name: "bark", ClassName: "Dog", FilePath: "dog.ts", StartLine: 1, EndLine: 3},
		{ID: "fn:puppyBark", Name: "bark", ClassName: "Puppy", FilePath: "puppy.ts", StartLine: 1, EndLine: 3},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	recvNode := &fakeNode{kind: NodeIdentifier, text: "d", line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = recvNode
	syntax.propertyNameOf[propNode] = "bark"

	types := &fakeTypeOracle{declaredTypes: map[string]string{"d": "Speaker"}}

	ledger := NewEdgeLedger()
	stage := NewImportStage(syntax, types, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	assert.Empty(t, ledger.Edges(), "a declared type with no direct same-named-class match never resolves at import stage")
	queue := ledger.UnresolvedQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, "bark", queue[0].MethodName)
	assert.Equal(t, "Speaker", queue[0].ReceiverType, "the enqueued receiver type is the declared type, never the variable spelling")
}

func TestImportStage_BuiltinReceiver_MarksExternalAndNeverEnqueues(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", FilePath: "a.ts", StartLine: 1, EndLine: 10},
	})
	require.NoError(t, err)

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	recvNode := &fakeNode{kind: NodeIdentifier, text: "fs", line: 3, col: 1}
	syntax.nodesByFile["a.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = recvNode
	syntax.propertyNameOf[propNode] = "readFile"

	types := &fakeTypeOracle{
		symbols:  map[string]*Symbol{"fs": {Declarations: []Declaration{{ImportedFrom: "node:fs"}}}},
		builtins: map[string]bool{"node:fs": true},
	}

	ledger := NewEdgeLedger()
	stage := NewImportStage(syntax, types, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	assert.Empty(t, ledger.Edges())
	assert.Empty(t, ledger.UnresolvedQueue())
}

func TestImportStage_ThisReceiver_LeftToLocalStage(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:main", Name: "main", ClassName: "Dog", FilePath: "a.ts", StartLine: 1, EndLine: 10},
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

	types := &fakeTypeOracle{}

	ledger := NewEdgeLedger()
	stage := NewImportStage(syntax, types, idx, ledger)
	require.NoError(t, stage.Run("a.ts"))

	assert.Empty(t, ledger.Edges())
	assert.Empty(t, ledger.UnresolvedQueue())
}
