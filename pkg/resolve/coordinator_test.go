// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoordinator_FullPipeline_RTANarrowsPastCHA exercises the whole
// local -> import -> cha -> rta chain against a Speaker interface
// implemented by Dog and Puppy, where only Dog is ever instantiated. The
// receiver is declared as the interface type (not an abstract class), so
// CHA's confidence stays at the flat 0.80 base and RTA's flat 0.90 can
// legitimately replace it under the ledger's monotone-confidence rule.
func TestCoordinator_FullPipeline_RTANarrowsPastCHA(t *testing.T) {
	functions := []Function{
		{ID: "fn:main", Name: "main", FilePath: "main.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:dogBark", Name: "bark", ClassName: "Dog", FilePath: "dog.ts", StartLine: 1, EndLine: 3},
		{ID: "fn:puppyBark", Name: "bark", ClassName: "Puppy", FilePath: "puppy.ts", StartLine: 1, EndLine: 3},
	}

	syntax := newFakeSyntaxOracle()
	newNode := &fakeNode{kind: NodeNew, line: 2, col: 1}
	callNode := &fakeNode{kind: NodeCall, line: 5, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 5, col: 3}
	recvNode := &fakeNode{kind: NodeIdentifier, text: "d", line: 5, col: 1}

	syntax.nodesByFile["main.ts"] = []*fakeNode{newNode, callNode}
	syntax.newTypeOf[newNode] = "Dog"
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = recvNode
	syntax.propertyNameOf[propNode] = "bark"

	types := &fakeTypeOracle{declaredTypes: map[string]string{"d": "Speaker"}}

	hierarchy := newFakeHierarchy()
	hierarchy.subtypes["Speaker"] = []string{"Dog", "Puppy"}
	hierarchy.interface_["Speaker"] = true
	hierarchy.interfaces["Dog"] = []string{"Speaker"}
	hierarchy.interfaces["Puppy"] = []string{"Speaker"}

	coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)
	result, err := coordinator.Run(context.Background(), []string{"main.ts"}, functions, nil, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Edges, 1, "CHA's and RTA's edges occupy the same dedup key; only the winner survives")
	edge := result.Edges[0]
	assert.Equal(t, "fn:dogBark", edge.CalleeID, "RTA narrows the virtual call to the only instantiated implementer")
	assert.Equal(t, LevelRTAResolved, edge.Level)
	assert.InDelta(t, 0.90, edge.Confidence, 1e-9)

	assert.Equal(t, 1, result.Statistics.RTAEdges)
	assert.Equal(t, 0, result.Statistics.CHAEdges, "the CHA edge this call produced was superseded before stats were tallied")
	assert.Equal(t, 1.0, result.Statistics.CHAReductionRate)
	assert.Equal(t, StateDone, coordinator.State())
}

func TestCoordinator_CancelledMidWalk_ReturnsPartialResult(t *testing.T) {
	functions := []Function{
		{ID: "fn:main", Name: "main", FilePath: "main.ts", StartLine: 1, EndLine: 10},
	}

	syntax := newFakeSyntaxOracle()
	types := &fakeTypeOracle{}
	hierarchy := newFakeHierarchy()

	coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := coordinator.Run(ctx, []string{"main.ts", "other.ts"}, functions, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, result.Statistics.Cancelled)
	assert.Equal(t, StateIdle, coordinator.State())
}

// TestCoordinator_Run_DeterministicAcrossRepeatedRuns exercises spec 8.1
// (byte-identical edge list across two runs over unchanged input) with
// ParseWorkers > 1, where file-walk order is no longer guaranteed: without
// EdgeLedger.Edges sorting its output, this would flake.
func TestCoordinator_Run_DeterministicAcrossRepeatedRuns(t *testing.T) {
	var functions []Function
	var files []string
	syntax := newFakeSyntaxOracle()

	for i := 0; i < 8; i++ {
		file := "f" + string(rune('a'+i)) + ".ts"
		files = append(files, file)
		callerID := "fn:caller" + string(rune('a'+i))
		calleeID := "fn:callee" + string(rune('a'+i))
		functions = append(functions,
			Function{ID: callerID, Name: "caller", FilePath: file, StartLine: 1, EndLine: 5},
			Function{ID: calleeID, Name: "callee", FilePath: file, StartLine: 10, EndLine: 12},
		)

		callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
		identNode := &fakeNode{kind: NodeIdentifier, text: "callee", line: 3, col: 1}
		syntax.nodesByFile[file] = []*fakeNode{callNode}
		syntax.calleeOf[callNode] = identNode
	}

	types := &fakeTypeOracle{}
	hierarchy := newFakeHierarchy()

	run := func() Result {
		coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)
		opts := DefaultOptions()
		opts.Concurrency.ParseWorkers = 8
		result, err := coordinator.Run(context.Background(), files, functions, nil, opts)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.Edges, second.Edges, "edge order must not depend on which parse worker finishes which file first")
}

// TestCoordinator_ForceSecondPass_RetriesOnlyWhenFirstPassIsEmpty covers
// the spec 6 environment toggle: a second walk fires only when the first
// produced zero edges despite walking files successfully, and never fires
// otherwise.
func TestCoordinator_ForceSecondPass_RetriesOnlyWhenFirstPassIsEmpty(t *testing.T) {
	functions := []Function{
		{ID: "fn:main", Name: "main", FilePath: "main.ts", StartLine: 1, EndLine: 10},
	}
	syntax := newFakeSyntaxOracle()
	types := &fakeTypeOracle{}
	hierarchy := newFakeHierarchy()

	coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)
	opts := DefaultOptions()
	opts.ForceSecondPass = true

	result, err := coordinator.Run(context.Background(), []string{"main.ts"}, functions, nil, opts)
	require.NoError(t, err)

	assert.True(t, result.Statistics.SecondPassRun, "an empty first pass over non-trivial input must trigger a second pass")
	assert.Equal(t, 2, result.Statistics.FilesWalked, "the single file should have been walked once per pass")
}

func TestCoordinator_ForceSecondPass_NoOpWhenFirstPassResolvesEdges(t *testing.T) {
	functions := []Function{
		{ID: "fn:main", Name: "main", ClassName: "Dog", FilePath: "main.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:bark", Name: "bark", ClassName: "Dog", FilePath: "main.ts", StartLine: 20, EndLine: 22},
	}

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	thisNode := &fakeNode{kind: NodeThis, text: "this", line: 3, col: 1}
	syntax.nodesByFile["main.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = thisNode
	syntax.propertyNameOf[propNode] = "bark"
	syntax.enclosingClassOf[callNode] = "Dog"

	types := &fakeTypeOracle{}
	hierarchy := newFakeHierarchy()

	coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)
	opts := DefaultOptions()
	opts.ForceSecondPass = true

	result, err := coordinator.Run(context.Background(), []string{"main.ts"}, functions, nil, opts)
	require.NoError(t, err)

	assert.False(t, result.Statistics.SecondPassRun, "a first pass that resolves edges must not trigger a second pass")
	assert.Equal(t, 1, result.Statistics.FilesWalked)
}

func TestCoordinator_RuntimeObservations_ConfirmExistingEdge(t *testing.T) {
	functions := []Function{
		{ID: "fn:main", Name: "main", ClassName: "Dog", FilePath: "main.ts", StartLine: 1, EndLine: 10},
		{ID: "fn:bark", Name: "bark", ClassName: "Dog", FilePath: "main.ts", StartLine: 20, EndLine: 22},
	}

	syntax := newFakeSyntaxOracle()
	callNode := &fakeNode{kind: NodeCall, line: 3, col: 1}
	propNode := &fakeNode{kind: NodePropertyAccess, line: 3, col: 3}
	thisNode := &fakeNode{kind: NodeThis, text: "this", line: 3, col: 1}
	syntax.nodesByFile["main.ts"] = []*fakeNode{callNode}
	syntax.calleeOf[callNode] = propNode
	syntax.receiverOf[propNode] = thisNode
	syntax.propertyNameOf[propNode] = "bark"
	syntax.enclosingClassOf[callNode] = "Dog"

	types := &fakeTypeOracle{}
	hierarchy := newFakeHierarchy()

	coordinator := NewCoordinator(syntax, types, hierarchy, nil, nil)
	result, err := coordinator.Run(context.Background(), []string{"main.ts"}, functions, []RuntimeObservation{
		{CallerID: "fn:main", CalleeID: "fn:bark", Line: 3},
	}, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Edges, 1)
	assert.True(t, result.Edges[0].RuntimeConfirmed)
	assert.Equal(t, LevelRuntimeConfirmed, result.Edges[0].Level)
	assert.Equal(t, 1, result.Statistics.RuntimeConfirmed)
}
