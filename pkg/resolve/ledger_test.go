// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *FunctionIndex {
	t.Helper()
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:caller", Name: "caller", FilePath: "a.ts", StartLine: 1, EndLine: 5},
		{ID: "fn:callee", Name: "callee", FilePath: "a.ts", StartLine: 10, EndLine: 12},
	})
	require.NoError(t, err)
	return idx
}

func TestEdgeLedger_AddEdge_DedupSameKey(t *testing.T) {
	idx := testIndex(t)
	ledger := NewEdgeLedger()

	e1 := NewEdge("fn:caller", "fn:callee", "callee", "", CallDirect, 3, 1, LevelLocalExact, "identifier_local", false, false, false)
	ledger.AddEdge(e1, idx)
	ledger.AddEdge(e1, idx)

	assert.Len(t, ledger.Edges(), 1)
}

func TestEdgeLedger_AddEdge_MonotoneConfidenceReplace(t *testing.T) {
	idx := testIndex(t)
	ledger := NewEdgeLedger()

	cha := NewEdge("fn:caller", "fn:callee", "callee", "Dog", CallVirtual, 3, 1, LevelCHAResolved, "cha", false, false, false)
	ledger.AddEdge(cha, idx)

	rta := NewEdge("fn:caller", "fn:callee", "callee", "Dog", CallVirtual, 3, 1, LevelRTAResolved, "rta", false, false, false)
	ledger.AddEdge(rta, idx)

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, LevelRTAResolved, edges[0].Level, "higher-confidence RTA edge should replace CHA edge at the same key")
}

func TestEdgeLedger_AddEdge_LowerConfidenceNeverReplaces(t *testing.T) {
	idx := testIndex(t)
	ledger := NewEdgeLedger()

	rta := NewEdge("fn:caller", "fn:callee", "callee", "Dog", CallVirtual, 3, 1, LevelRTAResolved, "rta", false, false, false)
	ledger.AddEdge(rta, idx)

	cha := NewEdge("fn:caller", "fn:callee", "callee", "Dog", CallVirtual, 3, 1, LevelCHAResolved, "cha", false, false, false)
	ledger.AddEdge(cha, idx)

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, LevelRTAResolved, edges[0].Level, "a later, lower-confidence proposal must not downgrade an existing edge")
}

func TestEdgeLedger_AddEdge_DropsUnknownCaller(t *testing.T) {
	idx := testIndex(t)
	ledger := NewEdgeLedger()

	e := NewEdge("fn:ghost", "fn:callee", "callee", "", CallDirect, 3, 1, LevelLocalExact, "identifier_local", false, false, false)
	ledger.AddEdge(e, idx)

	assert.Empty(t, ledger.Edges())
	assert.Equal(t, 1, ledger.DroppedCallerUnknown())
}

func TestEdgeLedger_EnqueueUnresolved_DedupAndExternal(t *testing.T) {
	ledger := NewEdgeLedger()

	call := UnresolvedCall{CallerID: "fn:caller", MethodName: "bark", Line: 3}
	ledger.EnqueueUnresolved(call, "a.ts:3:1")
	ledger.EnqueueUnresolved(call, "a.ts:3:1")
	assert.Len(t, ledger.UnresolvedQueue(), 1)

	ledger.MarkExternal("a.ts:4:1")
	other := UnresolvedCall{CallerID: "fn:caller", MethodName: "log", Line: 4}
	ledger.EnqueueUnresolved(other, "a.ts:4:1")
	assert.Len(t, ledger.UnresolvedQueue(), 1, "external sites must never be enqueued")
}

func TestEdgeLedger_ConfirmEdge_Latches(t *testing.T) {
	idx := testIndex(t)
	ledger := NewEdgeLedger()

	e := NewEdge("fn:caller", "fn:callee", "callee", "Dog", CallVirtual, 3, 1, LevelCHAResolved, "cha", false, false, false)
	ledger.AddEdge(e, idx)

	ok := ledger.ConfirmEdge("fn:caller", "fn:callee", 3)
	require.True(t, ok)

	edges := ledger.Edges()
	require.Len(t, edges, 1)
	assert.True(t, edges[0].RuntimeConfirmed)
	assert.Equal(t, 1.0, edges[0].Confidence)
}

func TestEdgeLedger_ConfirmEdge_NoMatchIsIgnored(t *testing.T) {
	ledger := NewEdgeLedger()
	ok := ledger.ConfirmEdge("fn:caller", "fn:callee", 3)
	assert.False(t, ok)
	assert.Empty(t, ledger.Edges(), "confirmation must never synthesize a new edge")
}

func TestEdgeLedger_Edges_SortedByCallerCalleeLine(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:b", Name: "b", FilePath: "a.ts", StartLine: 1, EndLine: 2},
		{ID: "fn:a", Name: "a", FilePath: "a.ts", StartLine: 3, EndLine: 4},
		{ID: "fn:x", Name: "x", FilePath: "a.ts", StartLine: 5, EndLine: 6},
		{ID: "fn:y", Name: "y", FilePath: "a.ts", StartLine: 7, EndLine: 8},
	})
	require.NoError(t, err)

	ledger := NewEdgeLedger()
	ledger.AddEdge(NewEdge("fn:b", "fn:y", "y", "", CallDirect, 9, 1, LevelLocalExact, "identifier_local", false, false, false), idx)
	ledger.AddEdge(NewEdge("fn:a", "fn:x", "x", "", CallDirect, 2, 1, LevelLocalExact, "identifier_local", false, false, false), idx)
	ledger.AddEdge(NewEdge("fn:a", "fn:x", "x", "", CallDirect, 1, 1, LevelLocalExact, "identifier_local", false, false, false), idx)
	ledger.AddEdge(NewEdge("fn:a", "fn:y", "y", "", CallDirect, 1, 1, LevelLocalExact, "identifier_local", false, false, false), idx)

	first := ledger.Edges()
	second := ledger.Edges()
	require.Equal(t, first, second, "repeated reads of an unchanged ledger must return byte-identical output")

	require.Len(t, first, 4)
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		less := prev.CallerID < cur.CallerID ||
			(prev.CallerID == cur.CallerID && prev.CalleeID < cur.CalleeID) ||
			(prev.CallerID == cur.CallerID && prev.CalleeID == cur.CalleeID && prev.Line <= cur.Line)
		assert.True(t, less, "edges must be sorted by (CallerID, CalleeID, Line): %+v then %+v", prev, cur)
	}
}

func TestEdgeLedger_Edges_OrderIndependentOfInsertionOrder(t *testing.T) {
	idx, err := NewFunctionIndex([]Function{
		{ID: "fn:a", Name: "a", FilePath: "a.ts", StartLine: 1, EndLine: 2},
		{ID: "fn:x", Name: "x", FilePath: "a.ts", StartLine: 3, EndLine: 4},
		{ID: "fn:y", Name: "y", FilePath: "a.ts", StartLine: 5, EndLine: 6},
	})
	require.NoError(t, err)

	edgeA := NewEdge("fn:a", "fn:x", "x", "", CallDirect, 1, 1, LevelLocalExact, "identifier_local", false, false, false)
	edgeB := NewEdge("fn:a", "fn:y", "y", "", CallDirect, 2, 1, LevelLocalExact, "identifier_local", false, false, false)

	forward := NewEdgeLedger()
	forward.AddEdge(edgeA, idx)
	forward.AddEdge(edgeB, idx)

	reverse := NewEdgeLedger()
	reverse.AddEdge(edgeB, idx)
	reverse.AddEdge(edgeA, idx)

	assert.Equal(t, forward.Edges(), reverse.Edges(), "edge order must not depend on insertion order")
}

func TestEdgeLedger_RecordInstantiation(t *testing.T) {
	ledger := NewEdgeLedger()
	ledger.RecordInstantiation(InstantiationEvent{TypeName: "Dog", FilePath: "a.ts", Line: 5, Kind: InstantiationConstructor})
	ledger.RecordInstantiation(InstantiationEvent{TypeName: "Cat", FilePath: "a.ts", Line: 6, Kind: InstantiationConstructor})

	events := ledger.Instantiations()
	require.Len(t, events, 2)
	assert.Equal(t, "Dog", events[0].TypeName)
	assert.Equal(t, "Cat", events[1].TypeName)
}
