// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunctionIndex_Basic(t *testing.T) {
	functions := []Function{
		{ID: "fn:1", Name: "bark", ClassName: "Dog", FilePath: "a.ts", StartLine: 10, EndLine: 12},
		{ID: "fn:2", Name: "meow", ClassName: "Cat", FilePath: "a.ts", StartLine: 20, EndLine: 22},
	}

	idx, err := NewFunctionIndex(functions)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	id, ok := idx.ByFileLine("a.ts", 11)
	require.True(t, ok)
	assert.Equal(t, "fn:1", id)

	_, ok = idx.ByFileLine("a.ts", 15)
	assert.False(t, ok, "line outside any function should miss")
}

func TestNewFunctionIndex_InnerWins(t *testing.T) {
	// An outer function spanning 1-20 and an inner one nested at 5-10:
	// inner must be supplied after outer, and must win on its own lines.
	functions := []Function{
		{ID: "fn:outer", Name: "outer", FilePath: "a.ts", StartLine: 1, EndLine: 20},
		{ID: "fn:inner", Name: "inner", FilePath: "a.ts", StartLine: 5, EndLine: 10},
	}

	idx, err := NewFunctionIndex(functions)
	require.NoError(t, err)

	id, ok := idx.ByFileLine("a.ts", 7)
	require.True(t, ok)
	assert.Equal(t, "fn:inner", id, "inner function should win on its own lines")

	id, ok = idx.ByFileLine("a.ts", 15)
	require.True(t, ok)
	assert.Equal(t, "fn:outer", id, "outer function should own lines outside the inner range")
}

func TestNewFunctionIndex_RejectsEndBeforeStart(t *testing.T) {
	functions := []Function{
		{ID: "fn:bad", Name: "bad", FilePath: "a.ts", StartLine: 10, EndLine: 5},
	}
	_, err := NewFunctionIndex(functions)
	require.Error(t, err)
	var malformed *MalformedIndexError
	assert.ErrorAs(t, err, &malformed)
}

func TestNewFunctionIndex_RejectsDuplicateID(t *testing.T) {
	functions := []Function{
		{ID: "fn:dup", Name: "a", FilePath: "a.ts", StartLine: 1, EndLine: 2},
		{ID: "fn:dup", Name: "b", FilePath: "b.ts", StartLine: 1, EndLine: 2},
	}
	_, err := NewFunctionIndex(functions)
	assert.Error(t, err)
}

func TestNewFunctionIndex_RejectsDuplicatePosition(t *testing.T) {
	functions := []Function{
		{ID: "fn:1", Name: "a", FilePath: "a.ts", StartLine: 10, EndLine: 12},
		{ID: "fn:2", Name: "b", FilePath: "a.ts", StartLine: 10, EndLine: 14},
	}
	_, err := NewFunctionIndex(functions)
	assert.Error(t, err)
}

func TestFunctionIndex_ByNameAndClasses_DeterministicOrder(t *testing.T) {
	functions := []Function{
		{ID: "fn:zebra", Name: "speak", ClassName: "Zebra", FilePath: "z.ts", StartLine: 1, EndLine: 2},
		{ID: "fn:ant", Name: "speak", ClassName: "Ant", FilePath: "a.ts", StartLine: 1, EndLine: 2},
	}
	idx, err := NewFunctionIndex(functions)
	require.NoError(t, err)

	got := idx.ByNameAndClasses("speak", []string{"Zebra", "Ant"})
	require.Len(t, got, 2)
	assert.Equal(t, "Ant", got[0].ClassName, "results sort by class name first")
	assert.Equal(t, "Zebra", got[1].ClassName)
}

func TestFunctionIndex_ConstructorOf(t *testing.T) {
	functions := []Function{
		{ID: "fn:ctor", Name: "constructor", ClassName: "Dog", FilePath: "a.ts", StartLine: 1, EndLine: 3},
	}
	idx, err := NewFunctionIndex(functions)
	require.NoError(t, err)

	id, ok := idx.ConstructorOf("Dog")
	require.True(t, ok)
	assert.Equal(t, "fn:ctor", id)

	_, ok = idx.ConstructorOf("Cat")
	assert.False(t, ok)
}
