// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildClassHierarchy_ExtendsAndImplements(t *testing.T) {
	dir := t.TempDir()
	animals := writeTempFile(t, dir, "animals.ts", `
interface Speaker {
	speak(): string;
}

abstract class Animal implements Speaker {
	abstract speak(): string;
}

class Dog extends Animal {
	speak(): string { return "Woof"; }
}

class Puppy extends Dog {
	speak(): string { return "Yip"; }
}
`)

	h, err := BuildClassHierarchy([]string{animals})
	require.NoError(t, err)

	assert.True(t, h.IsAbstract("Animal"))
	assert.False(t, h.IsAbstract("Dog"))
	assert.True(t, h.IsInterface("Speaker"))
	assert.False(t, h.IsInterface("Animal"))

	subtypes := h.SubtypesOf("Animal")
	assert.Contains(t, subtypes, "Animal")
	assert.Contains(t, subtypes, "Dog")
	assert.Contains(t, subtypes, "Puppy")

	assert.Contains(t, h.SubtypesOf("Speaker"), "Animal")
	assert.Contains(t, h.SubtypesOf("Speaker"), "Dog", "interface satisfaction should propagate transitively through extends")

	assert.Equal(t, []string{"Speaker"}, h.InterfacesOf("Animal"))
	assert.Empty(t, h.InterfacesOf("Dog"), "InterfacesOf reports only directly declared interfaces, not inherited ones")
}

func TestBuildClassHierarchy_UnknownClassReturnsSelfOnly(t *testing.T) {
	h, err := BuildClassHierarchy(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ghost"}, h.SubtypesOf("Ghost"))
}
