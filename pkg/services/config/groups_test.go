package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGroups(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "groups.ini")
	content := "[dmml]\npis = kalousis, marchand\n\n[astro]\npis = stars\n\n[empty]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGroupRegistry_GetGroups(t *testing.T) {
	registry, err := NewGroupRegistry(writeGroups(t))
	require.NoError(t, err)

	groups, err := registry.GetGroups(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"dmml", "astro"}, groups)
}

func TestGroupRegistry_GetPIs(t *testing.T) {
	registry, err := NewGroupRegistry(writeGroups(t))
	require.NoError(t, err)

	pis, err := registry.GetPIs(context.Background(), "dmml")

	require.NoError(t, err)
	assert.Equal(t, []string{"kalousis", "marchand"}, pis)
}

func TestGroupRegistry_UnknownGroup(t *testing.T) {
	registry, err := NewGroupRegistry(writeGroups(t))
	require.NoError(t, err)

	_, err = registry.GetPIs(context.Background(), "nope")

	assert.EqualError(t, err, "group nope not found")
}

func TestNewGroupRegistry_MissingFile(t *testing.T) {
	_, err := NewGroupRegistry(filepath.Join(t.TempDir(), "missing.ini"))

	assert.Error(t, err)
}
