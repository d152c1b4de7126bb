package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lkparity/internal/failure"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("view: x {}\n"), 0644))
	}
}

func TestLocateFiltersBySuffixAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"orders.view.lkml",
		"users.view.lkml",
		"accounts.view.lkml",
		"model.model.lkml",
		"notes.txt",
		"users.view.lkml.bak",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.view.lkml"), 0755))

	fixtures, err := Locate(dir, DefaultSuffix, "")
	require.NoError(t, err)

	require.Len(t, fixtures, 3)
	assert.Equal(t, "accounts.view.lkml", fixtures[0].Name)
	assert.Equal(t, "orders.view.lkml", fixtures[1].Name)
	assert.Equal(t, "users.view.lkml", fixtures[2].Name)
	assert.Equal(t, filepath.Join(dir, "users.view.lkml"), fixtures[2].Path)
	assert.Equal(t, "users.json", fixtures[2].CaseKey)
}

func TestLocateDefaultSuffix(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "users.view.lkml", "users.explore.lkml")

	fixtures, err := Locate(dir, "", "")
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, "users.json", fixtures[0].CaseKey)
}

func TestLocateFilter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "orders.view.lkml", "order_items.view.lkml", "users.view.lkml")

	fixtures, err := Locate(dir, DefaultSuffix, "order*")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "order_items.view.lkml", fixtures[0].Name)
	assert.Equal(t, "orders.view.lkml", fixtures[1].Name)

	fixtures, err = Locate(dir, DefaultSuffix, "{users,orders}.view.lkml")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
}

func TestLocateInvalidFilter(t *testing.T) {
	_, err := Locate(t.TempDir(), DefaultSuffix, "[unclosed")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Configuration))
}

func TestLocateMissingDirectory(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "missing"), DefaultSuffix, "")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Configuration))
	assert.Contains(t, err.Error(), "fixture directory not found")
}

func TestLocateNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "users.view.lkml")

	_, err := Locate(filepath.Join(dir, "users.view.lkml"), DefaultSuffix, "")
	require.Error(t, err)
	assert.True(t, failure.IsFatal(err))
}

func TestLocateEmptyDirectory(t *testing.T) {
	fixtures, err := Locate(t.TempDir(), DefaultSuffix, "")
	require.NoError(t, err)
	assert.Empty(t, fixtures)
}

func TestCaseKey(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		want   string
	}{
		{"users.view.lkml", ".view.lkml", "users.json"},
		{"order_items.view.lkml", ".view.lkml", "order_items.json"},
		{"v2.users.view.lkml", ".view.lkml", "v2.users.json"},
		{"caf\u00e9.view.lkml", ".view.lkml", "caf\u00e9.json"},
		{"cafe\u0301.view.lkml", ".view.lkml", "caf\u00e9.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CaseKey(tt.name, tt.suffix))
		})
	}
}

func TestLocateRejectsCollidingCaseKeys(t *testing.T) {
	dir := t.TempDir()
	// Composed and decomposed spellings of the same name.
	writeFiles(t, dir, "caf\u00e9.view.lkml", "cafe\u0301.view.lkml")

	_, err := Locate(dir, DefaultSuffix, "")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Configuration))
	assert.Contains(t, err.Error(), "same case key")
}
