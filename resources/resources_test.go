package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestResolver(t *testing.T) (*Resolver, string, string) {
	t.Helper()
	custom := t.TempDir()
	dflt := t.TempDir()
	return New(custom, dflt), custom, dflt
}

func TestPathCustomizationWins(t *testing.T) {
	r, custom, dflt := newTestResolver(t)
	writeFile(t, filepath.Join(dflt, "bgm", "calm.mp3"), "default")
	writeFile(t, filepath.Join(custom, "bgm", "calm.mp3"), "custom")

	path, err := r.Path(TypeBGM, "calm.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(custom, "bgm", "calm.mp3"), path)
}

func TestPathFallsBackToDefault(t *testing.T) {
	r, _, dflt := newTestResolver(t)
	writeFile(t, filepath.Join(dflt, "bgm", "calm.mp3"), "default")

	path, err := r.Path(TypeBGM, "calm.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dflt, "bgm", "calm.mp3"), path)
}

func TestPathNotFoundListsSearchedLocations(t *testing.T) {
	r, custom, dflt := newTestResolver(t)

	_, err := r.Path(TypeBGM, "missing.mp3")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{
		filepath.Join(custom, "bgm", "missing.mp3"),
		filepath.Join(dflt, "bgm", "missing.mp3"),
	}, nf.Searched)
	assert.Contains(t, nf.Error(), "missing.mp3")
}

func TestListFilesMergesAndDedupes(t *testing.T) {
	r, custom, dflt := newTestResolver(t)
	writeFile(t, filepath.Join(dflt, "bgm", "a.mp3"), "x")
	writeFile(t, filepath.Join(dflt, "bgm", "b.mp3"), "x")
	writeFile(t, filepath.Join(custom, "bgm", "b.mp3"), "x")
	writeFile(t, filepath.Join(custom, "bgm", "c.mp3"), "x")

	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3"}, r.ListFiles(TypeBGM, ""))
}
