package pool_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/sesame/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPool_AddPathRemove(t *testing.T) {
	p, err := pool.New(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "beep.wav")
	writeFile(t, src, "RIFF")

	name, err := p.Add(src, "")
	require.NoError(t, err)
	assert.Equal(t, "beep.wav", name)
	assert.True(t, p.Contains("beep.wav"))

	path, err := p.Path("beep.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Folder(), "beep.wav"), path)

	require.NoError(t, p.Rename("beep.wav", "sounds/beep.wav"))
	files, err := p.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"sounds/beep.wav"}, files)

	require.NoError(t, p.Remove("sounds/beep.wav"))
	_, err = p.Path("sounds/beep.wav")
	assert.ErrorIs(t, err, pool.ErrNotInPool)
	assert.ErrorIs(t, p.Remove("sounds/beep.wav"), pool.ErrNotInPool)
}

func TestPool_Fallback(t *testing.T) {
	resources := t.TempDir()
	writeFile(t, filepath.Join(resources, "default.png"), "png")

	p, err := pool.New(t.TempDir(), pool.WithFallback(resources))
	require.NoError(t, err)
	assert.Equal(t, resources, p.FallbackFolder())

	path, err := p.Path("default.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resources, "default.png"), path)
	assert.False(t, p.Contains("default.png"))

	// The pool shadows the fallback.
	writeFile(t, filepath.Join(p.Folder(), "default.png"), "mine")
	path, err = p.Path("default.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Folder(), "default.png"), path)
}

func TestPool_RejectsEscapingNames(t *testing.T) {
	p, err := pool.New(t.TempDir())
	require.NoError(t, err)

	_, err = p.Path("../secret.txt")
	assert.ErrorIs(t, err, pool.ErrNotInPool)
	assert.Error(t, p.Remove("../secret.txt"))

	src := filepath.Join(t.TempDir(), "x.txt")
	writeFile(t, src, "x")
	_, err = p.Add(src, "../x.txt")
	assert.Error(t, err)
}

func TestPool_TemporaryFolderRemovedOnClose(t *testing.T) {
	p, err := pool.New("")
	require.NoError(t, err)
	folder := p.Folder()
	assert.DirExists(t, folder)

	require.NoError(t, p.Close())
	assert.NoDirExists(t, folder)
}

func TestPool_ExplicitFolderKeptOnClose(t *testing.T) {
	dir := t.TempDir()
	p, err := pool.New(dir)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.DirExists(t, dir)
}

func TestPool_AbsolutePathPassesThrough(t *testing.T) {
	p, err := pool.New(t.TempDir())
	require.NoError(t, err)
	abs := filepath.Join(t.TempDir(), "a.csv")
	writeFile(t, abs, "a\n1\n")

	path, err := p.Path(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}
