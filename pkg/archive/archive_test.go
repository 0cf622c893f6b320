package archive_test

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame/pkg/archive"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/pool"
)

const script = "set title \"Café\"\n\ndefine sketchpad welcome\n\tdraw textline text=\"Über\"\n"

func newPool(t *testing.T, files map[string]string) *pool.Pool {
	t.Helper()
	p, err := pool.New(t.TempDir())
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(p.Folder(), filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return p
}

func TestSave_ArchiveRoundTrip(t *testing.T) {
	src := newPool(t, map[string]string{
		"日本語.png":         "png",
		"sounds/béep.wav": "wav",
		"plain.csv":       "a,b\n",
	})
	dest := filepath.Join(t.TempDir(), "exp")

	written, err := archive.Save(script, src, dest, false)
	require.NoError(t, err)
	assert.Equal(t, dest+archive.ExtArchive, written)

	dst := newPool(t, nil)
	loaded, err := archive.Load(written, dst.Folder())
	require.NoError(t, err)
	assert.Equal(t, script, loaded.Script)
	assert.Equal(t, archive.KindArchive, loaded.Kind)
	assert.Equal(t, filepath.Dir(written), loaded.ExperimentPath)
	assert.ElementsMatch(t, []string{"日本語.png", "sounds/béep.wav", "plain.csv"}, loaded.PoolFiles)

	path, err := dst.Path("日本語.png")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.False(t, dst.Contains(archive.ScriptName))

	files, err := dst.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"plain.csv", "sounds/béep.wav", "日本語.png"}, files)
}

func TestSave_StoredNamesAreASCII(t *testing.T) {
	src := newPool(t, map[string]string{"ü.txt": "x"})
	written, err := archive.Save(script, src, filepath.Join(t.TempDir(), "exp.opensesame.tar.gz"), false)
	require.NoError(t, err)

	f, err := os.Open(written)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{"script.opensesame", "pool/", "pool/U+00FC.txt"}, names)
}

func TestSave_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"exp.opensesame", "exp.opensesame.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(dest, []byte("keep"), 0o644))

			_, err := archive.Save(script, newPool(t, nil), dest, false)
			assert.ErrorIs(t, err, domain.ErrRefused)
			var perr *domain.PersistenceError
			assert.ErrorAs(t, err, &perr)
			data, _ := os.ReadFile(dest)
			assert.Equal(t, "keep", string(data))

			_, err = archive.Save(script, newPool(t, nil), dest, true)
			require.NoError(t, err)
			data, _ = os.ReadFile(dest)
			assert.NotEqual(t, "keep", string(data))
		})
	}
}

func TestSave_PlainScript(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "exp.opensesame")
	written, err := archive.Save(script, nil, dest, false)
	require.NoError(t, err)
	assert.Equal(t, dest, written)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Caf")
	for _, b := range data {
		assert.Less(t, b, byte(0x80))
	}

	loaded, err := archive.Load(dest, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, script, loaded.Script)
	assert.Equal(t, archive.KindScript, loaded.Kind)
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	_, err := archive.Save(script, newPool(t, map[string]string{"a": "1"}), filepath.Join(dir, "exp"), false)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "exp.opensesame.tar.gz", entries[0].Name())
}

func TestSave_MissingDestinationFolder(t *testing.T) {
	_, err := archive.Save(script, nil, filepath.Join(t.TempDir(), "nope", "exp.opensesame"), false)
	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestLoad_TextInput(t *testing.T) {
	loaded, err := archive.Load("set a 1\n", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, archive.KindText, loaded.Kind)
	assert.Equal(t, "set a 1\n", loaded.Script)
	assert.Empty(t, loaded.ExperimentPath)
}

func TestLoad_DecodesGracefully(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"with bom", "\xef\xbb\xbfset a b\xff\n"},
		{"without bom", "set a b\xff\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "exp.opensesame")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))

			loaded, err := archive.Load(path, dir)
			require.NoError(t, err)
			assert.Equal(t, "set a b\uFFFD\n", loaded.Script)
			assert.True(t, utf8.ValidString(loaded.Script))
		})
	}
}

func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, body := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0o644, Size: int64(len(body)), ModTime: time.Now(), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestLoad_ArchiveErrors(t *testing.T) {
	dir := t.TempDir()

	noScript := filepath.Join(dir, "empty.opensesame.tar.gz")
	writeTarGz(t, noScript, map[string]string{"pool/a.txt": "a"})
	_, err := archive.Load(noScript, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoScript)
	var perr *domain.PersistenceError
	assert.ErrorAs(t, err, &perr)

	evil := filepath.Join(dir, "evil.opensesame.tar.gz")
	writeTarGz(t, evil, map[string]string{
		"script.opensesame":           "set a 1\n",
		"pool/U+002EU+002E/escape.sh": "x",
	})
	_, err = archive.Load(evil, t.TempDir())
	assert.ErrorIs(t, err, archive.ErrUnsafePath)

	corrupt := filepath.Join(dir, "corrupt.opensesame.tar.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not gzip"), 0o644))
	_, err = archive.Load(corrupt, t.TempDir())
	assert.ErrorAs(t, err, &perr)
}

func TestLoad_SniffsGzipWithoutSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renamed.bin")
	writeTarGz(t, path, map[string]string{"script.opensesame": "set a 1\n"})

	loaded, err := archive.Load(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, archive.KindArchive, loaded.Kind)
	assert.Equal(t, "set a 1\n", loaded.Script)
}
