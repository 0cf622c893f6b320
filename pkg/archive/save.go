package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
)

// Save writes text, and the pool when archiving, to dest and returns the
// path written. A dest ending in .opensesame gets the plain script; any
// other dest is forced to the .opensesame.tar.gz suffix. An existing
// destination is refused with ErrRefused unless overwrite is set. The
// file is built next to dest and renamed into place only once complete.
func Save(text string, pool PoolFiles, dest string, overwrite bool, opts ...Option) (string, error) {
	cfg := newConfig(opts)

	plain := strings.EqualFold(filepath.Ext(dest), ExtScript)
	if !plain && !IsArchive(dest) {
		dest += ExtArchive
	}
	if _, err := os.Lstat(dest); err == nil && !overwrite {
		return "", &domain.PersistenceError{Op: "save", Path: dest, Err: domain.ErrRefused}
	}

	write := func(w io.Writer) error {
		_, err := io.WriteString(w, script.EncodeASCII(text))
		return err
	}
	if !plain {
		write = func(w io.Writer) error {
			return writeArchive(w, text, pool, cfg)
		}
	}
	if err := atomicWrite(dest, write, cfg); err != nil {
		return "", &domain.PersistenceError{Op: "save", Path: dest, Err: err}
	}
	cfg.logger.Debug("Experiment saved", "path", dest, "archive", !plain)
	return dest, nil
}

func atomicWrite(dest string, write func(io.Writer) error, cfg *config) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".sesame-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			removeQuietly(cfg.logger, tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// Rename does not replace existing files on every platform.
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return err
	}
	ok = true
	return nil
}

func writeArchive(w io.Writer, text string, pool PoolFiles, cfg *config) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	now := cfg.now()

	body := []byte(script.EncodeASCII(text))
	if err := tw.WriteHeader(&tar.Header{
		Name:     ScriptName,
		Mode:     0o644,
		Size:     int64(len(body)),
		ModTime:  now,
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	if _, err := tw.Write(body); err != nil {
		return err
	}

	if pool != nil {
		if err := writePool(tw, pool, cfg); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func writePool(tw *tar.Writer, pool PoolFiles, cfg *config) error {
	names, err := pool.Files()
	if err != nil {
		return fmt.Errorf("list pool: %w", err)
	}
	now := cfg.now()
	if err := tw.WriteHeader(&tar.Header{
		Name:     PoolDir + "/",
		Mode:     0o755,
		ModTime:  now,
		Typeflag: tar.TypeDir,
	}); err != nil {
		return err
	}

	dirs := map[string]bool{}
	for _, name := range names {
		stored := encodeName(name)
		for d := path.Dir(stored); d != "."; d = path.Dir(d) {
			if dirs[d] {
				break
			}
			dirs[d] = true
			if err := tw.WriteHeader(&tar.Header{
				Name:     path.Join(PoolDir, d) + "/",
				Mode:     0o755,
				ModTime:  now,
				Typeflag: tar.TypeDir,
			}); err != nil {
				return err
			}
		}
		if err := addFile(tw, filepath.Join(pool.Folder(), filepath.FromSlash(name)), path.Join(PoolDir, stored)); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	return nil
}

func addFile(tw *tar.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// encodeName ASCII-encodes each segment of a pool-relative slash path.
func encodeName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = script.EncodeASCII(p)
	}
	return strings.Join(parts, "/")
}

func decodeName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = script.DecodeASCII(p)
	}
	return strings.Join(parts, "/")
}
