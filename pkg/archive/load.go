package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
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

// Loaded is the result of Load.
type Loaded struct {
	// Script is the decoded definition text.
	Script string
	// ExperimentPath is the folder of the loaded file, or empty for text.
	ExperimentPath string
	Kind           Kind
	// PoolFiles lists the extracted pool entries by their decoded names.
	PoolFiles []string
}

// Load resolves src. A src that does not exist on disk is the definition
// text itself. An archive has its pool/ entries extracted into poolFolder
// under their decoded names; the script entry is read in memory and never
// written to the pool. Any other file is read as a plain script.
func Load(src, poolFolder string, opts ...Option) (*Loaded, error) {
	cfg := newConfig(opts)

	info, err := os.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist), err != nil && strings.ContainsRune(src, '\n'):
		return &Loaded{Script: decodeText([]byte(src)), Kind: KindText}, nil
	case err != nil:
		return nil, &domain.PersistenceError{Op: "open", Path: src, Err: err}
	case info.IsDir():
		return nil, &domain.PersistenceError{Op: "open", Path: src, Err: errors.New("is a directory")}
	}

	dir := filepath.Dir(src)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "open", Path: src, Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if !IsArchive(src) && !isGzip(br) {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "read", Path: src, Err: err}
		}
		cfg.logger.Debug("Opened script file", "path", src)
		return &Loaded{
			Script:         script.DecodeASCII(decodeText(data)),
			ExperimentPath: dir,
			Kind:           KindScript,
		}, nil
	}

	text, files, err := extract(br, poolFolder)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "extract", Path: src, Err: err}
	}
	cfg.logger.Debug("Opened archive", "path", src, "pool_files", len(files))
	return &Loaded{
		Script:         text,
		ExperimentPath: dir,
		Kind:           KindArchive,
		PoolFiles:      files,
	}, nil
}

func isGzip(br *bufio.Reader) bool {
	magic, err := br.Peek(2)
	return err == nil && magic[0] == 0x1f && magic[1] == 0x8b
}

func extract(r io.Reader, poolFolder string) (string, []string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return "", nil, err
	}
	defer gz.Close()

	var (
		text      string
		hasScript bool
		files     []string
	)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}
		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))

		switch {
		case name == ScriptName && hdr.Typeflag == tar.TypeReg:
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, tr); err != nil {
				return "", nil, err
			}
			text = script.DecodeASCII(decodeText(buf.Bytes()))
			hasScript = true

		case strings.HasPrefix(name, PoolDir+"/") && hdr.Typeflag == tar.TypeReg:
			rel := decodeName(strings.TrimPrefix(name, PoolDir+"/"))
			local := filepath.FromSlash(rel)
			if !filepath.IsLocal(local) {
				return "", nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
			}
			if err := writeEntry(filepath.Join(poolFolder, local), tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return "", nil, fmt.Errorf("extract %s: %w", rel, err)
			}
			files = append(files, rel)
		}
	}
	if !hasScript {
		return "", nil, domain.ErrNoScript
	}
	return text, files, nil
}

func writeEntry(dest string, r io.Reader, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
