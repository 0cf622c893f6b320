// Package csvlog writes run data logs as CSV files.
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// ErrClosed is returned when appending to a closed sink.
var ErrClosed = errors.New("log is closed")

// Missing fills the cells of columns a row does not log.
const Missing = "NA"

// Sink is a ports.LogSink writing one CSV row per logged row. The column
// names of the first row become the header. A row with new columns grows
// the header; the file is then rewritten and earlier rows get Missing in
// the new cells.
type Sink struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *csv.Writer
	header []string
	closed bool
}

var _ ports.LogSink = (*Sink)(nil)

// Open truncates or creates path.
func Open(path string) (ports.LogSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{path: path, f: f, w: csv.NewWriter(f)}, nil
}

// Append writes row in header order.
func (s *Sink) Append(row domain.LogRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.header == nil {
		s.header = make([]string, 0, len(row))
		for _, field := range row {
			s.header = append(s.header, field.Name)
		}
		if err := s.w.Write(s.header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if added := s.newColumns(row); len(added) > 0 {
		if err := s.grow(added); err != nil {
			return fmt.Errorf("failed to add columns %v: %w", added, err)
		}
	}
	return s.w.Write(s.record(row))
}

func (s *Sink) newColumns(row domain.LogRow) []string {
	var added []string
	for _, field := range row {
		if !slices.Contains(s.header, field.Name) && !slices.Contains(added, field.Name) {
			added = append(added, field.Name)
		}
	}
	return added
}

func (s *Sink) record(row domain.LogRow) []string {
	byName := make(map[string]string, len(row))
	for _, field := range row {
		byName[field.Name] = field.Value
	}
	out := make([]string, len(s.header))
	for i, name := range s.header {
		v, ok := byName[name]
		if !ok {
			v = Missing
		}
		out[i] = v
	}
	return out
}

// grow appends columns to the header and rewrites what was written so far
// through a temporary file next to the log.
func (s *Sink) grow(columns []string) error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r := csv.NewReader(s.f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	s.header = append(s.header, columns...)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".csvlog-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	w := csv.NewWriter(tmp)
	if err := w.Write(s.header); err != nil {
		tmp.Close()
		return err
	}
	for _, rec := range records[min(1, len(records)):] {
		for len(rec) < len(s.header) {
			rec = append(rec, Missing)
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	err = w.Error()
	if serr := tmp.Sync(); err == nil {
		err = serr
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}

	s.f.Close()
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		s.closed = true
		return err
	}
	s.f = f
	s.w = csv.NewWriter(f)
	return nil
}

// Flush writes buffered rows to the file.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes, syncs and closes the file. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	err := s.w.Error()
	if serr := s.f.Sync(); err == nil {
		err = serr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
