package archive

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/aretw0/sesame/internal/logging"
)

// File names and extensions.
const (
	ScriptName = "script.opensesame"
	PoolDir    = "pool"
	ExtScript  = ".opensesame"
	ExtArchive = ".opensesame.tar.gz"
)

// ErrUnsafePath is returned for archive entries that would land outside
// the pool folder.
var ErrUnsafePath = errors.New("unsafe path in archive")

// Kind tells where a loaded script came from.
type Kind string

const (
	KindText    Kind = "text"
	KindScript  Kind = "script"
	KindArchive Kind = "archive"
)

// PoolFiles is the view of the file pool that Save archives.
type PoolFiles interface {
	Folder() string
	// Files lists pool-relative slash paths.
	Files() ([]string, error)
}

type config struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures Save and Load.
type Option func(*config)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClock sets the modification time stamped on archive entries.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

func newConfig(opts []Option) *config {
	c := &config{logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsArchive reports whether path names a tar.gz experiment.
func IsArchive(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ExtArchive)
}

// decodeText turns stored bytes into script text. A byte order mark
// selects the encoding and is dropped. Invalid sequences become U+FFFD.
func decodeText(data []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		out = data
	}
	// The UTF-8 decoder picked for a BOM passes invalid bytes through.
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func removeQuietly(logger *slog.Logger, path string) {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove temporary file", "path", path, "err", err)
	}
}
