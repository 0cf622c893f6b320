package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options selects the logger sinks.
type Options struct {
	// Level applies to every sink.
	Level slog.Leveler
	// Writer receives the text output. Defaults to os.Stderr.
	Writer io.Writer
	// DebugFile, when set, also receives every record at debug level.
	DebugFile string
	// Journal sends records to the systemd journal.
	Journal bool
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout experiment output).
// It standardizes common keys (e.g., "error" -> "err").
// The returned close func releases the debug file, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	closer := func() error { return nil }

	text := slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceErr,
	})
	handlers := []slog.Handler{text}

	if opts.DebugFile != "" {
		f, err := os.OpenFile(opts.DebugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("open debug log: %w", err)
		}
		closer = f.Close
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceErr,
		}))
	}

	if opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level:        opts.Level,
			ReplaceGroup: toJournalKey,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("err", err)
			_ = text.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journal)
		}
	}

	if len(handlers) == 1 {
		return slog.New(text), closer, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug, info, warn and error to a level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func replaceErr(groups []string, a slog.Attr) slog.Attr {
	// Standardize 'error' key to 'err'
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}
