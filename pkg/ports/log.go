package ports

import "github.com/aretw0/sesame/pkg/domain"

// LogSink receives the rows logged during a run.
type LogSink interface {
	Append(row domain.LogRow) error
	Flush() error
	// Close flushes pending rows and syncs them to stable storage.
	Close() error
}

// LogOpener opens the sink for a log path.
type LogOpener func(path string) (LogSink, error)
