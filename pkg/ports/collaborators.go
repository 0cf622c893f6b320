package ports

import (
	"context"

	"github.com/aretw0/sesame/pkg/domain"
)

// DisplaySettings are read from the global variables when a run starts.
type DisplaySettings struct {
	Width      int
	Height     int
	Background string
	Foreground string
	Fullscreen bool
}

// Display draws canvases.
type Display interface {
	Init(ctx context.Context, settings DisplaySettings) error
	Show(ctx context.Context, c domain.Canvas) error
	Close() error
}

// SoundSettings are read from the global variables when a run starts.
type SoundSettings struct {
	Frequency  int
	SampleSize int
	Channels   int
	BufferSize int
}

// Sound plays samples.
type Sound interface {
	Init(ctx context.Context, settings SoundSettings) error
	Play(ctx context.Context, s domain.Sample) error
	Close() error
}

// Responder blocks until a response is given, the request times out or ctx
// is done.
type Responder interface {
	Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error)
}
