package terminal

import (
	"context"
	"io"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// Bell "plays" a sample by ringing the terminal bell. A nil writer makes it
// silent.
type Bell struct {
	w      io.Writer
	played []string
}

var _ ports.Sound = (*Bell)(nil)

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell { return &Bell{w: w} }

func (b *Bell) Init(ctx context.Context, settings ports.SoundSettings) error { return nil }

func (b *Bell) Play(ctx context.Context, s domain.Sample) error {
	b.played = append(b.played, s.Path)
	if b.w == nil {
		return nil
	}
	_, err := io.WriteString(b.w, "\a")
	return err
}

func (b *Bell) Close() error { return nil }

// Played returns the paths of the samples played so far.
func (b *Bell) Played() []string { return append([]string(nil), b.played...) }
