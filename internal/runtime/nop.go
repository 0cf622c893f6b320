package runtime

import (
	"context"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// headless collaborators used when none is configured.
type nopDisplay struct{}

func (nopDisplay) Init(context.Context, ports.DisplaySettings) error { return nil }
func (nopDisplay) Show(context.Context, domain.Canvas) error         { return nil }
func (nopDisplay) Close() error                                      { return nil }

type nopSound struct{}

func (nopSound) Init(context.Context, ports.SoundSettings) error { return nil }
func (nopSound) Play(context.Context, domain.Sample) error       { return nil }
func (nopSound) Close() error                                    { return nil }

// timeoutResponder answers every request with a timeout.
type timeoutResponder struct{}

func (timeoutResponder) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	return domain.Response{RT: req.Timeout}, ctx.Err()
}

type discardLog struct{}

func (discardLog) Append(domain.LogRow) error { return nil }
func (discardLog) Flush() error               { return nil }
func (discardLog) Close() error               { return nil }
