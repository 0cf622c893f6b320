package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/sesame"
	"github.com/aretw0/sesame/internal/config"
	"github.com/aretw0/sesame/internal/presentation/tui"
	sesameruntime "github.com/aretw0/sesame/internal/runtime"
	"github.com/aretw0/sesame/pkg/domain"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	// Path is an experiment file, an archive, or definition text.
	Path   string
	Config config.Run
	IO     IO
	// Quiet suppresses the banner and system messages.
	Quiet bool
}

// RunSession runs one experiment until it ends or a signal arrives.
// Interruptions are not errors.
func RunSession(opts RunOptions) error {
	opts.IO = opts.IO.withDefaults()
	logger, closeLog, err := NewLogger(opts.Config, opts.IO.Err)
	if err != nil {
		return err
	}
	defer closeLog()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	rec, err := Execute(sigCtx, opts, logger)
	if !opts.Quiet {
		logCompletion(opts.IO.Out, rec, err, sigCtx.Signal())
	}
	return handleExecutionError(err)
}

// Execute loads the experiment described by opts and runs it once.
func Execute(ctx context.Context, opts RunOptions, logger *slog.Logger) (rec *domain.RunRecord, err error) {
	opts.IO = opts.IO.withDefaults()
	cfg := opts.Config
	if cfg.JSON {
		// Standard output carries only JSON lines.
		opts.Quiet = true
	}

	p, err := newPersistence(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	var (
		hooks  domain.LifecycleHooks
		insp   *inspector
		pauses chan sesameruntime.PauseState
	)
	if cfg.InspectAddr != "" {
		if insp, err = newInspector(logger); err != nil {
			return nil, err
		}
		hooks = insp.hooks
		pauses = make(chan sesameruntime.PauseState)
	}

	expOpts := experimentOptions(cfg, opts.IO, logger, p, hooks)
	if pauses != nil {
		expOpts = append(expOpts, sesame.WithEngineOptions(sesameruntime.WithPauseChannel(pauses)))
	}
	exp, err := sesame.New(opts.Path, expOpts...)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, exp.Close()) }()

	if !opts.Quiet {
		tui.PrintBanner(opts.IO.Out, sesame.Version)
	}

	if insp != nil {
		addr, err := insp.serve(cfg.InspectAddr, exp)
		if err != nil {
			return nil, fmt.Errorf("failed to start inspector: %w", err)
		}
		defer insp.shutdown()
		if !opts.Quiet {
			printSystemMessage(opts.IO.Out, "Inspector at http://%s", addr)
		}

		done := make(chan struct{})
		defer func() {
			close(pauses)
			<-done
		}()
		go func() {
			defer close(done)
			for st := range pauses {
				if st.Paused && !opts.Quiet {
					printSystemMessage(opts.IO.Out, "Paused at '%s'. POST /resume to continue.", st.Item)
				}
			}
		}()
	}

	return exp.Run(ctx)
}

func (o IO) withDefaults() IO {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	return o
}
