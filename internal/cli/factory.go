package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sesame"
	"github.com/aretw0/sesame/internal/config"
	"github.com/aretw0/sesame/internal/logging"
	sesameruntime "github.com/aretw0/sesame/internal/runtime"
	"github.com/aretw0/sesame/pkg/adapters/file"
	"github.com/aretw0/sesame/pkg/adapters/memory"
	"github.com/aretw0/sesame/pkg/adapters/redis"
	"github.com/aretw0/sesame/pkg/adapters/terminal"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/observability"
	"github.com/aretw0/sesame/pkg/persistence/middleware"
	"github.com/aretw0/sesame/pkg/ports"
)

// NewLogger builds the application logger from cfg. Human-readable output
// goes to w so it does not mix with the experiment display.
func NewLogger(cfg config.Run, w io.Writer) (*slog.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		Level:     level,
		Writer:    w,
		DebugFile: cfg.DebugLog,
		Journal:   cfg.Journal,
	})
}

// Persistence groups the record store with the lease manager guarding
// shared resources. Leases is nil unless locks are shared through redis.
type Persistence struct {
	Records ports.RecordStore
	Leases  *lease.Manager
	close   func() error
}

// Close releases the backend connection, if any.
func (p *Persistence) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// newPersistence selects the record backend and wraps it with the
// redaction and encryption middlewares configured in cfg.
func newPersistence(cfg config.Run, logger *slog.Logger) (*Persistence, error) {
	p := &Persistence{}
	switch cfg.Records {
	case config.RecordsFile:
		p.Records = file.New(cfg.RecordsDir)
	case config.RecordsRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		p.Records = redis.NewFromClient(client, redis.WithPrefix(prefix))
		p.Leases = lease.NewManager(
			lease.WithLocker(redis.NewLocker(client, prefix)),
			lease.WithLogger(logger),
		)
		p.close = client.Close
	default:
		p.Records = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		mws = append(mws, mw)
	}
	if cfg.RecordsKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.RecordsKey)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("invalid records_key: %w", err), p.Close())
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("invalid records_key: %w", err), p.Close())
		}
		mws = append(mws, mw)
	}
	p.Records = middleware.Chain(p.Records, mws...)
	return p, nil
}

// IO is where a run reads responses and shows canvases. Err receives
// the human-readable log. Nil fields default to the process streams.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// experimentOptions translates cfg into experiment options. hooks are
// installed on the engine together with the logging hooks.
func experimentOptions(cfg config.Run, stdio IO, logger *slog.Logger, p *Persistence, hooks domain.LifecycleHooks) []sesame.Option {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var (
		display   ports.Display
		sound     ports.Sound
		responder ports.Responder
	)
	if cfg.JSON {
		w := terminal.NewJSONWriter(stdio.Out)
		display = terminal.NewJSONDisplay(w)
		sound = terminal.NewJSONSound(w)
		responder = terminal.NewJSONResponder(stdio.In, w)
	} else {
		var displayOpts []terminal.DisplayOption
		if terminal.IsTerminal(stdio.Out) {
			displayOpts = append(displayOpts, terminal.WithMarkdown(cfg.Style))
		}
		display = terminal.NewDisplay(stdio.Out, displayOpts...)
		sound = terminal.NewBell(stdio.Out)
		responder = terminal.NewLineResponder(stdio.In)
	}
	if cfg.AutoResponse {
		responder = terminal.NewAutoResponder(rand.New(rand.NewPCG(seed, 2)))
	}

	engineOpts := []sesameruntime.Option{
		sesameruntime.WithDisplay(display),
		sesameruntime.WithSound(sound),
		sesameruntime.WithResponder(responder),
		sesameruntime.WithRecordStore(p.Records),
		sesameruntime.WithLifecycleHooks(observability.LogHooks(logger).Merge(hooks)),
		sesameruntime.WithRand(rand.New(rand.NewPCG(seed, 1))),
	}

	opts := []sesame.Option{
		sesame.WithLogger(logger),
		sesame.WithSubject(cfg.SubjectNr),
		sesame.WithFullscreen(cfg.Fullscreen),
		sesame.WithPoolFolder(cfg.PoolFolder),
		sesame.WithResourcesFolder(cfg.ResourcesFolder),
		sesame.WithEngineOptions(engineOpts...),
	}
	if p.Leases != nil {
		opts = append(opts, sesame.WithLeaseManager(p.Leases))
	}
	if cfg.Logfile != "" {
		opts = append(opts, sesame.WithLogfile(cfg.Logfile))
	}
	return opts
}

// Open loads an experiment for inspection without running it.
func Open(path string, cfg config.Run, logger *slog.Logger) (*sesame.Experiment, error) {
	return sesame.New(path,
		sesame.WithLogger(logger),
		sesame.WithSubject(cfg.SubjectNr),
		sesame.WithFullscreen(cfg.Fullscreen),
		sesame.WithPoolFolder(cfg.PoolFolder),
		sesame.WithResourcesFolder(cfg.ResourcesFolder),
	)
}
