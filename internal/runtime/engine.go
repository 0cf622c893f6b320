// Package runtime executes item trees: it validates the tree, opens the
// collaborators, prepares and runs the start item, and tears everything
// down exactly once.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/ports"
	"github.com/aretw0/sesame/pkg/tree"
	"github.com/aretw0/sesame/pkg/vars"
)

// FileResolver maps logical pool names to paths.
type FileResolver interface {
	Path(name string) (string, error)
	Folder() string
}

// Program is everything one run needs.
type Program struct {
	// Name identifies the experiment in run records.
	Name    string
	Globals *vars.Store
	Tree    *tree.Tree
	Pool    FileResolver
	// Logfile is resolved against ExperimentPath when relative. Empty
	// disables the data log.
	Logfile        string
	ExperimentPath string
}

// Engine runs programs. One Engine runs at most one program at a time.
type Engine struct {
	display   ports.Display
	sound     ports.Sound
	responder ports.Responder
	openLog   ports.LogOpener
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	records   ports.RecordStore
	leases    *lease.Manager
	pauses    chan<- PauseState
	rng       *rand.Rand
	now       func() time.Time
	version   string
	codename  string

	busy    atomic.Bool
	running atomic.Bool
	resume  chan struct{}

	mu     sync.Mutex
	paused *PauseState
}

// NewEngine creates an engine with headless defaults.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		display:   nopDisplay{},
		sound:     nopSound{},
		responder: timeoutResponder{},
		logger:    logging.NewNop(),
		leases:    lease.NewManager(),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
		version:   "dev",
		codename:  "unreleased",
		resume:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a run is in progress and was not aborted.
func (e *Engine) Running() bool { return e.running.Load() }

// Abort clears the running flag. Items notice it between discrete steps.
func (e *Engine) Abort() { e.running.Store(false) }

// Run executes p.
//
// The tree is validated against the start variable before any resource is
// touched. Once the run has started, teardown happens exactly once and never
// fails the run; its failures are listed in the returned record. An error
// from an item is returned after teardown as a *domain.RuntimeError.
// A run stopped by Abort returns a record with status aborted and no error.
func (e *Engine) Run(ctx context.Context, p Program) (*domain.RunRecord, error) {
	start := ""
	if v, ok := p.Globals.Get(domain.VarStart); ok {
		start = v.Text()
	}
	if err := p.Tree.Validate(start); err != nil {
		return nil, err
	}

	logfile := p.Logfile
	if logfile != "" && !filepath.IsAbs(logfile) && p.ExperimentPath != "" {
		logfile = filepath.Join(p.ExperimentPath, logfile)
	}
	if err := checkWritable(logfile); err != nil {
		return nil, err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return nil, domain.ErrAlreadyRunning
	}
	defer e.busy.Store(false)

	rec := &domain.RunRecord{
		ID:         uuid.NewString(),
		Experiment: p.Name,
		Start:      start,
		Status:     domain.RunStatusRunning,
	}

	var keys []string
	if logfile != "" {
		keys = append(keys, "log:"+absPath(logfile))
	}
	if p.Pool != nil {
		keys = append(keys, "pool:"+p.Pool.Folder())
	}
	release, err := e.leases.Acquire(ctx, rec.ID, keys...)
	if err != nil {
		return nil, err
	}

	r := &run{
		engine:    e,
		id:        rec.ID,
		globals:   p.Globals,
		tree:      p.Tree,
		pool:      p.Pool,
		log:       discardLog{},
		workspace: make(map[string]any),
		logger:    e.logger.With("run_id", rec.ID),
	}
	if v, ok := p.Globals.Get(domain.VarTransparentVariables); ok {
		r.transparent = v.Truthy()
	}

	startedAt := e.now()
	rec.StartedAt = startedAt
	p.Globals.SetRuntime(domain.VarDatetime, vars.String(startedAt.Format(time.ANSIC)))
	p.Globals.SetRuntime(domain.VarVersion, vars.String(e.version))
	p.Globals.SetRuntime(domain.VarCodename, vars.String(e.codename))
	if logfile != "" {
		p.Globals.SetRuntime(domain.VarLogfile, vars.String(logfile))
	}

	e.running.Store(true)
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: startedAt, Type: domain.EventRunStart, RunID: rec.ID},
			Start:     start,
		})
	}
	defer func() {
		r.teardown(ctx, rec)
		release()
		rec.EndedAt = e.now()
		e.saveRecord(ctx, rec)

		if e.hooks.OnRunEnd != nil {
			e.hooks.OnRunEnd(ctx, &domain.RunEvent{
				EventBase: domain.EventBase{Timestamp: rec.EndedAt, Type: domain.EventRunEnd, RunID: rec.ID},
				Start:     start,
				Status:    rec.Status,
				Err:       err,
				Duration:  rec.EndedAt.Sub(startedAt),
			})
		}
		r.logger.Info("Experiment finished", "status", rec.Status, "duration", rec.EndedAt.Sub(startedAt))
	}()

	if err = r.open(ctx, logfile); err != nil {
		rec.Status = domain.RunStatusFailed
		rec.Error = err.Error()
		return rec, err
	}
	r.resetFeedback()

	rec.Globals = snapshot(p.Globals)
	e.saveRecord(ctx, rec)

	r.logger.Info("Experiment started", "start", start, "experiment", p.Name)

	root := &Frame{run: r, scope: vars.NewScope(vars.NewStore(), p.Globals, r.transparent)}
	err = root.Exec(ctx, start)
	switch {
	case err == nil:
		rec.Status = domain.RunStatusCompleted
	case errors.Is(err, domain.ErrAborted):
		rec.Status = domain.RunStatusAborted
		err = nil
	default:
		rec.Status = domain.RunStatusFailed
		rec.Error = err.Error()
	}
	rec.Globals = snapshot(p.Globals)
	return rec, err
}

func (e *Engine) saveRecord(ctx context.Context, rec *domain.RunRecord) {
	if e.records == nil {
		return
	}
	if err := e.records.Save(context.WithoutCancel(ctx), rec.Clone()); err != nil {
		e.logger.Warn("Failed to persist run record", "run_id", rec.ID, "err", err)
	}
}

// run is the explicit context of one run. It is created when a run starts
// and dropped when it ends.
type run struct {
	engine      *Engine
	id          string
	globals     *vars.Store
	tree        *tree.Tree
	pool        FileResolver
	transparent bool
	logger      *slog.Logger

	log       ports.LogSink
	logOpen   bool
	display   bool
	sound     bool
	cleanups  []cleanup
	workspace map[string]any
}

type displaySettings struct {
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Background string `mapstructure:"background"`
	Foreground string `mapstructure:"foreground"`
	Fullscreen bool   `mapstructure:"fullscreen"`
}

type soundSettings struct {
	Frequency  int `mapstructure:"sound_freq"`
	SampleSize int `mapstructure:"sound_sample_size"`
	Channels   int `mapstructure:"sound_channels"`
	BufferSize int `mapstructure:"sound_buf_size"`
}

func decodeGlobals(globals *vars.Store, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(globals.Map())
}

// open initializes the display, the sound and the log, in that order.
func (r *run) open(ctx context.Context, logfile string) error {
	e := r.engine

	var ds displaySettings
	if err := decodeGlobals(r.globals, &ds); err != nil {
		return fmt.Errorf("invalid display settings: %w", err)
	}
	if err := e.display.Init(ctx, ports.DisplaySettings(ds)); err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	r.display = true

	var ss soundSettings
	if err := decodeGlobals(r.globals, &ss); err != nil {
		return fmt.Errorf("invalid sound settings: %w", err)
	}
	if err := e.sound.Init(ctx, ports.SoundSettings(ss)); err != nil {
		return fmt.Errorf("failed to open sound: %w", err)
	}
	r.sound = true

	if logfile != "" && e.openLog != nil {
		sink, err := e.openLog(logfile)
		if err != nil {
			return &domain.ResourceUnwritableError{Path: logfile, Err: err}
		}
		r.log = sink
		r.logOpen = true
		r.logger.Debug("Using logfile", "path", logfile)
	}
	return nil
}

// teardown closes the log, the sound and the display, then drains the
// cleanup stack. Failures are logged and recorded, never returned.
func (r *run) teardown(ctx context.Context, rec *domain.RunRecord) {
	e := r.engine
	e.running.Store(false)

	fail := func(what string, err error) {
		r.logger.Warn("Teardown step failed", "step", what, "err", err)
		rec.TeardownErrors = append(rec.TeardownErrors, fmt.Sprintf("%s: %v", what, err))
	}

	if r.logOpen {
		if err := r.log.Flush(); err != nil {
			fail("flush log", err)
		}
		if err := r.log.Close(); err != nil {
			fail("close log", err)
		}
	}
	if r.sound {
		if err := e.sound.Close(); err != nil {
			fail("close sound", err)
		}
	}
	if r.display {
		if err := e.display.Close(); err != nil {
			fail("close display", err)
		}
	}
	for _, err := range r.drainCleanups(ctx) {
		fail("cleanup", err)
	}
	clear(r.workspace)
	e.setPaused(nil)
}

// checkWritable verifies that path can be opened for writing without
// leaving a new file behind.
func checkWritable(path string) error {
	if path == "" {
		return nil
	}
	_, statErr := os.Stat(path)
	existed := statErr == nil
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return &domain.ResourceUnwritableError{Path: path, Err: err}
	}
	f.Close()
	if !existed {
		_ = os.Remove(path)
	}
	return nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func snapshot(s *vars.Store) map[string]string {
	out := make(map[string]string, s.Len())
	for name, v := range s.All() {
		out[name] = v.Text()
	}
	return out
}
