package sesame

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/internal/presentation/graph"
	sesameruntime "github.com/aretw0/sesame/internal/runtime"
	"github.com/aretw0/sesame/pkg/adapters/csvlog"
	"github.com/aretw0/sesame/pkg/archive"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/items"
	"github.com/aretw0/sesame/pkg/lease"
	"github.com/aretw0/sesame/pkg/pool"
	"github.com/aretw0/sesame/pkg/registry"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/tree"
	"github.com/aretw0/sesame/pkg/vars"
)

// DefaultLogfile is used when no logfile option is given.
const DefaultLogfile = "defaultlog.csv"

// leases is shared by every Experiment of the process, so two live
// experiments never write the same log file or pool folder.
var leases = lease.NewManager()

// Experiment is the root aggregate: global variables, the item tree and
// the file pool, plus the engine that runs them.
type Experiment struct {
	name    string
	globals *vars.Store
	tree    *tree.Tree
	pool    *pool.Pool
	engine  *sesameruntime.Engine
	logger  *slog.Logger
	path    string
	logfile string

	refreshing atomic.Bool
}

type config struct {
	name            string
	poolFolder      string
	resourcesFolder string
	registry        *registry.Registry
	logfile         string
	subject         int
	fullscreen      bool
	experimentPath  string
	logger          *slog.Logger
	leases          *lease.Manager
	engineOpts      []sesameruntime.Option
}

// Option defines a functional option for configuring the Experiment.
type Option func(*config)

// WithName names the experiment in run records.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithPoolFolder uses folder as the file pool instead of a new temporary
// folder. The folder is kept on Close.
func WithPoolFolder(folder string) Option {
	return func(c *config) {
		c.poolFolder = folder
	}
}

// WithResourcesFolder is searched for files missing from the pool.
func WithResourcesFolder(folder string) Option {
	return func(c *config) {
		c.resourcesFolder = folder
	}
}

// WithRegistry sets the item types. Defaults to the built-in types.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}

// WithLogfile sets the data log path. A bare file name is placed next to
// the experiment file. An empty path disables the data log.
func WithLogfile(path string) Option {
	return func(c *config) {
		c.logfile = path
	}
}

// WithSubject sets subject_nr and subject_parity.
func WithSubject(nr int) Option {
	return func(c *config) {
		c.subject = nr
	}
}

// WithFullscreen sets the fullscreen variable.
func WithFullscreen(on bool) Option {
	return func(c *config) {
		c.fullscreen = on
	}
}

// WithExperimentPath overrides the folder the experiment was loaded from.
func WithExperimentPath(path string) Option {
	return func(c *config) {
		c.experimentPath = path
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLeaseManager replaces the process-wide lease manager, for instance
// with one backed by a distributed locker.
func WithLeaseManager(m *lease.Manager) Option {
	return func(c *config) {
		c.leases = m
	}
}

// WithEngineOptions passes options to the execution engine.
func WithEngineOptions(opts ...sesameruntime.Option) Option {
	return func(c *config) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// New creates an experiment from src: definition text, a .opensesame file
// or a .opensesame.tar.gz archive, whose pool is extracted into the
// experiment's pool folder.
func New(src string, opts ...Option) (*Experiment, error) {
	cfg := &config{
		name:     "experiment",
		logfile:  DefaultLogfile,
		registry: items.NewRegistry(),
		logger:   logging.NewNop(),
		leases:   leases,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("experiment", cfg.name)

	p, err := pool.New(cfg.poolFolder, pool.WithFallback(cfg.resourcesFolder), pool.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	loaded, err := archive.Load(src, p.Folder(), archive.WithLogger(logger))
	if err != nil {
		p.Close()
		return nil, err
	}
	def, err := script.Parse(loaded.Script)
	if err != nil {
		p.Close()
		return nil, err
	}

	e := &Experiment{
		name:    cfg.name,
		globals: defaultGlobals(cfg.fullscreen),
		pool:    p,
		logger:  logger,
		path:    loaded.ExperimentPath,
		logfile: cfg.logfile,
	}
	if cfg.experimentPath != "" {
		e.path = cfg.experimentPath
	}
	for name, v := range def.Globals.All() {
		e.globals.Set(name, v)
	}
	e.tree = tree.Build(def, cfg.registry)
	e.SetSubject(cfg.subject)

	engineOpts := []sesameruntime.Option{
		sesameruntime.WithLogger(logger),
		sesameruntime.WithLease(cfg.leases),
		sesameruntime.WithVersion(Version, Codename),
		sesameruntime.WithLogOpener(csvlog.Open),
	}
	e.engine = sesameruntime.NewEngine(append(engineOpts, cfg.engineOpts...)...)

	logger.Debug("Experiment loaded", "kind", loaded.Kind, "items", e.tree.Len(), "pool_files", len(loaded.PoolFiles))
	return e, nil
}

func defaultGlobals(fullscreen bool) *vars.Store {
	s := vars.NewStore()
	s.Set(domain.VarStart, vars.String("experiment"))
	s.Set(domain.VarTitle, vars.String("My Experiment"))
	s.Set(domain.VarTransparentVariables, vars.Bool(false))
	s.Set("bidi", vars.Bool(false))
	s.Set("round_decimals", vars.Int(2))

	s.Set("sound_freq", vars.Int(48000))
	// Negative sizes are signed samples.
	s.Set("sound_sample_size", vars.Int(-16))
	s.Set("sound_channels", vars.Int(2))
	s.Set("sound_buf_size", vars.Int(1024))

	s.Set("width", vars.Int(1024))
	s.Set("height", vars.Int(768))
	s.Set("background", vars.String("black"))
	s.Set("foreground", vars.String("white"))
	s.Set("fullscreen", vars.Bool(fullscreen))

	s.Set("font_size", vars.Int(18))
	s.Set("font_family", vars.String("mono"))
	s.Set("font_italic", vars.Bool(false))
	s.Set("font_bold", vars.Bool(false))
	s.Set("font_underline", vars.Bool(false))
	return s
}

// Name returns the experiment name.
func (e *Experiment) Name() string { return e.name }

// Path returns the folder the experiment was loaded from or last saved
// to, or empty for experiments built from text.
func (e *Experiment) Path() string { return e.path }

// Vars returns the global variable store.
func (e *Experiment) Vars() *vars.Store { return e.globals }

// Items returns the item tree.
func (e *Experiment) Items() *tree.Tree { return e.tree }

// Pool returns the file pool.
func (e *Experiment) Pool() *pool.Pool { return e.pool }

// Engine returns the execution engine.
func (e *Experiment) Engine() *sesameruntime.Engine { return e.engine }

// Get returns a global variable.
func (e *Experiment) Get(name string) (vars.Value, bool) { return e.globals.Get(name) }

// Lookup returns a global variable or vars.ErrUndefined.
func (e *Experiment) Lookup(name string) (vars.Value, error) { return e.globals.Lookup(name) }

// Has reports whether a global variable is defined.
func (e *Experiment) Has(name string) bool { return e.globals.Has(name) }

// Set assigns a global variable from a Go value.
func (e *Experiment) Set(name string, value any) error { return e.globals.SetAny(name, value) }

// Unset removes a global variable.
func (e *Experiment) Unset(name string) { e.globals.Delete(name) }

// Start returns the name of the entry item.
func (e *Experiment) Start() string {
	v, _ := e.globals.Get(domain.VarStart)
	return v.Text()
}

// SetSubject sets subject_nr and the matching subject_parity.
func (e *Experiment) SetSubject(nr int) {
	e.globals.Set(domain.VarSubjectNr, vars.Int(int64(nr)))
	parity := "even"
	if nr%2 != 0 {
		parity = "odd"
	}
	e.globals.Set(domain.VarSubjectParity, vars.String(parity))
}

// Logfile returns the configured data log path.
func (e *Experiment) Logfile() string { return e.logfile }

// SetLogfile changes the data log path for later runs.
func (e *Experiment) SetLogfile(path string) { e.logfile = path }

// ResolveFile returns the path of a pool file.
func (e *Experiment) ResolveFile(name string) (string, error) { return e.pool.Path(name) }

// Validate checks the item tree from the start item.
func (e *Experiment) Validate() error {
	return e.tree.Validate(e.Start())
}

// ToText serializes the experiment.
func (e *Experiment) ToText() string {
	return script.Serialize(e.globals, e.tree.Items(), &script.Header{
		Version:  Version,
		Codename: Codename,
		Time:     time.Now().Format(time.ANSIC),
		Platform: runtime.GOOS,
	})
}

// Save writes the experiment to path and returns the path written. See
// archive.Save for the format rules.
func (e *Experiment) Save(path string, overwrite bool) (string, error) {
	written, err := archive.Save(e.ToText(), e.pool, path, overwrite, archive.WithLogger(e.logger))
	if err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(filepath.Dir(written)); err == nil {
		e.path = abs
	}
	e.logger.Info("Experiment saved", "path", written)
	return written, nil
}

// Run validates and runs the experiment once. A run stopped by Abort
// returns a record with status aborted and no error.
func (e *Experiment) Run(ctx context.Context) (*domain.RunRecord, error) {
	return e.engine.Run(ctx, sesameruntime.Program{
		Name:           e.name,
		Globals:        e.globals,
		Tree:           e.tree,
		Pool:           e.pool,
		Logfile:        e.logfile,
		ExperimentPath: e.path,
	})
}

// Running reports whether a run is in progress.
func (e *Experiment) Running() bool { return e.engine.Running() }

// Abort asks the current run to stop.
func (e *Experiment) Abort() { e.engine.Abort() }

// Paused returns the pause state of the current run.
func (e *Experiment) Paused() (sesameruntime.PauseState, bool) { return e.engine.Paused() }

// Resume continues a paused run.
func (e *Experiment) Resume() bool { return e.engine.Resume() }

// Close releases the pool folder if the experiment owns it.
func (e *Experiment) Close() error {
	return e.pool.Close()
}

// Refresh runs fn unless a refresh is already in progress, in which case
// the call is a no-op and returns false.
func (e *Experiment) Refresh(fn func()) bool {
	if !e.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer e.refreshing.Store(false)
	fn()
	return true
}

// Reload replaces globals and items with those of text. The pool is kept.
func (e *Experiment) Reload(text string) error {
	var err error
	e.Refresh(func() {
		var def *script.Definition
		def, err = script.Parse(text)
		if err != nil {
			return
		}
		globals := defaultGlobals(false)
		for name, v := range def.Globals.All() {
			globals.Set(name, v)
		}
		e.globals.Replace(globals)
		e.tree = tree.Build(def, e.tree.Registry())
	})
	return err
}

// UniqueName derives an unused item name from base.
func (e *Experiment) UniqueName(base string) string { return e.tree.UniqueName(base) }

// AddItem creates an item of type typ under a unique name derived from
// name.
func (e *Experiment) AddItem(typ, name string) (domain.Item, error) {
	return e.tree.Create(typ, e.tree.UniqueName(name))
}

// RenameItem renames an item, rewriting references and the start
// variable.
func (e *Experiment) RenameItem(old, new string) error {
	if err := e.tree.Rename(old, new); err != nil {
		return err
	}
	if e.Start() == old {
		e.globals.Set(domain.VarStart, vars.String(new))
	}
	return nil
}

// DeleteItem removes an item. References to it are left dangling and
// reported by Validate.
func (e *Experiment) DeleteItem(name string) { e.tree.Delete(name) }

// Unused lists items not reachable from the start item.
func (e *Experiment) Unused() []string { return e.tree.Unused(e.Start()) }

// ItemTypes maps item names to types.
func (e *Experiment) ItemTypes() map[string]string {
	out := make(map[string]string, e.tree.Len())
	for _, it := range e.tree.Items() {
		out[it.Name()] = it.Type()
	}
	return out
}

// VarList lists the variables of the experiment and of every item, each
// name once. The description names the defining item, "global" for the
// experiment. A non-empty filter keeps entries whose name, value or item
// contains it, ignoring case.
func (e *Experiment) VarList(filter string) []domain.VarInfo {
	filter = strings.ToLower(filter)
	seen := map[string]bool{}
	var out []domain.VarInfo
	add := func(owner, name, value string) {
		if seen[name] {
			return
		}
		if filter != "" &&
			!strings.Contains(strings.ToLower(name), filter) &&
			!strings.Contains(strings.ToLower(value), filter) &&
			!strings.Contains(strings.ToLower(owner), filter) {
			return
		}
		seen[name] = true
		out = append(out, domain.VarInfo{Name: name, Value: value, Description: owner})
	}

	for name, v := range e.globals.All() {
		add("global", name, v.Text())
	}
	for _, name := range e.tree.Names() {
		it, _ := e.tree.Get(name)
		for _, info := range it.VarInfo() {
			value := info.Value
			if v, ok := e.globals.Get(info.Name); ok {
				value = v.Text()
			} else if value == "" {
				value = info.Description
			}
			add(name, info.Name, value)
		}
		for n, v := range it.Vars().All() {
			add(name, n, v.Text())
		}
	}
	return out
}

// Mermaid renders the item tree, highlighting the paused item if any.
func (e *Experiment) Mermaid() string {
	var overlay *graph.GraphOverlay
	if st, ok := e.engine.Paused(); ok && st.Item != "" {
		overlay = &graph.GraphOverlay{CurrentItem: st.Item}
	}
	return graph.GenerateMermaid(e.tree, e.Start(), overlay)
}

// String describes the experiment for logs.
func (e *Experiment) String() string {
	names := e.tree.Names()
	return fmt.Sprintf("%s (%d items, start %q, pool %s)", e.name, len(names), e.Start(), e.pool.Folder())
}
