package domain

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/sesame/pkg/vars"
)

// Item is the capability set every node of the experiment tree implements.
//
// Prepare performs work that must not count toward run latency, such as
// resolving pool files. Run performs the observable action.
type Item interface {
	Name() string
	Type() string
	// Vars is the item's own variable store.
	Vars() *vars.Store
	Prepare(ctx context.Context, rc RunContext) error
	Run(ctx context.Context, rc RunContext) error
	// ToText renders the item as a define block.
	ToText() string
	// VarInfo lists the variables the item declares or sets while running.
	VarInfo() []VarInfo
}

// Renamer is implemented by items whose name can change after construction.
type Renamer interface {
	SetName(name string)
}

// Parent is implemented by structural items that reference other items.
type Parent interface {
	// Children returns the referenced item names in execution order.
	Children() []string
	// RenameChild rewrites references to old into new.
	RenameChild(old, new string)
}

// VarInfo describes one variable exposed by an item.
type VarInfo struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// RunContext is the explicit context of one executing item.
// A new RunContext is created for each child executed through Exec.
type RunContext interface {
	// Scope resolves variables for the current item.
	Scope() *vars.Scope
	// Globals is the experiment-wide variable store.
	Globals() *vars.Store
	// Exec prepares and runs the named item as a child of the current one.
	Exec(ctx context.Context, name string) error
	// ResolveFile maps a logical pool name to an absolute path.
	ResolveFile(name string) (string, error)
	// RegisterCleanup schedules fn for teardown. Callbacks run in reverse
	// registration order.
	RegisterCleanup(label string, fn func() error)

	Show(ctx context.Context, c Canvas) error
	Play(ctx context.Context, s Sample) error
	Collect(ctx context.Context, req ResponseRequest) (Response, error)
	Log(ctx context.Context, row LogRow) error

	// RecordResponse updates the feedback counters.
	RecordResponse(correct bool, rt time.Duration)
	// ResetFeedback restores the feedback counters to their initial values.
	ResetFeedback()

	// Workspace is shared by every script executed during the run.
	Workspace() map[string]any

	// Running reports whether the run was not aborted.
	Running() bool
	// Pause blocks until the run is resumed or ctx is done.
	Pause(ctx context.Context) error
	Rand() *rand.Rand
	Now() time.Time
	Logger() *slog.Logger
}

// Element is one drawing command of a canvas.
type Element struct {
	Kind  string            `json:"kind"`
	Props map[string]string `json:"props,omitempty"`
}

// Canvas is what an item asks the display to show.
type Canvas struct {
	Item     string    `json:"item"`
	Elements []Element `json:"elements"`
}

// Sample is a sound file resolved from the pool.
type Sample struct {
	Item   string  `json:"item"`
	Path   string  `json:"path"`
	Volume float64 `json:"volume"`
	Pan    float64 `json:"pan"`
}

// ResponseRequest describes the response an item waits for.
type ResponseRequest struct {
	Item    string
	Allowed []string
	// Timeout of zero waits indefinitely.
	Timeout time.Duration
}

// Response is a collected response. An empty Value means a timeout.
type Response struct {
	Value string
	RT    time.Duration
}

// LogField is one column of a log row.
type LogField struct {
	Name  string
	Value string
}

// LogRow is an ordered row of logged values.
type LogRow []LogField
