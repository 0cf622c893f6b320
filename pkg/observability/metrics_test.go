package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnRunStart(ctx, &domain.RunEvent{Start: "experiment"})
	hooks.OnItemEnter(ctx, &domain.ItemEvent{Item: "trial", ItemType: "sketchpad", Phase: domain.PhaseRun})
	hooks.OnItemEnter(ctx, &domain.ItemEvent{Item: "trial", ItemType: "sketchpad", Phase: domain.PhaseRun})
	hooks.OnItemLeave(ctx, &domain.ItemEvent{Item: "trial", ItemType: "sketchpad", Phase: domain.PhaseRun, Duration: time.Millisecond})
	hooks.OnCleanup(ctx, &domain.CleanupEvent{Label: "f", Err: errors.New("boom")})
	hooks.OnPause(ctx, &domain.EventBase{Type: domain.EventPause})
	hooks.OnPause(ctx, &domain.EventBase{Type: domain.EventResume})
	hooks.OnRunEnd(ctx, &domain.RunEvent{Status: domain.RunStatusAborted})

	expected := `
# HELP sesame_item_visits_total Item lifecycle phases entered
# TYPE sesame_item_visits_total counter
sesame_item_visits_total{item="trial",phase="run",type="sketchpad"} 2
# HELP sesame_runs_total Finished runs by status
# TYPE sesame_runs_total counter
sesame_runs_total{status="aborted"} 1
# HELP sesame_runs_active Runs currently executing
# TYPE sesame_runs_active gauge
sesame_runs_active 0
# HELP sesame_cleanups_total Cleanup callbacks executed
# TYPE sesame_cleanups_total counter
sesame_cleanups_total{result="error"} 1
# HELP sesame_pauses_total Times a run was paused
# TYPE sesame_pauses_total counter
sesame_pauses_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected),
		"sesame_item_visits_total", "sesame_runs_total", "sesame_runs_active",
		"sesame_cleanups_total", "sesame_pauses_total"))
	n, err := testutil.GatherAndCount(reg, "sesame_item_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_RunStatusFallsBackToError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	hooks.OnRunStart(context.Background(), &domain.RunEvent{})
	hooks.OnRunEnd(context.Background(), &domain.RunEvent{Err: errors.New("x")})
	hooks.OnRunStart(context.Background(), &domain.RunEvent{})
	hooks.OnRunEnd(context.Background(), &domain.RunEvent{})

	expected := `
# HELP sesame_runs_total Finished runs by status
# TYPE sesame_runs_total counter
sesame_runs_total{status="completed"} 1
sesame_runs_total{status="failed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "sesame_runs_total"))
}

func TestMetrics_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_Handler(t *testing.T) {
	m, err := observability.NewMetrics(nil)
	require.NoError(t, err)
	m.Hooks().OnRunStart(context.Background(), &domain.RunEvent{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "sesame_runs_active 1")
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	hooks.OnItemEnter(context.Background(), &domain.ItemEvent{Item: "trial", Phase: domain.PhasePrepare})
	hooks.OnCleanup(context.Background(), &domain.CleanupEvent{Label: "f"})
	hooks.OnCleanup(context.Background(), &domain.CleanupEvent{Label: "g", Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "msg=item_enter")
	assert.Contains(t, out, "item=trial")
	assert.NotContains(t, out, "label=f")
	assert.Contains(t, out, "err=boom")
}
