package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/sesame/pkg/domain"
)

// Metrics holds the run collectors.
type Metrics struct {
	runs         *prometheus.CounterVec
	running      prometheus.Gauge
	itemVisits   *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	cleanups     *prometheus.CounterVec
	pauses       prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers the collectors. A nil registerer
// uses a private registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		r := prometheus.NewRegistry()
		reg = r
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesame_runs_total",
				Help: "Finished runs by status",
			},
			[]string{"status"},
		),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sesame_runs_active",
			Help: "Runs currently executing",
		}),
		itemVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesame_item_visits_total",
				Help: "Item lifecycle phases entered",
			},
			[]string{"item", "type", "phase"},
		),
		itemDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sesame_item_duration_seconds",
				Help:    "Duration of item lifecycle phases",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"type", "phase"},
		),
		cleanups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sesame_cleanups_total",
				Help: "Cleanup callbacks executed",
			},
			[]string{"result"},
		),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sesame_pauses_total",
			Help: "Times a run was paused",
		}),
	}
	for _, c := range []prometheus.Collector{m.runs, m.running, m.itemVisits, m.itemDuration, m.cleanups, m.pauses} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m, nil
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Hooks records metrics from engine events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.running.Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.running.Dec()
			m.runs.WithLabelValues(runStatus(e)).Inc()
		},
		OnItemEnter: func(_ context.Context, e *domain.ItemEvent) {
			m.itemVisits.WithLabelValues(e.Item, e.ItemType, string(e.Phase)).Inc()
		},
		OnItemLeave: func(_ context.Context, e *domain.ItemEvent) {
			m.itemDuration.WithLabelValues(e.ItemType, string(e.Phase)).Observe(e.Duration.Seconds())
		},
		OnCleanup: func(_ context.Context, e *domain.CleanupEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.cleanups.WithLabelValues(result).Inc()
		},
		OnPause: func(_ context.Context, e *domain.EventBase) {
			if e.Type == domain.EventPause {
				m.pauses.Inc()
			}
		},
	}
}

func runStatus(e *domain.RunEvent) string {
	switch {
	case e.Status != "":
		return string(e.Status)
	case e.Err != nil:
		return string(domain.RunStatusFailed)
	}
	return string(domain.RunStatusCompleted)
}
