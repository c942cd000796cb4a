// Package metrics publishes sync engine counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

const namespace = "caresync"

// Исходы обработки мутации в цикле
const (
	OutcomeSynced     = "synced"
	OutcomeConflicted = "conflicted"
	OutcomeFailed     = "failed"
	OutcomeRetrying   = "retrying"
)

// Recorder aggregates cycle results and conflict outcomes.
type Recorder struct {
	gatherer      prometheus.Gatherer
	cycles        *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	pending       prometheus.Gauge
	lastSync      prometheus.Gauge
	degraded      prometheus.Gauge
}

// NewRecorder registers the sync collectors in reg.
// A nil reg uses a fresh private registry.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		gatherer: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Sync cycles by result (completed, offline, coalesced).",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_mutations_total",
			Help:      "Mutations processed by sync cycles by outcome.",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_conflicts_total",
			Help:      "Conflicts by entity type and resolution.",
		}, []string{"entity_type", "resolution"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_cycle_duration_seconds",
			Help:      "Duration of completed sync cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Mutations waiting in the local outbox.",
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_completed_timestamp_seconds",
			Help:      "Unix time of the last completed sync cycle.",
		}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_degraded",
			Help:      "1 when the last cycle could not use the local store.",
		}),
	}

	collectors := []prometheus.Collector{
		r.cycles, r.mutations, r.conflicts, r.cycleDuration, r.pending, r.lastSync, r.degraded,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveCycle records a finished cycle.
func (r *Recorder) ObserveCycle(result clientsync.SyncCycleResult) {
	if result.Skipped != clientsync.SkipNone {
		r.cycles.WithLabelValues(string(result.Skipped)).Inc()
		return
	}

	r.cycles.WithLabelValues("completed").Inc()
	r.mutations.WithLabelValues(OutcomeSynced).Add(float64(result.Synced))
	r.mutations.WithLabelValues(OutcomeConflicted).Add(float64(result.Conflicted))
	r.mutations.WithLabelValues(OutcomeFailed).Add(float64(result.Failed))
	r.mutations.WithLabelValues(OutcomeRetrying).Add(float64(result.Retrying))

	if !result.StartedAt.IsZero() && !result.FinishedAt.IsZero() {
		r.cycleDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}
	if !result.FinishedAt.IsZero() {
		r.lastSync.Set(float64(result.FinishedAt.Unix()))
	}

	if result.StorageDegraded {
		r.degraded.Set(1)
	} else {
		r.degraded.Set(0)
	}
}

// ObserveConflict records a single conflict outcome.
func (r *Recorder) ObserveConflict(outcome models.ConflictOutcome) {
	r.conflicts.WithLabelValues(outcome.EntityType, string(outcome.Resolution)).Inc()
}

// SetPending updates the outbox depth gauge.
func (r *Recorder) SetPending(n int) {
	r.pending.Set(float64(n))
}

// Attach subscribes the recorder to a coordinator and returns the unsubscribe func.
func (r *Recorder) Attach(c *clientsync.Coordinator) func() {
	return c.Subscribe(r.ObserveConflict, r.ObserveCycle)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
