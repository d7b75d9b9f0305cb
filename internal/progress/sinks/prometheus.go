package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheoCtla/SmartQA/internal/progress"
)

// PrometheusSink exports audit progress via Prometheus: events by type,
// audits running, and oracle tokens consumed.
type PrometheusSink struct {
	events        *prometheus.CounterVec
	auditsRunning prometheus.Gauge
	tokens        prometheus.Counter

	tracker *auditTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smartqa_progress_events_total",
			Help: "Progress events delivered, partitioned by type.",
		}, []string{"type"}),
		auditsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smartqa_audits_running",
			Help: "Audits started but not yet finished.",
		}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smartqa_oracle_tokens_total",
			Help: "Total oracle tokens reported through token_usage events.",
		}),
		tracker: newAuditTracker(),
	}
	for _, collector := range []prometheus.Collector{s.events, s.auditsRunning, s.tokens} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.events.WithLabelValues(string(evt.Type)).Inc()
		switch evt.Type {
		case progress.TypeStart:
			if s.tracker.start(evt.AuditID) {
				s.auditsRunning.Inc()
			}
		case progress.TypeSuccess, progress.TypeError:
			if s.tracker.complete(evt.AuditID) {
				s.auditsRunning.Dec()
			}
		case progress.TypeTokenUsage:
			if evt.Tokens > 0 {
				s.tokens.Add(float64(evt.Tokens))
			}
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type auditTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newAuditTracker() *auditTracker {
	return &auditTracker{running: make(map[[16]byte]struct{})}
}

func (t *auditTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *auditTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
