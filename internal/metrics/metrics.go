// Package metrics exposes Prometheus instruments for the planning pipeline
// and the HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "helix"

// Manager holds every instrument. A nil *Manager is valid and records
// nothing, so callers never need to check.
type Manager struct {
	registry *prometheus.Registry

	// counters
	CounterRequests         *prometheus.CounterVec
	CounterChats            *prometheus.CounterVec
	CounterPlansExtracted   prometheus.Counter
	CounterPlansAccepted    prometheus.Counter
	CounterExercisesCreated prometheus.Counter
	CounterExercisesSkipped prometheus.Counter
	CounterCardFetches      *prometheus.CounterVec
	CounterPruned           prometheus.Counter

	// histograms
	HistRequestDuration *prometheus.HistogramVec
	HistChatDuration    *prometheus.HistogramVec
}

// New creates a Manager backed by its own registry, including the Go runtime
// and process collectors.
func New() *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewManager(reg)
}

// NewManager registers all instruments with reg.
func NewManager(reg *prometheus.Registry) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		CounterChats: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "chat_requests_total",
			Help:      "Provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		CounterPlansExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "plans_extracted_total",
			Help:      "Assistant replies that carried a training plan",
		}),
		CounterPlansAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "plans_accepted_total",
			Help:      "Plans converted into training sessions",
		}),
		CounterExercisesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "exercises_created_total",
			Help:      "Catalog exercises created while accepting plans",
		}),
		CounterExercisesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "exercises_skipped_total",
			Help:      "Proposed exercises dropped because they could not be resolved",
		}),
		CounterCardFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lumio",
			Name:      "card_fetches_total",
			Help:      "Markdown card lookups by result (hit, miss, error)",
		}, []string{"result"}),
		CounterPruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "conversations_pruned_total",
			Help:      "Empty conversations removed by maintenance",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		HistChatDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "chat_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 240},
		}, []string{"provider"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Manager) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CounterRequests.WithLabelValues(method, route, status).Inc()
	m.HistRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveChat records one provider call.
func (m *Manager) ObserveChat(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CounterChats.WithLabelValues(provider, outcome).Inc()
	m.HistChatDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// PlanExtracted counts a reply that carried a plan.
func (m *Manager) PlanExtracted() {
	if m == nil {
		return
	}
	m.CounterPlansExtracted.Inc()
}

// PlanAccepted records an accepted plan and its exercise resolution.
func (m *Manager) PlanAccepted(created, skipped int) {
	if m == nil {
		return
	}
	m.CounterPlansAccepted.Inc()
	m.CounterExercisesCreated.Add(float64(created))
	m.CounterExercisesSkipped.Add(float64(skipped))
}

// CardFetch records a markdown card lookup.
func (m *Manager) CardFetch(result string) {
	if m == nil {
		return
	}
	m.CounterCardFetches.WithLabelValues(result).Inc()
}

// Pruned records conversations removed by maintenance.
func (m *Manager) Pruned(n int64) {
	if m == nil {
		return
	}
	m.CounterPruned.Add(float64(n))
}
