package observability

import (
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics of the client.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	requestsTotal      *prometheus.CounterVec
	apiErrors          *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	staleResults       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// metrics in it. Using a private registry avoids "duplicate collector"
// panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mybudget_api_request_duration_seconds",
				Help:    "Duration of budgeting API calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_api_requests_total",
				Help: "Total budgeting API calls by outcome.",
			},
			[]string{"status"},
		),
		apiErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_api_errors_total",
				Help: "Total failed API calls by error kind.",
			},
			[]string{"kind"},
		),
		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_session_transitions_total",
				Help: "Session state transitions.",
			},
			[]string{"state", "reason"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		staleResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mybudget_stale_results_total",
				Help: "Responses discarded because a newer request superseded them.",
			},
			[]string{"view"},
		),
	}
}

// RecordRequestDuration records the duration of an API call.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrAPIError counts a failed call by its error kind.
func (m *Metrics) IncrAPIError(kind domain.ErrorKind) {
	m.apiErrors.WithLabelValues(kind.String()).Inc()
}

// RecordSessionTransition counts a session state change.
func (m *Metrics) RecordSessionTransition(state, reason string) {
	m.sessionTransitions.WithLabelValues(state, reason).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrStaleResult counts a response dropped by a view.
func (m *Metrics) IncrStaleResult(view string) {
	m.staleResults.WithLabelValues(view).Inc()
}

var errorKinds = []domain.ErrorKind{
	domain.KindValidation,
	domain.KindConflict,
	domain.KindNotFound,
	domain.KindUnauthorized,
	domain.KindForbidden,
	domain.KindServer,
}

// Snapshot returns the current counter values, served at GET /status.
func (m *Metrics) Snapshot() *domain.ClientMetrics {
	requests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")

	apiErrors := make(map[string]int64, len(errorKinds))
	for _, k := range errorKinds {
		if v := getCounterValue(m.apiErrors, k.String()); v > 0 {
			apiErrors[k.String()] = int64(v)
		}
	}

	hits := getCounterValue(m.cacheHits, "categories")
	misses := getCounterValue(m.cacheMisses, "categories")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ClientMetrics{
		APIRequests:       int64(requests),
		APIErrors:         apiErrors,
		SessionLogins:     int64(getCounterValue(m.sessionTransitions, "authenticated", "login")),
		SessionLogouts:    int64(getCounterValue(m.sessionTransitions, "anonymous", "logout")),
		SessionRevoked:    int64(getCounterValue(m.sessionTransitions, "anonymous", "unauthorized")),
		StaleResults:      int64(sumCounter(m.staleResults)),
		CategoryCacheRate: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of cv.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err == nil && m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
