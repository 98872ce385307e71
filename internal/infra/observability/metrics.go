package observability

import (
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	registrations   prometheus.Counter
	logins          *prometheus.CounterVec
	receiptsIssued  prometheus.Counter
	calculations    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "financetips_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financetips_store_errors_total",
				Help: "Total errors from the persistence collaborator.",
			},
			[]string{"store"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financetips_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financetips_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		registrations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "financetips_registrations_total",
				Help: "Total accounts registered.",
			},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financetips_logins_total",
				Help: "Total login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		receiptsIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "financetips_receipts_issued_total",
				Help: "Total receipts issued (corrections included).",
			},
		),
		calculations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "financetips_calculations_total",
				Help: "Total calculator runs by type.",
			},
			[]string{"type"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the persistence error counter.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRegistration increments the registration counter.
func (m *Metrics) IncrRegistration() {
	m.registrations.Inc()
}

// IncrLogin increments the login counter with an outcome label
// ("success" or "failure").
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// IncrReceiptIssued increments the issued-receipt counter.
func (m *Metrics) IncrReceiptIssued() {
	m.receiptsIssued.Inc()
}

// IncrCalculation increments the calculator counter for a type.
func (m *Metrics) IncrCalculation(calcType string) {
	m.calculations.WithLabelValues(calcType).Inc()
}

// GetUsageSnapshot returns a snapshot of usage counters suitable for
// the GET /v1/metrics/usage endpoint.
func (m *Metrics) GetUsageSnapshot() *domain.UsageMetrics {
	loginsOK := getCounterValue(m.logins, "success")
	loginsKO := getCounterValue(m.logins, "failure")

	calcTotal := 0.0
	for _, t := range []domain.CalculationType{
		domain.CalcSavingsPlan, domain.CalcLoanDuration,
		domain.CalcBudgetSimulation, domain.CalcZakat,
	} {
		calcTotal += getCounterValue(m.calculations, string(t))
	}

	cacheHits := getCounterValue(m.cacheHits, "tips") + getCounterValue(m.cacheHits, "profile")
	cacheMisses := getCounterValue(m.cacheMisses, "tips") + getCounterValue(m.cacheMisses, "profile")
	cacheHitRate := 0.0
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.UsageMetrics{
		Registrations:     int64(getSingleCounterValue(m.registrations)),
		LoginsSucceeded:   int64(loginsOK),
		LoginsFailed:      int64(loginsKO),
		ReceiptsIssued:    int64(getSingleCounterValue(m.receiptsIssued)),
		CalculationsTotal: int64(calcTotal),
		CacheHitRate:      cacheHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
