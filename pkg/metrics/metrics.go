package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tucosto"

// CatalogMetrics records catalog cache behavior.
type CatalogMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_cache_hits_total",
		Help:      "Catalog reads served from the cache.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_cache_misses_total",
		Help:      "Catalog reads that went to the upstream source.",
	})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_fetch_errors_total",
		Help:      "Failed upstream catalog fetches.",
	})
	reg.MustRegister(hits, misses, errs)
	return &CatalogMetrics{hits: hits, misses: misses, errors: errs}
}

// IncCacheHit increments the cache hit counter.
func (c *CatalogMetrics) IncCacheHit() {
	if c == nil || c.hits == nil {
		return
	}
	c.hits.Inc()
}

// IncCacheMiss increments the cache miss counter.
func (c *CatalogMetrics) IncCacheMiss() {
	if c == nil || c.misses == nil {
		return
	}
	c.misses.Inc()
}

// IncFetchError increments the fetch failure counter.
func (c *CatalogMetrics) IncFetchError() {
	if c == nil || c.errors == nil {
		return
	}
	c.errors.Inc()
}

// LedgerMetrics records ledger mutations and report renders.
type LedgerMetrics struct {
	appends  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	clears   prometheus.Counter
	reports  prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	appends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_appends_total",
		Help:      "Rows appended to session ledgers.",
	}, []string{"price_source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_rejections_total",
		Help:      "Append attempts rejected before mutation.",
	}, []string{"reason"})
	clears := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_clears_total",
		Help:      "Ledger clear operations.",
	})
	reports := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_reports_total",
		Help:      "PDF reports rendered.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_operation_duration_seconds",
		Help:      "Duration of budget operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(appends, rejected, clears, reports, duration)
	return &LedgerMetrics{
		appends:  appends,
		rejected: rejected,
		clears:   clears,
		reports:  reports,
		duration: duration,
	}
}

// IncAppend counts an appended row; source is "catalog" or "default".
func (l *LedgerMetrics) IncAppend(source string) {
	if l == nil || l.appends == nil {
		return
	}
	l.appends.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncRejected counts a rejected append.
func (l *LedgerMetrics) IncRejected(reason string) {
	if l == nil || l.rejected == nil {
		return
	}
	l.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncClear counts a clear.
func (l *LedgerMetrics) IncClear() {
	if l == nil || l.clears == nil {
		return
	}
	l.clears.Inc()
}

// IncReport counts a rendered report.
func (l *LedgerMetrics) IncReport() {
	if l == nil || l.reports == nil {
		return
	}
	l.reports.Inc()
}

// ObserveSeconds records the duration for the named operation.
func (l *LedgerMetrics) ObserveSeconds(operation string, seconds float64) {
	if l == nil || l.duration == nil {
		return
	}
	l.duration.WithLabelValues(normalizeLabel(operation)).Observe(seconds)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// RegisterActiveSessions exports the number of live in-process sessions,
// read from count on every scrape.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) {
	if reg == nil || count == nil {
		return
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently held by the in-memory store.",
	}, func() float64 {
		return float64(count())
	}))
}
