package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCatalogMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCatalogMetrics(reg)
	m.IncCacheHit()
	m.IncCacheHit()
	m.IncCacheMiss()
	m.IncFetchError()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for name, want := range map[string]float64{
		"tucosto_catalog_cache_hits_total":   2,
		"tucosto_catalog_cache_misses_total": 1,
		"tucosto_catalog_fetch_errors_total": 1,
	} {
		got, err := fetchCounterValue(mfs, name, "", "")
		if err != nil {
			t.Fatalf("fetch %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s expected %f got %f", name, want, got)
		}
	}
}

func TestLedgerMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.IncAppend("catalog")
	m.IncRejected("")
	m.IncClear()
	m.IncReport()
	m.ObserveSeconds("report", 0.25)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "tucosto_ledger_appends_total", "price_source", "catalog"); err != nil || got != 1 {
		t.Fatalf("appends=%f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "tucosto_ledger_rejections_total", "reason", "unknown"); err != nil || got != 1 {
		t.Fatalf("rejections=%f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "tucosto_ledger_operation_duration_seconds", "operation", "report"); err != nil || got <= 0 {
		t.Fatalf("duration sum=%f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var c *CatalogMetrics
	c.IncCacheHit()
	c.IncCacheMiss()
	c.IncFetchError()

	l := NewLedgerMetrics(nil)
	l.IncAppend("catalog")
	l.IncClear()
	l.ObserveSeconds("add", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestActiveSessionsGaugeReadsOnScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	live := 3
	RegisterActiveSessions(reg, func() int { return live })

	read := func() float64 {
		t.Helper()
		mfs, err := reg.Gather()
		if err != nil {
			t.Fatalf("gather metrics: %v", err)
		}
		for _, mf := range mfs {
			if mf.GetName() == "tucosto_sessions_active" {
				return mf.GetMetric()[0].GetGauge().GetValue()
			}
		}
		t.Fatal("tucosto_sessions_active not registered")
		return 0
	}

	if got := read(); got != 3 {
		t.Fatalf("expected 3 active sessions, got %f", got)
	}
	live = 1
	if got := read(); got != 1 {
		t.Fatalf("expected 1 active session, got %f", got)
	}

	RegisterActiveSessions(nil, func() int { return 0 })
}
