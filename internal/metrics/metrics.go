// Package metrics provides Prometheus metrics for the pricehub service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricehub"

// Metrics holds every collector on a private registry so tests and multiple
// services in one process do not collide.
type Metrics struct {
	reg *prometheus.Registry

	// SourceFetchesTotal tracks adapter fetches by source and status
	SourceFetchesTotal *prometheus.CounterVec
	// SourceFetchDuration tracks adapter fetch duration in seconds
	SourceFetchDuration *prometheus.HistogramVec
	// SourceRecords is the record count of the last fetch per source
	SourceRecords *prometheus.GaugeVec
	// SourceMalformedTotal counts records skipped during normalization
	SourceMalformedTotal *prometheus.CounterVec

	// RefreshesTotal counts catalog rebuilds
	RefreshesTotal prometheus.Counter
	// RefreshDuration tracks catalog rebuild duration in seconds
	RefreshDuration prometheus.Histogram
	// CatalogRecords is the normalized record count of the current snapshot
	CatalogRecords prometheus.Gauge
	// CatalogModels is the canonical model count of the current snapshot
	CatalogModels prometheus.Gauge
	// LastRefresh is the unix time of the last completed rebuild
	LastRefresh prometheus.Gauge

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		SourceFetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "fetches_total",
				Help:      "Total number of source fetches by status",
			},
			[]string{"source", "status"},
		),
		SourceFetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of source fetches in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"source"},
		),
		SourceRecords: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "records",
				Help:      "Records returned by the last fetch of each source",
			},
			[]string{"source"},
		),
		SourceMalformedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "malformed_records_total",
				Help:      "Total number of records skipped as malformed",
			},
			[]string{"source"},
		),
		RefreshesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "refreshes_total",
				Help:      "Total number of catalog rebuilds",
			},
		),
		RefreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "refresh_duration_seconds",
				Help:      "Duration of catalog rebuilds in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		CatalogRecords: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "records",
				Help:      "Normalized records in the current snapshot",
			},
		),
		CatalogModels: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "canonical_models",
				Help:      "Canonical models in the current snapshot",
			},
		),
		LastRefresh: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last completed rebuild",
			},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http_client",
				Name:      "requests_total",
				Help:      "Total number of outbound HTTP requests",
			},
			[]string{"host", "status_code", "cache"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http_client",
				Name:      "request_duration_seconds",
				Help:      "Duration of outbound HTTP requests in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"host"},
		),
	}
}

// ObserveSource records one adapter fetch.
func (m *Metrics) ObserveSource(source string, records, malformed int, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SourceFetchesTotal.WithLabelValues(source, status).Inc()
	m.SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
	m.SourceRecords.WithLabelValues(source).Set(float64(records))
	if malformed > 0 {
		m.SourceMalformedTotal.WithLabelValues(source).Add(float64(malformed))
	}
}

// ObserveRefresh records one catalog rebuild.
func (m *Metrics) ObserveRefresh(records, canonical int, d time.Duration) {
	m.RefreshesTotal.Inc()
	m.RefreshDuration.Observe(d.Seconds())
	m.CatalogRecords.Set(float64(records))
	m.CatalogModels.Set(float64(canonical))
	m.LastRefresh.SetToCurrentTime()
}

// ObserveHTTP records an outbound HTTP request.
func (m *Metrics) ObserveHTTP(host string, status int, fromCache bool, d time.Duration) {
	source := "network"
	if fromCache {
		source = "hit"
	}
	m.HTTPRequestsTotal.WithLabelValues(host, strconv.Itoa(status), source).Inc()
	m.HTTPRequestDuration.WithLabelValues(host).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
