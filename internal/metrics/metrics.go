// Package metrics defines the Prometheus collectors for fetches and notifications.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "typhoon"

// Metrics holds the Prometheus counters, histograms, and gauges for typhoon.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Fetch metrics.
	Fetches       *prometheus.CounterVec // labels: outcome={ok,no_rows,url_error,network_error,no_data,decode_error}
	FetchDuration prometheus.Histogram
	Cities        prometheus.Gauge
	ResponseBytes prometheus.Gauge
	LastSuccess   prometheus.Gauge

	// Notification metrics.
	Notifications *prometheus.CounterVec // labels: channel={telegram,twitter,dry-run}, result={sent,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Fetches,
		m.FetchDuration,
		m.Cities,
		m.ResponseBytes,
		m.LastSuccess,
		m.Notifications,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Status page fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one fetch including decode and extraction.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Cities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cities",
			Help:      "Number of city rows extracted by the latest fetch.",
		}),
		ResponseBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "response_bytes",
			Help:      "Body size of the latest fetch in bytes.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the latest fetch that did not fail.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by channel and result.",
		}, []string{"channel", "result"}),
	}
}

// ObserveFetch records one completed fetch. failed marks results carrying a
// failure label; their row and size gauges are left untouched.
func (m *Metrics) ObserveFetch(outcome string, failed bool, duration time.Duration, cities, size int, at time.Time) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(duration.Seconds())
	if failed {
		return
	}
	m.Cities.Set(float64(cities))
	m.ResponseBytes.Set(float64(size))
	m.LastSuccess.Set(float64(at.Unix()))
}

// ObserveNotification records one notification attempt on a channel.
func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "error"
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}
