package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the extract stage.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	CardsScrapedTotal prometheus.Counter
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	PagesSkippedTotal prometheus.Counter
}

// NewMetrics constructs the extract collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_extract_requests_total",
			Help: "Total HTTP requests issued against the catalog.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_extract_request_duration_seconds",
			Help:    "HTTP request latency for catalog pages.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cardsScraped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_extract_cards_total",
			Help: "Total number of product cards extracted.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_extract_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_extract_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_extract_pages_skipped_total",
			Help: "Pages abandoned after exhausting retries.",
		},
	)

	if reg != nil {
		reg.MustRegister(requests, requestDuration, cardsScraped, retries, errorsTotal, skipped)
	}

	return &Metrics{
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		CardsScrapedTotal: cardsScraped,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		PagesSkippedTotal: skipped,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddCards increments the cards counter by n.
func (m *Metrics) AddCards(n int) {
	if m == nil {
		return
	}
	m.CardsScrapedTotal.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSkipped increments the skipped pages counter.
func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	m.PagesSkippedTotal.Inc()
}
