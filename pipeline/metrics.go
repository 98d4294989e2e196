package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the load stage and the run as a whole.
type Metrics struct {
	SinkResults   *prometheus.CounterVec
	SinkDuration  *prometheus.HistogramVec
	RecordsLoaded *prometheus.CounterVec
	RunDuration   prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// NewMetrics constructs the load collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SinkResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_load_sink_results_total",
				Help: "Destination write outcomes.",
			},
			[]string{"sink", "result"},
		),
		SinkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etl_load_sink_duration_seconds",
				Help:    "Time spent persisting the dataset per destination.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
		RecordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etl_load_records_total",
				Help: "Records handed to each destination that succeeded.",
			},
			[]string{"sink"},
		),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etl_run_last_success_timestamp_seconds",
			Help: "Unix time of the last run where every destination succeeded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SinkResults, m.SinkDuration, m.RecordsLoaded, m.RunDuration, m.LastSuccess)
	}
	return m
}

func (m *Metrics) observeSink(sink string, ok bool, records int, d time.Duration) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
		m.RecordsLoaded.WithLabelValues(sink).Add(float64(records))
	}
	m.SinkResults.WithLabelValues(sink, result).Inc()
	m.SinkDuration.WithLabelValues(sink).Observe(d.Seconds())
}

func (m *Metrics) observeRun(d time.Duration, allSucceeded bool, end time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())
	if allSucceeded {
		m.LastSuccess.Set(float64(end.Unix()))
	}
}
