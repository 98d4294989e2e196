package transform

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the transform stage.
type Metrics struct {
	RowsTotal    *prometheus.CounterVec
	DroppedTotal *prometheus.CounterVec
}

// NewMetrics constructs the transform collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_transform_rows_total",
			Help: "Rows seen by the transformer, by result.",
		},
		[]string{"result"},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etl_transform_dropped_total",
			Help: "Rows excluded by validation, by failed predicate.",
		},
		[]string{"reason"},
	)
	if reg != nil {
		reg.MustRegister(rows, dropped)
	}
	return &Metrics{RowsTotal: rows, DroppedTotal: dropped}
}

func (m *Metrics) observeBatch(in, kept int) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues("kept").Add(float64(kept))
	m.RowsTotal.WithLabelValues("dropped").Add(float64(in - kept))
}

func (m *Metrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedTotal.WithLabelValues(reason).Inc()
}
