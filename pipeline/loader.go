package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-fashion-etl/models"
)

// Sink is a destination for the clean dataset.
type Sink interface {
	Name() string
	Persist(ctx context.Context, records []models.CleanRecord) error
}

// Loader writes the dataset to every configured sink, one after another.
// A failing sink never prevents the remaining sinks from being attempted.
type Loader struct {
	sinks   []Sink
	timeout time.Duration
	metrics *Metrics
}

// NewLoader builds a Loader. A timeout of zero leaves sinks bounded only by ctx.
func NewLoader(timeout time.Duration, metrics *Metrics, sinks ...Sink) *Loader {
	return &Loader{sinks: sinks, timeout: timeout, metrics: metrics}
}

// Sinks returns the configured destinations in attempt order.
func (l *Loader) Sinks() []Sink {
	return append([]Sink(nil), l.sinks...)
}

// Load attempts each sink exactly once and reports every outcome.
func (l *Loader) Load(ctx context.Context, records []models.CleanRecord) models.LoadReport {
	var report models.LoadReport
	for _, sink := range l.sinks {
		outcome := l.persist(ctx, sink, records)
		report.Add(outcome)

		if outcome.Success {
			slog.Info("destination loaded",
				slog.String("destination", outcome.Destination),
				slog.Int("records", len(records)),
				slog.Duration("duration", outcome.Duration),
			)
		} else {
			slog.Error("destination failed",
				slog.String("destination", outcome.Destination),
				slog.Duration("duration", outcome.Duration),
				slog.Any("error", outcome.Err),
			)
		}
	}
	slog.Info("load finished", slog.String("summary", report.Summary()))
	return report
}

func (l *Loader) persist(ctx context.Context, sink Sink, records []models.CleanRecord) (outcome models.LoadOutcome) {
	outcome.Destination = sink.Name()
	start := time.Now()

	sinkCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		sinkCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Err = fmt.Errorf("sink %s panicked: %v", outcome.Destination, r)
		}
		outcome.Duration = time.Since(start)
		l.metrics.observeSink(outcome.Destination, outcome.Success, len(records), outcome.Duration)
	}()

	if err := sink.Persist(sinkCtx, records); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Success = true
	return outcome
}
