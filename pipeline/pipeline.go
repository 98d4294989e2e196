// Package pipeline runs the extract, transform and load stages in sequence and
// provides the load-stage sinks that live on the local filesystem.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-fashion-etl/models"
)

// ErrNoSinks is returned when a run has no destination to load into.
var ErrNoSinks = errors.New("pipeline: no destinations configured")

// Extractor produces the raw dataset.
type Extractor interface {
	Extract(ctx context.Context) (*models.ExtractResult, error)
}

// Transformer turns raw records into clean ones.
type Transformer interface {
	Transform(raw []models.RawRecord) []models.CleanRecord
	Stats() map[string]int
}

// Pipeline runs one batch: every stage consumes the full output of the previous one.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      *Loader
	metrics     *Metrics
}

// New wires the three stages. metrics may be nil.
func New(extractor Extractor, transformer Transformer, loader *Loader, metrics *Metrics) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		metrics:     metrics,
	}
}

// Run executes Extract, then Transform, then Load. Only fatal extraction and
// wiring errors are returned; per-row and per-destination failures end up in
// the RunResult.
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	if p.loader == nil || len(p.loader.sinks) == 0 {
		return nil, ErrNoSinks
	}

	result := &models.RunResult{StartTime: time.Now()}

	slog.Info("extract stage started")
	extracted, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	result.Extract = extracted
	result.RawCount = len(extracted.Records)
	if len(extracted.SkippedPages) > 0 {
		slog.Warn("pages skipped",
			slog.Any("pages", extracted.SkippedPages),
			slog.Int("count", len(extracted.SkippedPages)),
		)
	}

	slog.Info("transform stage started", slog.Int("raw_records", result.RawCount))
	clean := p.transformer.Transform(extracted.Records)
	result.CleanCount = len(clean)
	result.Dropped = p.transformer.Stats()
	slog.Info("transform stage finished",
		slog.Int("raw_records", result.RawCount),
		slog.Int("clean_records", result.CleanCount),
		slog.Int("dropped", result.RawCount-result.CleanCount),
		slog.Any("dropped_by_reason", result.Dropped),
	)

	slog.Info("load stage started",
		slog.Int("records", len(clean)),
		slog.Int("destinations", len(p.loader.sinks)),
	)
	result.Report = p.loader.Load(ctx, clean)

	result.EndTime = time.Now()
	p.metrics.observeRun(result.Duration(), result.Report.AllSucceeded(), result.EndTime)
	return result, nil
}
