// Package transform validates raw catalog records and normalizes them into clean records.
package transform

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-fashion-etl/models"
	"github.com/aluiziolira/go-fashion-etl/parser"
)

// Reasons a raw record is excluded from the clean dataset.
var (
	ErrInvalidTitle  = errors.New("invalid title")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidRating = errors.New("invalid rating")
	ErrInvalidColors = errors.New("invalid colors")
	ErrInvalidSize   = errors.New("invalid size")
	ErrInvalidGender = errors.New("invalid gender")
)

// Options pins the conversion policy.
type Options struct {
	// ExchangeRate converts source currency amounts into local currency.
	ExchangeRate float64
	// PriceDecimals is the minor-unit precision converted prices are rounded to.
	PriceDecimals int
	// PriceCacheSize bounds the memo of converted price texts; 0 disables it.
	PriceCacheSize int
	// Now stamps transformed records. Defaults to time.Now.
	Now func() time.Time
}

// Transformer turns RawRecords into CleanRecords.
type Transformer struct {
	opts    Options
	cache   *lru.Cache[string, float64]
	metrics *Metrics

	mu      sync.Mutex
	dropped map[string]int
}

// New builds a Transformer. metrics may be nil.
func New(opts Options, metrics *Metrics) (*Transformer, error) {
	if opts.ExchangeRate <= 0 || math.IsNaN(opts.ExchangeRate) || math.IsInf(opts.ExchangeRate, 0) {
		return nil, fmt.Errorf("exchange rate must be positive, got %v", opts.ExchangeRate)
	}
	if opts.PriceDecimals < 0 {
		return nil, fmt.Errorf("price decimals cannot be negative")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t := &Transformer{
		opts:    opts,
		metrics: metrics,
		dropped: make(map[string]int),
	}
	if opts.PriceCacheSize > 0 {
		cache, err := lru.New[string, float64](opts.PriceCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create price cache: %w", err)
		}
		t.cache = cache
	}
	return t, nil
}

// Transform returns the records that pass validation, converted, in input order.
// All records of one call share the same transformation timestamp.
func (t *Transformer) Transform(raw []models.RawRecord) []models.CleanRecord {
	at := t.opts.Now()
	out := make([]models.CleanRecord, 0, len(raw))
	for i, rec := range raw {
		clean, err := t.TransformRecord(rec, at)
		if err != nil {
			t.recordDrop(err)
			slog.Debug("row excluded",
				slog.Int("row", i),
				slog.Int("page", rec.SourcePage),
				slog.String("reason", err.Error()),
			)
			continue
		}
		out = append(out, clean)
	}
	t.metrics.observeBatch(len(raw), len(out))
	return out
}

// TransformRecord validates and converts one record. The returned error wraps
// one of the Err* reasons when the record fails a predicate.
func (t *Transformer) TransformRecord(rec models.RawRecord, at time.Time) (models.CleanRecord, error) {
	if !rec.Title.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidTitle, rec.Title.Text)
	}
	if !rec.Price.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidPrice, rec.Price.Text)
	}
	price, err := t.convertPrice(rec.Price.Text)
	if err != nil {
		return models.CleanRecord{}, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}

	if !rec.Rating.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidRating, rec.Rating.Text)
	}
	rating, err := parser.ParseRating(rec.Rating.Text)
	if err != nil {
		return models.CleanRecord{}, fmt.Errorf("%w: %v", ErrInvalidRating, err)
	}

	if !rec.Colors.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidColors, rec.Colors.Text)
	}
	colors, err := parser.ParseColors(rec.Colors.Text)
	if err != nil {
		return models.CleanRecord{}, fmt.Errorf("%w: %v", ErrInvalidColors, err)
	}

	if !rec.Size.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidSize, rec.Size.Text)
	}
	size, err := models.ParseSize(rec.Size.Text)
	if err != nil {
		return models.CleanRecord{}, fmt.Errorf("%w: %v", ErrInvalidSize, err)
	}

	if !rec.Gender.Usable() {
		return models.CleanRecord{}, fmt.Errorf("%w: %q", ErrInvalidGender, rec.Gender.Text)
	}
	gender, err := models.ParseGender(rec.Gender.Text)
	if err != nil {
		return models.CleanRecord{}, fmt.Errorf("%w: %v", ErrInvalidGender, err)
	}

	return models.CleanRecord{
		Title:     rec.Title.Text,
		Price:     price,
		Rating:    rating,
		Colors:    colors,
		Size:      size,
		Gender:    gender,
		Timestamp: at,
	}, nil
}

// ConvertPrice parses a currency string and converts it to local currency.
func (t *Transformer) ConvertPrice(text string) (float64, error) {
	return t.convertPrice(text)
}

func (t *Transformer) convertPrice(text string) (float64, error) {
	if t.cache != nil {
		if v, ok := t.cache.Get(text); ok {
			return v, nil
		}
	}
	amount, err := parser.ParsePrice(text)
	if err != nil {
		return 0, err
	}
	converted := roundTo(amount*t.opts.ExchangeRate, t.opts.PriceDecimals)
	if math.IsInf(converted, 0) || math.IsNaN(converted) {
		return 0, fmt.Errorf("price %q overflows after conversion", text)
	}
	if t.cache != nil {
		t.cache.Add(text, converted)
	}
	return converted, nil
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	scaled := v * scale
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / scale
}

// Stats returns how many rows were excluded per reason since the Transformer was built.
func (t *Transformer) Stats() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.dropped))
	for k, v := range t.dropped {
		out[k] = v
	}
	return out
}

func (t *Transformer) recordDrop(err error) {
	reason := dropReason(err)
	t.mu.Lock()
	t.dropped[reason]++
	t.mu.Unlock()
	t.metrics.incDropped(reason)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTitle):
		return "title"
	case errors.Is(err, ErrInvalidPrice):
		return "price"
	case errors.Is(err, ErrInvalidRating):
		return "rating"
	case errors.Is(err, ErrInvalidColors):
		return "colors"
	case errors.Is(err, ErrInvalidSize):
		return "size"
	case errors.Is(err, ErrInvalidGender):
		return "gender"
	default:
		return "other"
	}
}
