// Package gsheet writes the clean dataset to a Google Sheets range.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-fashion-etl/models"
)

// ValuesService is the slice of the Sheets values API the sink needs.
type ValuesService interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

// Authenticator opens an authenticated session against the Sheets API.
type Authenticator func(ctx context.Context) (ValuesService, error)

// Config selects the target range.
type Config struct {
	SpreadsheetID string
	Range         string
	// ClearRange wipes the target sheet before writing so shorter runs leave no stale rows.
	ClearRange bool
}

// Sink overwrites a sheet range with a header row plus every record.
type Sink struct {
	cfg  Config
	auth Authenticator
}

// NewSink validates cfg and returns a Sink using auth for every Persist call.
func NewSink(cfg Config, auth Authenticator) (*Sink, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("gsheet: spreadsheet id is required")
	}
	if strings.TrimSpace(cfg.Range) == "" {
		cfg.Range = "Sheet1!A1"
	}
	if auth == nil {
		return nil, errors.New("gsheet: authenticator is required")
	}
	return &Sink{cfg: cfg, auth: auth}, nil
}

// Name implements pipeline.Sink.
func (s *Sink) Name() string { return "sheets" }

// Persist authenticates, optionally clears the sheet and writes all rows in one update call.
func (s *Sink) Persist(ctx context.Context, records []models.CleanRecord) error {
	svc, err := s.auth(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	if s.cfg.ClearRange {
		if err := svc.Clear(ctx, s.cfg.SpreadsheetID, clearTarget(s.cfg.Range)); err != nil {
			return fmt.Errorf("clear %s: %w", s.cfg.Range, err)
		}
	}

	if err := svc.Update(ctx, s.cfg.SpreadsheetID, s.cfg.Range, Rows(records)); err != nil {
		return fmt.Errorf("update %s: %w", s.cfg.Range, err)
	}
	return nil
}

// Rows renders the header followed by one row per record. Numeric columns stay numeric.
func Rows(records []models.CleanRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(models.Columns))
	for i, col := range models.Columns {
		header[i] = col
	}
	rows = append(rows, header)

	for _, rec := range records {
		rows = append(rows, []interface{}{
			rec.Title,
			rec.Price,
			rec.Rating,
			rec.Colors,
			string(rec.Size),
			string(rec.Gender),
			rec.FormattedTimestamp(),
		})
	}
	return rows
}

// clearTarget widens an anchor range such as "Sheet1!A1" to the whole sheet.
func clearTarget(rng string) string {
	if sheet, _, ok := strings.Cut(rng, "!"); ok && sheet != "" {
		return sheet
	}
	return rng
}
