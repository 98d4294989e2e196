package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-fashion-etl/models"
)

const fileBatchSize = 64

// FileSink persists the dataset to a local CSV, JSON lines or dual file.
// Each Persist call replaces the previous file contents.
type FileSink struct {
	path   string
	format string
}

// NewFileSink returns a sink writing path in the given format.
func NewFileSink(path, format string) (*FileSink, error) {
	format = strings.ToLower(format)
	switch format {
	case "csv", "json", "dual":
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	return &FileSink{path: path, format: format}, nil
}

// Name implements Sink. It names the file formats written, e.g. "json" or "csv+json".
func (s *FileSink) Name() string {
	if s.format == "dual" {
		return "csv+json"
	}
	return s.format
}

// Path returns the primary output file.
func (s *FileSink) Path() string { return s.path }

// Persist implements Sink.
func (s *FileSink) Persist(ctx context.Context, records []models.CleanRecord) (err error) {
	writer, err := CreateWriter(s.format, s.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", s.path, cerr)
		}
	}()

	for start := 0; start < len(records); start += fileBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+fileBatchSize, len(records))
		if err := writer.Write(records[start:end]); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	return writer.Validate()
}

// CreateWriter opens the writer for format. The dual format writes a .json
// sibling next to the CSV file.
func CreateWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
