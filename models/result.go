package models

import (
	"fmt"
	"time"
)

// ExtractResult holds the overall result of an extraction run.
type ExtractResult struct {
	Records        []RawRecord
	StartTime      time.Time
	EndTime        time.Time
	PagesRequested int
	PagesScraped   int
	SkippedPages   []int
	FailedURLs     []string
	ErrorsByType   map[string]int
	ErrorCount     int
	RetryCount     int
	RequestCount   int
}

// LoadOutcome is the result of writing the dataset to one destination.
type LoadOutcome struct {
	Destination string
	Success     bool
	Err         error
	Duration    time.Duration
}

// Error returns the failure description, or "" on success.
func (o LoadOutcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// LoadReport aggregates the outcome of every destination for one run.
type LoadReport struct {
	Total     int
	Succeeded int
	Outcomes  []LoadOutcome
}

// Add records an outcome and updates the counters.
func (r *LoadReport) Add(o LoadOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	if o.Success {
		r.Succeeded++
	}
}

// AllSucceeded reports whether every attempted destination succeeded.
func (r LoadReport) AllSucceeded() bool {
	return r.Succeeded == r.Total
}

// Failed returns the outcomes that did not succeed.
func (r LoadReport) Failed() []LoadOutcome {
	var out []LoadOutcome
	for _, o := range r.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

// Summary renders the human-readable destination tally.
func (r LoadReport) Summary() string {
	return fmt.Sprintf("%d/%d destinations successful", r.Succeeded, r.Total)
}

// RunResult describes one complete extract → transform → load run.
type RunResult struct {
	Extract    *ExtractResult
	RawCount   int
	CleanCount int
	Dropped    map[string]int
	Report     LoadReport
	StartTime  time.Time
	EndTime    time.Time
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
