// Package batch drives the per-row address resolution pipeline:
// classify, geocode with fallback, track quota, collect one outcome per
// input row.
package batch

import (
	"github.com/hangil-labs/geoconv/internal/addr"
	"github.com/hangil-labs/geoconv/internal/table"
	"github.com/hangil-labs/geoconv/pkg/vworld"
)

// Status is the resolution state of a record. Transitions are monotonic:
// PENDING moves to exactly one terminal state and never back.
type Status string

const (
	StatusPending Status = "PENDING"
	// StatusResolved means a coordinate was obtained.
	StatusResolved Status = "RESOLVED"
	// StatusFailed means the provider was asked and could not resolve it.
	StatusFailed Status = "FAILED"
	// StatusSkipped means the row never went to the network: empty
	// address or beyond the requested row limit.
	StatusSkipped Status = "SKIPPED"
	// StatusSkippedQuota means the daily quota ran out (or the session
	// was aborted) before this row could be dispatched.
	StatusSkippedQuota Status = "SKIPPED_QUOTA"
)

// Record is one address row under resolution. Index matches the source
// table row.
type Record struct {
	Index   int
	Address string
	Type    addr.Type
	Status  Status
}

// Outcome is the terminal result for one record. Exactly one Outcome
// exists per input record, whatever happened.
type Outcome struct {
	Record         Record
	Coordinate     *vworld.Coordinate // only set when Status is RESOLVED
	Classification addr.Classification
	Reason         string // failure/skip reason, empty on success
	ProviderStatus string // raw provider code for diagnostics
}

// RecordsFromColumn builds one pending record per table row from the
// given address column.
func RecordsFromColumn(t *table.Table, col int) []Record {
	records := make([]Record, len(t.Rows))
	for i := range t.Rows {
		records[i] = Record{
			Index:   i,
			Address: t.Cell(i, col),
			Type:    addr.TypeUnknown,
			Status:  StatusPending,
		}
	}
	return records
}

// Summary tallies outcomes by terminal status.
type Summary struct {
	Total        int
	Resolved     int
	Failed       int
	Skipped      int
	SkippedQuota int
}

// Summarize counts outcomes per status.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Record.Status {
		case StatusResolved:
			s.Resolved++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusSkippedQuota:
			s.SkippedQuota++
		}
	}
	return s
}

// SuccessRate returns the resolved fraction in [0,1], 0 for empty input.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Total)
}
