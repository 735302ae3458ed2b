// Package merge writes geocoding outcomes back into the source table.
package merge

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hangil-labs/geoconv/internal/batch"
	"github.com/hangil-labs/geoconv/internal/table"
)

// Column names appended to the output table.
const (
	LatitudeColumn  = "latitude"
	LongitudeColumn = "longitude"
)

// Append returns a copy of t with latitude and longitude columns added.
// Resolved rows get decimal-degree values; everything else gets empty
// cells, never a fabricated coordinate. The input table is not modified,
// so merging the same outcomes again yields identical output. Outcome
// count or index mismatches are an error, not a silent continue.
func Append(t *table.Table, outcomes []batch.Outcome) (*table.Table, error) {
	if len(outcomes) != len(t.Rows) {
		return nil, eris.Errorf("merge: %d outcomes for %d rows", len(outcomes), len(t.Rows))
	}

	width := len(t.Header)
	out := t.Clone()
	out.Header = append(out.Header, LatitudeColumn, LongitudeColumn)

	for i, o := range outcomes {
		if o.Record.Index != i {
			return nil, eris.Errorf("merge: outcome %d carries row index %d", i, o.Record.Index)
		}

		// Short rows are padded so the appended cells land in the new
		// columns; existing values are untouched.
		row := out.Rows[i]
		for len(row) < width {
			row = append(row, "")
		}

		lat, lon := "", ""
		if o.Record.Status == batch.StatusResolved && o.Coordinate != nil {
			lat = formatDegree(o.Coordinate.Latitude)
			lon = formatDegree(o.Coordinate.Longitude)
		}
		out.Rows[i] = append(row, lat, lon)
	}

	return out, nil
}

func formatDegree(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
