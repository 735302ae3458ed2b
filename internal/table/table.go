// Package table reads and writes the tabular address files (xlsx or csv)
// that the conversion pipeline operates on.
package table

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is an in-memory tabular file: one header row plus data rows.
// Rows may be ragged; missing trailing cells read as empty strings.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex resolves a header name to its column index. Matching is
// exact first, then case- and whitespace-insensitive.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return 0, eris.Errorf("table: column %q not found (header: %s)", name, strings.Join(t.Header, ", "))
}

// Cell returns the value at (row, col), or "" when the row is shorter
// than col.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

// Format identifies a supported file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat maps a file path to its format by extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", eris.Errorf("table: unsupported file extension %q (want .xlsx or .csv)", filepath.Ext(path))
	}
}

// ReadFile reads a tabular file, choosing the parser by extension.
func ReadFile(path string, opts Options) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return ReadCSV(path)
	}
	return ReadXLSX(path, opts)
}

// WriteFile writes a table, choosing the encoder by extension.
func WriteFile(path string, t *Table, opts Options) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		return WriteCSV(path, t)
	}
	return WriteXLSX(path, t, opts)
}

// Options configures xlsx parsing and writing.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex on read; names the output sheet on write
}
