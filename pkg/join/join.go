package join

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlsplice/pkg/section"
)

// Table is a column-oriented view of a spreadsheet: a header row and
// data rows of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds a Table, trimming header labels and padding every row
// to the header width.
func NewTable(header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	for i, label := range header {
		h[i] = strings.TrimSpace(label)
	}
	t := &Table{Header: h, Rows: rows}
	for i := range t.Rows {
		t.Rows[i] = pad(t.Rows[i], len(h))
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Options configures Apply.
type Options struct {
	// KeyColumn and ContentColumn are the expected labels, resolved
	// with ResolveColumn.
	KeyColumn     string
	ContentColumn string

	// NormalizeKey maps a key cell to a section ID.
	// Defaults to section.NormalizeID.
	NormalizeKey func(string) string
}

// Report summarizes a join.
type Report struct {
	// KeyColumn and ContentColumn are the header labels actually used.
	KeyColumn     string
	ContentColumn string

	Rows    int
	Matched int

	// Missing lists row keys without a section, deduplicated, in row
	// order. Blank keys are counted as unmatched but not listed.
	Missing []string
}

// Unmatched returns the number of rows whose content cell was left empty.
func (r *Report) Unmatched() int {
	return r.Rows - r.Matched
}

// Apply sets each row's content cell to the section matching its key and
// clears it when there is none. Rows are never added, removed or
// reordered.
func Apply(t *Table, sections map[string]string, opts Options) (*Report, error) {
	keyIdx, err := ResolveColumn(t.Header, opts.KeyColumn)
	if err != nil {
		return nil, fmt.Errorf("key column: %w", err)
	}
	contentIdx, err := ResolveColumn(t.Header, opts.ContentColumn)
	if err != nil {
		return nil, fmt.Errorf("content column: %w", err)
	}
	if keyIdx == contentIdx {
		return nil, fmt.Errorf("key column %q and content column %q both resolve to %q",
			opts.KeyColumn, opts.ContentColumn, t.Header[keyIdx])
	}

	normalize := opts.NormalizeKey
	if normalize == nil {
		normalize = section.NormalizeID
	}

	report := &Report{
		KeyColumn:     t.Header[keyIdx],
		ContentColumn: t.Header[contentIdx],
		Rows:          len(t.Rows),
	}
	listed := make(map[string]bool)

	for i, row := range t.Rows {
		row = pad(row, len(t.Header))
		t.Rows[i] = row

		key := normalize(row[keyIdx])
		if body, ok := sections[key]; ok {
			row[contentIdx] = body
			report.Matched++
			continue
		}

		row[contentIdx] = ""
		if key != "" && !listed[key] {
			listed[key] = true
			report.Missing = append(report.Missing, key)
		}
	}

	return report, nil
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
