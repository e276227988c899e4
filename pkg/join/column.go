// Package join fills a table column with section text matched by key.
package join

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column resolution errors.
var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrAmbiguousColumn = errors.New("column is ambiguous")
)

// ColumnError describes a failed column resolution.
type ColumnError struct {
	Want      string
	Matches   []string
	Available []string
	Err       error
}

func (e *ColumnError) Error() string {
	if errors.Is(e.Err, ErrAmbiguousColumn) {
		return fmt.Sprintf("%v: %q matches %s; available columns: %s",
			e.Err, e.Want, quoteAll(e.Matches), quoteAll(e.Available))
	}
	return fmt.Sprintf("%v: %q; available columns: %s", e.Err, e.Want, quoteAll(e.Available))
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

// ResolveColumn finds the index of the column labeled want.
//
// Resolution runs in two phases. First, headers equal to want after
// whitespace trimming and Unicode NFC normalization; then, headers that
// contain want. A phase that matches exactly one column wins. Zero
// matches in both phases, or more than one in the deciding phase, is an
// error.
func ResolveColumn(header []string, want string) (int, error) {
	target := canonical(want)
	if target == "" {
		return -1, &ColumnError{Want: want, Available: header, Err: ErrColumnNotFound}
	}

	phases := []func(string) bool{
		func(h string) bool { return h == target },
		func(h string) bool { return strings.Contains(h, target) },
	}

	for _, match := range phases {
		var hits []int
		for i, h := range header {
			if match(canonical(h)) {
				hits = append(hits, i)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], nil
		default:
			names := make([]string, len(hits))
			for i, idx := range hits {
				names[i] = header[idx]
			}
			return -1, &ColumnError{Want: want, Matches: names, Available: header, Err: ErrAmbiguousColumn}
		}
	}

	return -1, &ColumnError{Want: want, Available: header, Err: ErrColumnNotFound}
}

func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(q, ", ") + "]"
}
