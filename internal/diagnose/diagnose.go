// Package diagnose inspects the first lines of a script to explain why
// section markers are or are not recognized.
package diagnose

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultLines is how many lines Analyze inspects when no limit is given.
const DefaultLines = 100

// Pattern is a named regular expression tested against each line.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// DefaultPatterns returns the checks used by the probe command.
// lead is the comment-lead character and keyLabel the key column label,
// which scripts sometimes spell out in their headers.
func DefaultPatterns(lead, keyLabel string) []Pattern {
	l := regexp.QuoteMeta(lead)
	patterns := []Pattern{
		{Name: "starts with " + lead + lead + "[number]", Re: regexp.MustCompile(`^\s*` + l + l + `([\d.]+)`)},
		{Name: "contains " + lead + lead + "[number]", Re: regexp.MustCompile(l + l + `([\d.]+)`)},
	}
	if keyLabel != "" {
		patterns = append(patterns, Pattern{
			Name: fmt.Sprintf("contains %q", keyLabel),
			Re:   regexp.MustCompile(regexp.QuoteMeta(keyLabel)),
		})
	}
	return append(patterns, Pattern{
		Name: "contains PRINT '[number]'",
		Re:   regexp.MustCompile(`(?i)PRINT\s+'([\d.]+)'`),
	})
}

// Match records a pattern hit on a line.
type Match struct {
	Pattern string `json:"pattern"`
	Text    string `json:"text"`
}

// LineReport describes one inspected line.
type LineReport struct {
	Number  int     `json:"number"`
	Text    string  `json:"text"`
	Hex     string  `json:"hex"`
	Matches []Match `json:"matches,omitempty"`
}

// Analyze tests the first limit lines of text against patterns.
// A limit of zero or less uses DefaultLines.
func Analyze(text string, limit int, patterns []Pattern) []LineReport {
	if limit <= 0 {
		limit = DefaultLines
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}
	if len(lines) > limit {
		lines = lines[:limit]
	}

	reports := make([]LineReport, 0, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		r := LineReport{Number: i + 1, Text: trimmed, Hex: Hex(trimmed)}
		for _, p := range patterns {
			if m := p.Re.FindString(line); m != "" {
				r.Matches = append(r.Matches, Match{Pattern: p.Name, Text: m})
			}
		}
		reports = append(reports, r)
	}
	return reports
}

// Hex renders each code point of s as lowercase hex, space separated.
// Invisible characters such as a BOM or non-breaking space show up here
// when a marker line looks right but does not match.
func Hex(s string) string {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, fmt.Sprintf("%02x", r))
	}
	return strings.Join(parts, " ")
}

// Summary counts lines with at least one match per pattern.
func Summary(reports []LineReport, patterns []Pattern) map[string]int {
	out := make(map[string]int, len(patterns))
	for _, p := range patterns {
		out[p.Name] = 0
	}
	for _, r := range reports {
		for _, m := range r.Matches {
			out[m.Pattern]++
		}
	}
	return out
}
