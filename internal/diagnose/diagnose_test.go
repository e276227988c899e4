package diagnose

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	patterns := DefaultPatterns("-", "סעיף")
	text := "--1.1. סעיף ראשון\nSELECT 1; --2.1\n\ufeff--1.2\nPRINT '1.2';\n"

	reports := Analyze(text, 0, patterns)
	require.Len(t, reports, 4)

	first := reports[0]
	assert.Equal(t, 1, first.Number)
	names := make([]string, 0, len(first.Matches))
	for _, m := range first.Matches {
		names = append(names, m.Pattern)
	}
	assert.Equal(t, []string{
		"starts with --[number]",
		"contains --[number]",
		`contains "סעיף"`,
	}, names)
	assert.Equal(t, "--1.1.", first.Matches[0].Text)

	second := reports[1]
	require.Len(t, second.Matches, 1)
	assert.Equal(t, "contains --[number]", second.Matches[0].Pattern)

	// The BOM hides the marker from the starts-with check.
	third := reports[2]
	require.Len(t, third.Matches, 1)
	assert.Equal(t, "contains --[number]", third.Matches[0].Pattern)
	assert.True(t, strings.HasPrefix(third.Hex, "feff 2d 2d"), third.Hex)

	fourth := reports[3]
	require.Len(t, fourth.Matches, 1)
	assert.Equal(t, "contains PRINT '[number]'", fourth.Matches[0].Pattern)
}

func TestAnalyze_Limit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "SELECT %d;\n", i)
	}

	assert.Len(t, Analyze(b.String(), 0, nil), DefaultLines)
	assert.Len(t, Analyze(b.String(), 10, nil), 10)
	assert.Len(t, Analyze("a\nb", 10, nil), 2)
	assert.Len(t, Analyze("a\nb\n", 10, nil), 2)

	blank := Analyze("a\nb\n\nd\n", 3, nil)
	require.Len(t, blank, 3, "a blank line at the limit is still reported")
	assert.Equal(t, "", blank[2].Text)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "2d 2d 31", Hex("--1"))
	assert.Equal(t, "5e1", Hex("ס"))
	assert.Equal(t, "", Hex(""))
}

func TestSummary(t *testing.T) {
	patterns := DefaultPatterns("-", "")
	reports := Analyze("--1.1\n--1.2\nPRINT '1.2'", 0, patterns)

	got := Summary(reports, patterns)
	assert.Equal(t, map[string]int{
		"starts with --[number]":    2,
		"contains --[number]":       2,
		"contains PRINT '[number]'": 1,
	}, got)
}
