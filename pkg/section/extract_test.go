package section

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlsplice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T, d Dialect) *Extractor {
	t.Helper()
	e, err := New(Options{Dialect: d, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return e
}

func TestExtractor_Extract_Scenario(t *testing.T) {
	doc := "--1.1.\n" +
		"SELECT 1;\n" +
		"--PRINT '1.1';\n" +
		"--1.2.\n" +
		"INSERT INTO #RUNLOG VALUES ('1.2', 'x');\n" +
		"SELECT 2;\n"

	res, err := newTestExtractor(t, DialectAuto).Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, DialectComment, res.Dialect)
	assert.Equal(t, map[string]string{
		"1.1": "SELECT 1;",
		"1.2": "SELECT 2;",
	}, res.Sections)
	assert.Equal(t, "SELECT 1;\n--PRINT '1.1';", res.Raw["1.1"])
	assert.Equal(t, []string{"1.1", "1.2"}, res.IDs)
	assert.Equal(t, 2, res.Markers)
	assert.Empty(t, res.Duplicates)
}

func TestExtractor_Extract_LastWriteWins(t *testing.T) {
	res, err := newTestExtractor(t, DialectAuto).Extract("--1.1\nA\n--1.2\nC\n--1.1\nB")
	require.NoError(t, err)

	assert.Equal(t, "B", res.Sections["1.1"])
	assert.Equal(t, "B", res.Raw["1.1"])
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, 3, res.Markers)
	assert.Equal(t, []string{"1.1", "1.2"}, res.IDs)
	assert.Equal(t, []string{"1.1"}, res.Duplicates)
}

func TestExtractor_Extract_EmptyButPresent(t *testing.T) {
	doc := "--1.1.\nINSERT INTO #RUNLOG VALUES ('1.1', 'start');\nPRINT '1.1';\n--1.2.\nSELECT 2;"

	res, err := newTestExtractor(t, DialectAuto).Extract(doc)
	require.NoError(t, err)

	got, ok := res.Sections["1.1"]
	assert.True(t, ok, "section 1.1 must be present")
	assert.Equal(t, "", got)
	assert.Equal(t, "SELECT 2;", res.Sections["1.2"])
}

func TestExtractor_Extract_InlineFallback(t *testing.T) {
	doc := "SET NOCOUNT ON;\n" +
		"PRINT '1.1';\n" +
		"-- totals\n" +
		"SELECT 1;\n" +
		"PRINT '1.2';\n" +
		"INSERT INTO #RUNLOG VALUES ('1.2', 'x');\n" +
		"SELECT 2;\n"

	res, err := newTestExtractor(t, DialectAuto).Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, DialectInline, res.Dialect)
	assert.Equal(t, map[string]string{
		"1.1": "totals\nSELECT 1;",
		"1.2": "SELECT 2;",
	}, res.Sections)
}

func TestExtractor_Extract_NoMixing(t *testing.T) {
	doc := "--1.1.\nSELECT 1;\nPRINT '9.9';\nSELECT 9;"

	res, err := newTestExtractor(t, DialectAuto).Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, DialectComment, res.Dialect)
	assert.Equal(t, map[string]string{"1.1": "SELECT 1;\nSELECT 9;"}, res.Sections)
}

func TestExtractor_Extract_ForcedDialect(t *testing.T) {
	doc := "--1.1.\nSELECT 1;"

	_, err := newTestExtractor(t, DialectInline).Extract(doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSections))
	assert.Contains(t, err.Error(), "inline")

	res, err := newTestExtractor(t, DialectComment).Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", res.Sections["1.1"])
}

func TestExtractor_Extract_Unrecognized(t *testing.T) {
	_, err := newTestExtractor(t, DialectAuto).Extract("SELECT 1;\n-- 2 rows\nPRINT 'done';")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSections)
	assert.Contains(t, err.Error(), "comment, inline")
}

func TestExtractor_Extract_Coverage(t *testing.T) {
	const n = 12
	var doc strings.Builder
	doc.WriteString("preamble line\n")
	var body []string
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&doc, "--%d.%d.\n", i/5+1, i)
		for j := 0; j < 3; j++ {
			line := fmt.Sprintf("SELECT %d AS c%d;", i, j)
			body = append(body, line)
			doc.WriteString(line + "\n")
		}
	}

	res, err := newTestExtractor(t, DialectAuto).Extract(doc.String())
	require.NoError(t, err)
	require.Equal(t, n, res.Len())

	for _, line := range body {
		hits := 0
		for _, raw := range res.Raw {
			hits += strings.Count(raw, line)
		}
		assert.Equal(t, 1, hits, "line %q", line)
	}
	for _, raw := range res.Raw {
		assert.NotContains(t, raw, "preamble")
	}
}

func TestExtractor_Probe(t *testing.T) {
	e := newTestExtractor(t, DialectAuto)
	got := e.Probe("--1.1\nPRINT '1.1';\n--1.2\nPRINT '1.2';\nPRINT '1.3';")

	assert.Equal(t, []Candidate{
		{Dialect: DialectComment, Markers: 2},
		{Dialect: DialectInline, Markers: 3},
	}, got)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Dialect: "yaml"})
	assert.Error(t, err)

	_, err = New(Options{Grammar: "nope"})
	assert.Error(t, err)
}
