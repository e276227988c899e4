package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleaner(t *testing.T, opts CleanOptions) *Cleaner {
	t.Helper()
	c, err := NewCleaner(opts)
	require.NoError(t, err)
	return c
}

func TestCleaner_Clean(t *testing.T) {
	tests := []struct {
		name string
		opts CleanOptions
		raw  string
		want string
	}{
		{
			name: "single line insert",
			raw:  "INSERT INTO #RUNLOG VALUES ('1.2', 'x');\nSELECT 2;\n",
			want: "SELECT 2;",
		},
		{
			name: "insert is case insensitive and spans lines",
			raw:  "insert into #runlog\n    values ('1.1', 'start');\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "insert without semicolon",
			raw:  "SELECT 1;\nINSERT INTO #RUNLOG VALUES ('1.1', 'end')\n",
			want: "SELECT 1;",
		},
		{
			name: "quoted id grammar handles column lists",
			opts: CleanOptions{Grammar: GrammarQuotedID},
			raw:  "INSERT INTO #RUNLOG (section, msg)\nVALUES ('1.1', 'x');\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "custom log table",
			opts: CleanOptions{LogTable: "dbo.AuditLog"},
			raw:  "INSERT INTO dbo.AuditLog VALUES ('1.1');\nINSERT INTO dboXAuditLog VALUES (1);",
			want: "INSERT INTO dboXAuditLog VALUES (1);",
		},
		{
			name: "print statement removed",
			raw:  "PRINT '1.2.3';\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "commented print removed before prefix strip",
			raw:  "SELECT 1;\n--PRINT '1.1';",
			want: "SELECT 1;",
		},
		{
			name: "non numeric print kept",
			raw:  "PRINT 'done';",
			want: "PRINT 'done';",
		},
		{
			name: "comment leads stripped at line start only",
			raw:  "  -- SELECT a\n----b\nSELECT a - b -- note",
			want: "SELECT a\nb\nSELECT a - b -- note",
		},
		{
			name: "repeated comment runs collapse",
			raw:  "-- -- SELECT 1",
			want: "SELECT 1",
		},
		{
			name: "single dash kept",
			raw:  "-1 AS delta",
			want: "-1 AS delta",
		},
		{
			name: "only noise cleans to empty",
			raw:  "\nINSERT INTO #RUNLOG VALUES ('1.1', 'x');\nPRINT '1.1';\n\n",
			want: "",
		},
		{
			name: "insert with nested call",
			raw:  "INSERT INTO #RUNLOG VALUES ('1.1', GETDATE());\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "multi line insert with nested call",
			raw:  "INSERT INTO #RUNLOG\nVALUES ('1.1', CONVERT(varchar, GETDATE(), 120));\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "insert falls back to first paren mid line",
			raw:  "INSERT INTO #RUNLOG VALUES ('1.1') SELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "commented insert split across lines",
			raw:  "INSERT\n--INTO #RUNLOG VALUES ('1.1');\nSELECT 1;",
			want: "SELECT 1;",
		},
		{
			name: "inner blank lines kept",
			raw:  "\n\nSELECT 1\n\nFROM t\n\n",
			want: "SELECT 1\n\nFROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCleaner(t, tt.opts)
			assert.Equal(t, tt.want, c.Clean(tt.raw))
		})
	}
}

func TestCleaner_Idempotent(t *testing.T) {
	inputs := []string{
		"--1.1 header leftover\nSELECT 1;\n--PRINT '1.1';",
		"INSERT INTO #RUNLOG VALUES ('1.2', 'x');\n-- -- SELECT 2;\n",
		"  ---  SELECT *\n  FROM t\n  WHERE a = '1.1'",
		"PRINT '1';PRINT '2';\nSELECT 3;",
		"INSERT\n--INTO #RUNLOG VALUES ('1.1');\nSELECT 1;",
		"INSERT INTO #RUNLOG VALUES ('1.1', GETDATE());\nSELECT 1;",
		"",
	}

	for _, grammar := range []Grammar{GrammarParen, GrammarQuotedID} {
		c := newTestCleaner(t, CleanOptions{Grammar: grammar})
		for _, in := range inputs {
			once := c.Clean(in)
			assert.Equal(t, once, c.Clean(once), "grammar %s, input %q", grammar, in)
		}
	}
}

func TestNewCleaner_Errors(t *testing.T) {
	_, err := NewCleaner(CleanOptions{Grammar: "braces"})
	assert.Error(t, err)

	_, err = NewCleaner(CleanOptions{CommentLead: "//"})
	assert.Error(t, err)
}

func TestParseGrammar(t *testing.T) {
	g, err := ParseGrammar("")
	require.NoError(t, err)
	assert.Equal(t, GrammarParen, g)

	g, err = ParseGrammar("QUOTED-ID")
	require.NoError(t, err)
	assert.Equal(t, GrammarQuotedID, g)

	_, err = ParseGrammar("regex")
	assert.Error(t, err)
}
