package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/sqlsplice/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExtractCommand_JSON(t *testing.T) {
	ws := testutil.SetupTestWorkspace(t)
	t.Chdir(ws.Dir)

	stdout, _, err := runCommand(t, NewExtractCommand(), ws.Script, "-o", "json")
	require.NoError(t, err)

	var eo ExtractOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &eo))
	assert.Equal(t, "comment", eo.Dialect)
	assert.Equal(t, 3, eo.Markers)
	require.Len(t, eo.Sections, 3)
	assert.Equal(t, SectionOutput{ID: "1.1", Body: "SELECT 1;"}, eo.Sections[0])
	assert.Equal(t, SectionOutput{ID: "1.2", Body: "SELECT 2;"}, eo.Sections[1])
	assert.Equal(t, "9.9", eo.Sections[2].ID)
}

func TestExtractCommand_Raw(t *testing.T) {
	ws := testutil.SetupTestWorkspace(t)
	t.Chdir(ws.Dir)

	stdout, _, err := runCommand(t, NewExtractCommand(), ws.Script, "--raw", "-o", "yaml")
	require.NoError(t, err)

	var eo ExtractOutput
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &eo))
	require.Len(t, eo.Sections, 3)
	assert.Contains(t, eo.Sections[1].Body, "INSERT INTO #RUNLOG")
	assert.Contains(t, eo.Sections[0].Body, "PRINT '1.1'")
}

func TestExtractCommand_TextAndMarkdown(t *testing.T) {
	ws := testutil.SetupTestWorkspace(t)
	t.Chdir(ws.Dir)

	t.Run("text", func(t *testing.T) {
		stdout, _, err := runCommand(t, NewExtractCommand(), ws.Script, "-o", "text")
		require.NoError(t, err)
		testutil.AssertNoANSI(t, stdout)
		assert.Contains(t, stdout, "3 sections, comment dialect")
		assert.Contains(t, stdout, "  SELECT 9;")
	})

	t.Run("markdown", func(t *testing.T) {
		stdout, _, err := runCommand(t, NewExtractCommand(), ws.Script, "-o", "markdown")
		require.NoError(t, err)
		testutil.AssertValidMarkdown(t, stdout)
		assert.Contains(t, stdout, "## 1.2\n\n```sql\nSELECT 2;\n```")
	})
}

func TestExtractCommand_DuplicateSections(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, "dup.sql", "--1\nSELECT 'old';\n--1\nSELECT 'new';\n")

	stdout, stderr, err := runCommand(t, NewExtractCommand(), "dup.sql", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SELECT 'new';")
	assert.NotContains(t, stdout, "SELECT 'old';")
	assert.Contains(t, stderr, "repeated sections, last one kept: 1")
}

func TestExtractCommand_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runCommand(t, NewExtractCommand(), "nope.sql")
	assert.Error(t, err)
}
