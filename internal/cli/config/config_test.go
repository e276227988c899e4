package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sqlsplice/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_Defaults loads with no file, env or flags.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "סעיף", cfg.KeyColumn)
	assert.Equal(t, "סקריפט", cfg.ContentColumn)
	assert.Equal(t, []string{"windows-1255", "utf-8-sig", "utf-8"}, cfg.Encodings)
	assert.Equal(t, "auto", cfg.Dialect)
	assert.Equal(t, "paren", cfg.InsertGrammar)
	assert.Equal(t, "#RUNLOG", cfg.LogTable)
	assert.Equal(t, "Mapped_Queries", cfg.OutputSheet)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.History)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	// Relative defaults are anchored at the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, ".sqlsplice", "history.db"), cfg.StatePath)
	assert.Equal(t, wd, cfg.OutputDir)
}

// TestLoadConfig_FileFoundUpward finds sqlsplice.yaml in a parent directory
// and resolves its paths against that directory.
func TestLoadConfig_FileFoundUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	cfgContent := `key_column: Section
content_column: Query
output_dir: out
debug: true
encodings: [utf-8]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "sqlsplice.yaml"), []byte(cfgContent), 0o600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "Section", cfg.KeyColumn)
	assert.Equal(t, "Query", cfg.ContentColumn)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"utf-8"}, cfg.Encodings)
	assert.Equal(t, "sqlsplice.yaml", filepath.Base(GetConfigFileUsed()))

	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "out"), cfg.OutputDir)
}

// TestLoadConfig_Precedence checks flags > env > file > defaults.
func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		flag    string
		wantKey string
	}{
		{name: "file only", wantKey: "from_file"},
		{name: "env over file", env: "from_env", wantKey: "from_env"},
		{name: "flag over env", env: "from_env", flag: "from_flag", wantKey: "from_flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)
			cfgPath := filepath.Join(tmpDir, "custom.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte("key_column: from_file\n"), 0o600))

			if tt.env != "" {
				t.Setenv("SQLSPLICE_KEY_COLUMN", tt.env)
			}

			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.String("key-column", "", "key column")
			if tt.flag != "" {
				require.NoError(t, flags.Set("key-column", tt.flag))
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.KeyColumn)
		})
	}
}

// TestLoadConfig_FlagKeyMapping checks flags whose names differ from keys.
func TestLoadConfig_FlagKeyMapping(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("encoding", nil, "encodings")
	flags.String("state", "", "state path")
	flags.Bool("history", false, "history")
	require.NoError(t, flags.Set("encoding", "utf-8"))
	require.NoError(t, flags.Set("encoding", "windows-1255"))
	require.NoError(t, flags.Set("state", "/tmp/h.db"))
	require.NoError(t, flags.Set("history", "true"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"utf-8", "windows-1255"}, cfg.Encodings)
	assert.Equal(t, "/tmp/h.db", cfg.StatePath)
	assert.True(t, cfg.History)
}

func TestLoadConfig_EnvEncodingList(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("SQLSPLICE_ENCODINGS", "utf-8, utf-16")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"utf-8", "utf-16"}, cfg.Encodings)
}

func TestLoadConfig_Errors(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("key_column: [unclosed\n"), 0o600))
	_, err = LoadConfig(bad, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("dialect: klingon\n"), 0o600))
	_, err = LoadConfig(invalid, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "klingon")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "blank key column", mutate: func(c *Config) { c.KeyColumn = " " }, errSubstr: "key_column"},
		{name: "no encodings", mutate: func(c *Config) { c.Encodings = nil }, errSubstr: "encodings"},
		{name: "unknown encoding", mutate: func(c *Config) { c.Encodings = []string{"ebcdic"} }, errSubstr: "ebcdic"},
		{name: "unknown dialect", mutate: func(c *Config) { c.Dialect = "xml" }, errSubstr: "xml"},
		{name: "unknown grammar", mutate: func(c *Config) { c.InsertGrammar = "brace" }, errSubstr: "brace"},
		{name: "long comment lead", mutate: func(c *Config) { c.CommentLead = "--" }, errSubstr: "comment_lead"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "html" }, errSubstr: "html"},
		{
			name: "debug sheet clashes",
			mutate: func(c *Config) {
				c.Debug = true
				c.DebugSheet = c.OutputSheet
			},
			errSubstr: "must differ",
		},
		{
			name: "history without state path",
			mutate: func(c *Config) {
				c.History = true
				c.StatePath = ""
			},
			errSubstr: "state_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, loggerKey{}, LoggerKey())
}
