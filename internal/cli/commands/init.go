package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/sqlsplice/internal/cli/config"
	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by init when a config file is already present.
var ErrConfigExists = errors.New("config file already exists, use --force to overwrite")

const configHeader = `# sqlsplice configuration.
# Every key can be overridden with a SQLSPLICE_<KEY> environment variable
# or the matching command-line flag.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a sqlsplice.yaml with the default settings",
		Long: `Write a sqlsplice.yaml holding every setting at its default value, and
a .gitignore that keeps generated workbooks and run history out of
version control.

Edit the file to match your workbooks, for example when the key or
script column has a different label.`,
		Example: `  # Configure the current directory
  sqlsplice init

  # Configure another directory
  sqlsplice init qa/regression

  # Reset an existing configuration
  sqlsplice init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := NewCommandContextWithoutEngine(cmd).Renderer
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s: %w", configPath, ErrConfigExists)
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(config.ConfigFileNames[0], "success", "")

	written, err := copyTemplate("default", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	all, _ := listTemplateFiles("default")
	for _, f := range all {
		if slices.Contains(written, f) {
			r.StatusLine(f, "success", "")
		} else {
			r.StatusLine(f, "warning", "exists, kept")
		}
	}

	r.Println("")
	r.Success("sqlsplice configured")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set key_column and content_column to your workbook's labels")
	r.Println("  2. Run 'sqlsplice probe <script>' to check section markers")
	r.Println("  3. Run 'sqlsplice map <script> <workbook>'")

	return nil
}

// defaultConfigYAML renders the default configuration as a config file.
func defaultConfigYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.Default()); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}
