package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlsplice/internal/charset"
	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/pkg/section"
)

// Validate checks if the configuration is valid. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.KeyColumn) == "" {
		errs = append(errs, fmt.Errorf("key_column is required"))
	}
	if strings.TrimSpace(c.ContentColumn) == "" {
		errs = append(errs, fmt.Errorf("content_column is required"))
	}
	if c.OutputSheet == "" {
		errs = append(errs, fmt.Errorf("output_sheet is required"))
	}
	if c.Debug && c.DebugSheet == "" {
		errs = append(errs, fmt.Errorf("debug_sheet is required when debug is on"))
	}
	if c.Debug && c.DebugSheet == c.OutputSheet {
		errs = append(errs, fmt.Errorf("debug_sheet and output_sheet must differ (both %q)", c.OutputSheet))
	}

	if len(c.Encodings) == 0 {
		errs = append(errs, fmt.Errorf("encodings must list at least one encoding"))
	}
	for _, enc := range c.Encodings {
		if !charset.Supported(enc) {
			errs = append(errs, fmt.Errorf("unsupported encoding %q", enc))
		}
	}

	if _, err := section.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if _, err := section.ParseGrammar(c.InsertGrammar); err != nil {
		errs = append(errs, err)
	}
	if len([]rune(c.CommentLead)) != 1 {
		errs = append(errs, fmt.Errorf("comment_lead must be a single character, got %q", c.CommentLead))
	}
	if strings.TrimSpace(c.LogTable) == "" {
		errs = append(errs, fmt.Errorf("log_table is required"))
	}
	if c.OutputPrefix == "" {
		errs = append(errs, fmt.Errorf("output_prefix is required"))
	}
	if c.History && c.StatePath == "" {
		errs = append(errs, fmt.Errorf("state_path is required when history is on"))
	}
	if !output.Valid(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("unknown output format %q (expected one of %s)",
			c.OutputFormat, strings.Join(output.Modes(), ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
