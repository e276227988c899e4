// Package config provides configuration management for the sqlsplice CLI.
//
// Values come from built-in defaults, then sqlsplice.yaml, then
// SQLSPLICE_* environment variables, then command-line flags.
package config

import (
	"github.com/leapstack-labs/sqlsplice/internal/charset"
	"github.com/leapstack-labs/sqlsplice/internal/workbook"
	"github.com/leapstack-labs/sqlsplice/pkg/section"
)

// Config holds all CLI configuration options.
type Config struct {
	// Workbook columns and sheets.
	KeyColumn     string `koanf:"key_column" yaml:"key_column"`
	ContentColumn string `koanf:"content_column" yaml:"content_column"`
	Sheet         string `koanf:"sheet" yaml:"sheet"`
	OutputSheet   string `koanf:"output_sheet" yaml:"output_sheet"`
	DebugSheet    string `koanf:"debug_sheet" yaml:"debug_sheet"`
	Debug         bool   `koanf:"debug" yaml:"debug"`

	// Script decoding and extraction.
	Encodings     []string `koanf:"encodings" yaml:"encodings"`
	Dialect       string   `koanf:"dialect" yaml:"dialect"`
	CommentLead   string   `koanf:"comment_lead" yaml:"comment_lead"`
	LogTable      string   `koanf:"log_table" yaml:"log_table"`
	InsertGrammar string   `koanf:"insert_grammar" yaml:"insert_grammar"`

	// Output location.
	OutputDir    string `koanf:"output_dir" yaml:"output_dir"`
	OutputPrefix string `koanf:"output_prefix" yaml:"output_prefix"`

	// Run history.
	History   bool   `koanf:"history" yaml:"history"`
	StatePath string `koanf:"state_path" yaml:"state_path"`

	Verbose      bool   `koanf:"verbose" yaml:"verbose"`
	OutputFormat string `koanf:"output" yaml:"output"`

	// ProjectRoot is the directory holding the config file, or the
	// working directory when there is none.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values.
const (
	DefaultKeyColumn     = "סעיף"
	DefaultContentColumn = "סקריפט"
	DefaultOutputSheet   = workbook.DefaultSheet
	DefaultDebugSheet    = workbook.DefaultDebugSheet
	DefaultDialect       = string(section.DialectAuto)
	DefaultCommentLead   = section.DefaultCommentLead
	DefaultLogTable      = section.DefaultLogTable
	DefaultInsertGrammar = string(section.GrammarParen)
	DefaultOutputDir     = "."
	DefaultOutputPrefix  = "unified_testing_file_with_queries"
	DefaultStateFile     = ".sqlsplice/history.db"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		KeyColumn:     DefaultKeyColumn,
		ContentColumn: DefaultContentColumn,
		OutputSheet:   DefaultOutputSheet,
		DebugSheet:    DefaultDebugSheet,
		Encodings:     append([]string(nil), charset.DefaultCandidates...),
		Dialect:       DefaultDialect,
		CommentLead:   DefaultCommentLead,
		LogTable:      DefaultLogTable,
		InsertGrammar: DefaultInsertGrammar,
		OutputDir:     DefaultOutputDir,
		OutputPrefix:  DefaultOutputPrefix,
		StatePath:     DefaultStateFile,
		OutputFormat:  DefaultOutput,
	}
}

// defaultsMap is Default in koanf's flat key form.
func defaultsMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"key_column":     d.KeyColumn,
		"content_column": d.ContentColumn,
		"sheet":          d.Sheet,
		"output_sheet":   d.OutputSheet,
		"debug_sheet":    d.DebugSheet,
		"debug":          d.Debug,
		"encodings":      d.Encodings,
		"dialect":        d.Dialect,
		"comment_lead":   d.CommentLead,
		"log_table":      d.LogTable,
		"insert_grammar": d.InsertGrammar,
		"output_dir":     d.OutputDir,
		"output_prefix":  d.OutputPrefix,
		"history":        d.History,
		"state_path":     d.StatePath,
		"verbose":        d.Verbose,
		"output":         d.OutputFormat,
	}
}
