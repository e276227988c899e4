// Package engine runs the mapping pipeline: decode the script, extract
// its sections, fill the workbook and write the result.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlsplice/internal/charset"
	"github.com/leapstack-labs/sqlsplice/internal/state"
	"github.com/leapstack-labs/sqlsplice/pkg/section"
)

// Engine maps SQL scripts onto test-case workbooks.
type Engine struct {
	cfg       Config
	extractor *section.Extractor
	store     state.Store
	logger    *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Encodings are tried in order when decoding a script.
	// Defaults to charset.DefaultCandidates.
	Encodings []string

	// Dialect, CommentLead, LogTable and Grammar configure extraction.
	Dialect     section.Dialect
	CommentLead string
	LogTable    string
	Grammar     section.Grammar

	// KeyColumn and ContentColumn are the workbook column labels.
	KeyColumn     string
	ContentColumn string

	// Sheet is the input sheet, empty for the first one.
	Sheet string
	// OutputSheet names the result sheet.
	OutputSheet string
	// DebugSheet names the raw-section sheet written when Debug is set.
	DebugSheet string
	Debug      bool

	// Store records run history (optional). The engine closes it.
	Store state.Store

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. Extraction settings are validated here so a bad
// configuration fails before any file is touched.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(cfg.Encodings) == 0 {
		cfg.Encodings = charset.DefaultCandidates
	}
	for _, enc := range cfg.Encodings {
		if !charset.Supported(enc) {
			return nil, fmt.Errorf("unsupported encoding %q", enc)
		}
	}

	extractor, err := section.New(section.Options{
		Dialect:     cfg.Dialect,
		CommentLead: cfg.CommentLead,
		LogTable:    cfg.LogTable,
		Grammar:     cfg.Grammar,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid extraction settings: %w", err)
	}

	logger.Debug("initializing engine",
		slog.String("dialect", string(cfg.Dialect)),
		slog.Any("encodings", cfg.Encodings),
		slog.Bool("history", cfg.Store != nil))

	return &Engine{
		cfg:       cfg,
		extractor: extractor,
		store:     cfg.Store,
		logger:    logger,
	}, nil
}

// Close releases the history store, if any.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Extractor returns the configured section extractor.
func (e *Engine) Extractor() *section.Extractor {
	return e.extractor
}

// Script is a decoded and extracted script file.
type Script struct {
	Path     string
	Encoding string
	Text     string
	Result   *section.Result
}

// ReadScript decodes the script at path without extracting it.
func (e *Engine) ReadScript(path string) (*Script, error) {
	decoded, err := charset.ReadFile(path, e.cfg.Encodings)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("script decoded", slog.String("path", path), slog.String("encoding", decoded.Encoding))
	return &Script{Path: path, Encoding: decoded.Encoding, Text: decoded.Text}, nil
}

// LoadScript decodes and extracts the script at path.
func (e *Engine) LoadScript(path string) (*Script, error) {
	s, err := e.ReadScript(path)
	if err != nil {
		return nil, err
	}
	res, err := e.extractor.Extract(s.Text)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	s.Result = res
	e.logger.Info("sections extracted",
		slog.String("path", path),
		slog.String("dialect", string(res.Dialect)),
		slog.Int("sections", res.Len()))
	return s, nil
}
