package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlsplice/internal/cli/config"
	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/internal/engine"
	"github.com/leapstack-labs/sqlsplice/internal/state"
	"github.com/leapstack-labs/sqlsplice/pkg/section"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrInputUnavailable is returned when a required path was not given and
// cannot be asked for interactively.
var ErrInputUnavailable = errors.New("input path not given and no terminal to ask on")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or defaults when none
// was loaded (commands constructed directly in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	dialect, err := section.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	grammar, err := section.ParseGrammar(cfg.InsertGrammar)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		Encodings:     cfg.Encodings,
		Dialect:       dialect,
		CommentLead:   cfg.CommentLead,
		LogTable:      cfg.LogTable,
		Grammar:       grammar,
		KeyColumn:     cfg.KeyColumn,
		ContentColumn: cfg.ContentColumn,
		Sheet:         cfg.Sheet,
		OutputSheet:   cfg.OutputSheet,
		DebugSheet:    cfg.DebugSheet,
		Debug:         cfg.Debug,
		Logger:        logger,
	}

	if cfg.History {
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := state.OpenStore(ctx, cfg.StatePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		engineCfg.Store = store
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		if engineCfg.Store != nil {
			_ = engineCfg.Store.Close()
		}
		return nil, err
	}
	return eng, nil
}

// stdinIsTerminal reports whether the user can be asked for input.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}
