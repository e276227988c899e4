package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded mapping runs",
		Long: `List mapping runs recorded with map --history, newest first.

Given a run ID, show that run in full, including the workbook keys the
script had no section for.`,
		Example: `  # Recent runs
  sqlsplice history

  # One run
  sqlsplice history 3f1c2a9e-...

  # From another history database
  sqlsplice history --state ci/history.db -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := cmdCtx.Cfg.StatePath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if len(args) > 0 {
			return fmt.Errorf("%w: %s", state.ErrRunNotFound, args[0])
		}
		r.Muted("No runs recorded yet. Use map --history to record runs.")
		return nil
	}

	store, err := state.OpenStore(ctx, path, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	if len(args) > 0 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return renderRun(r, run)
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return renderRuns(r, runs)
}

func renderRuns(r *output.Renderer, runs []*state.Run) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	case output.ModeYAML:
		return r.YAML(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet.")
		return nil
	}

	cols := []string{"Run", "Started", "Status", "Script", "Workbook", "Sections", "Filled"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			truncate(run.ScriptPath, 40),
			truncate(run.WorkbookPath, 40),
			strconv.Itoa(run.Sections),
			fmt.Sprintf("%d/%d", run.Matched, run.Rows),
		})
	}
	renderGrid(r, cols, rows)
	return nil
}

func renderRun(r *output.Renderer, run *state.Run) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(run)
	case output.ModeYAML:
		return r.YAML(run)
	}

	fields := [][2]string{
		{"Run", run.ID},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
		{"Status", string(run.Status)},
		{"Script", run.ScriptPath},
		{"Workbook", run.WorkbookPath},
		{"Output", run.OutputPath},
		{"Encoding", run.Encoding},
		{"Dialect", run.Dialect},
		{"Sections", strconv.Itoa(run.Sections)},
		{"Filled", fmt.Sprintf("%d/%d", run.Matched, run.Rows)},
	}
	if run.Error != "" {
		fields = append(fields, [2]string{"Error", run.Error})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Run "+run.ID))
		r.Println("")
		for _, f := range fields {
			if f[1] != "" {
				r.Println(output.FormatKeyValue(f[0], f[1]))
			}
		}
		if len(run.MissingKeys) > 0 {
			r.Println("")
			r.Println(output.FormatHeader(2, "Missing Sections"))
			r.Println("")
			r.Println("- " + strings.Join(run.MissingKeys, "\n- "))
		}
		return nil
	}

	styles := r.Styles()
	for _, f := range fields {
		if f[1] != "" {
			r.Printf("%s %s\n", styles.Key.Render(fmt.Sprintf("%-9s", f[0]+":")), f[1])
		}
	}
	if len(run.MissingKeys) > 0 {
		r.Println("")
		r.Header(2, "Rows without a section")
		for _, key := range run.MissingKeys {
			r.StatusLine(key, "warning", "")
		}
	}
	return nil
}
