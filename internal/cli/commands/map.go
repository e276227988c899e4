package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/internal/engine"
	"github.com/leapstack-labs/sqlsplice/internal/picker"
	"github.com/leapstack-labs/sqlsplice/internal/workbook"
	"github.com/spf13/cobra"
)

// watchDebounce is how long a burst of file events must settle before
// the mapping is run again.
const watchDebounce = 300 * time.Millisecond

// pickFile asks for a path interactively.
var pickFile = picker.Pick

// MapOptions holds options for the map command.
type MapOptions struct {
	Out   string
	Watch bool
}

// NewMapCommand creates the map command.
func NewMapCommand() *cobra.Command {
	opts := &MapOptions{}
	cmd := &cobra.Command{
		Use:   "map [script] [workbook]",
		Short: "Fill a workbook's script column from a SQL script",
		Long: `Split a SQL script into numbered sections and write each section into
the workbook row whose key matches it.

Rows are kept in order. A row whose key has no section gets an empty
script cell and is listed as missing. The result is written to a new
workbook; the input is never modified.

When a path is left out and the terminal is interactive, a file picker
asks for it.`,
		Example: `  # Map a script onto a workbook
  sqlsplice map tests.sql cases.xlsx

  # Choose the output and add the raw-section sheet
  sqlsplice map tests.sql cases.xlsx --out result.xlsx --debug

  # Scripts that mark sections with PRINT '1.2'
  sqlsplice map tests.sql cases.xlsx --dialect inline

  # Re-run on every save
  sqlsplice map tests.sql cases.xlsx --watch`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "Output workbook path (default: timestamped name in --output-dir)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Run again whenever the script or workbook changes")
	cmd.Flags().String("output-dir", "", "Directory for derived output names")
	cmd.Flags().String("output-prefix", "", "Prefix for derived output names")
	cmd.Flags().String("key-column", "", "Label of the workbook key column")
	cmd.Flags().String("content-column", "", "Label of the workbook script column")
	cmd.Flags().String("sheet", "", "Input sheet (default: first sheet)")
	cmd.Flags().String("output-sheet", "", "Name of the result sheet")
	cmd.Flags().Bool("debug", false, "Add a sheet with each section's raw text")
	cmd.Flags().Bool("history", false, "Record the run in the history database")
	addExtractionFlags(cmd)

	return cmd
}

// addExtractionFlags registers the flags that control decoding and
// section extraction.
func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("encoding", nil, "Encoding to try, in order (repeatable)")
	cmd.Flags().String("dialect", "", "Section marker dialect: auto, comment or inline")
	cmd.Flags().String("grammar", "", "Log insert grammar: paren or quoted-id")
	cmd.Flags().String("log-table", "", "Table whose inserts are removed from sections")
	cmd.Flags().String("comment-lead", "", "Comment character of section markers")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "comment", "inline"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("grammar", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"paren", "quoted-id"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// MapOutput is the JSON output for the map command.
type MapOutput struct {
	RunID      string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Script     string   `json:"script" yaml:"script"`
	Workbook   string   `json:"workbook" yaml:"workbook"`
	Output     string   `json:"output" yaml:"output"`
	Encoding   string   `json:"encoding" yaml:"encoding"`
	Dialect    string   `json:"dialect" yaml:"dialect"`
	Sections   int      `json:"sections" yaml:"sections"`
	Rows       int      `json:"rows" yaml:"rows"`
	Matched    int      `json:"matched" yaml:"matched"`
	Missing    []string `json:"missing" yaml:"missing"`
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

func runMap(cmd *cobra.Command, args []string, opts *MapOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	script, book, err := resolveInputs(ctx, args)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !opts.Watch {
		_, err := mapOnce(ctx, cmdCtx, script, book, opts.Out)
		return err
	}
	return watchAndMap(ctx, cmdCtx, script, book, opts.Out)
}

// resolveInputs fills in missing paths with the file picker.
func resolveInputs(ctx context.Context, args []string) (string, string, error) {
	paths := make([]string, 2)
	copy(paths, args)

	prompts := []struct {
		what  string
		title string
		exts  []string
	}{
		{"script", "Choose the SQL script", []string{".sql", ".txt"}},
		{"workbook", "Choose the test-case workbook", []string{".xlsx", ".xlsm"}},
	}

	for i, p := range prompts {
		if paths[i] != "" {
			continue
		}
		if !stdinIsTerminal() {
			return "", "", fmt.Errorf("%s: %w", p.what, ErrInputUnavailable)
		}
		chosen, err := pickFile(ctx, p.title, ".", p.exts)
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", p.what, err)
		}
		paths[i] = chosen
	}
	return paths[0], paths[1], nil
}

func mapOnce(ctx context.Context, cmdCtx *CommandContext, script, book, out string) (*engine.Outcome, error) {
	cfg := cmdCtx.Cfg
	dest := workbook.OutputPath(out, cfg.OutputDir, cfg.OutputPrefix, time.Now())

	res, err := cmdCtx.Engine.Map(ctx, engine.Request{
		ScriptPath:   script,
		WorkbookPath: book,
		OutputPath:   dest,
	})
	if err != nil {
		return nil, err
	}
	return res, renderMapOutcome(cmdCtx.Renderer, book, res)
}

func buildMapOutput(book string, res *engine.Outcome) *MapOutput {
	out := &MapOutput{
		RunID:    res.RunID,
		Script:   res.Script.Path,
		Workbook: book,
		Output:   res.OutputPath,
		Encoding: res.Script.Encoding,
		Dialect:  string(res.Script.Result.Dialect),
		Sections: res.Script.Result.Len(),
		Rows:     res.Report.Rows,
		Matched:  res.Report.Matched,
		Missing:  res.Report.Missing,
	}
	if out.Missing == nil {
		out.Missing = []string{}
	}
	out.Duplicates = res.Script.Result.Duplicates
	return out
}

func renderMapOutcome(r *output.Renderer, book string, res *engine.Outcome) error {
	mo := buildMapOutput(book, res)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(mo)
	case output.ModeYAML:
		return r.YAML(mo)
	case output.ModeMarkdown:
		renderMapMarkdown(r, mo)
	default:
		renderMapText(r, mo)
	}
	return nil
}

func renderMapText(r *output.Renderer, mo *MapOutput) {
	styles := r.Styles()

	r.Success("Wrote " + mo.Output)
	r.Printf("  %s %s (%s, %s dialect)\n", styles.Muted.Render("script:"), mo.Script, mo.Encoding, mo.Dialect)
	r.Printf("  %s %d sections, %d of %d rows filled\n", styles.Muted.Render("result:"), mo.Sections, mo.Matched, mo.Rows)
	if mo.RunID != "" {
		r.Printf("  %s %s\n", styles.Muted.Render("run:"), mo.RunID)
	}

	if len(mo.Duplicates) > 0 {
		r.Println("")
		r.Header(2, "Repeated sections (last one kept)")
		for _, id := range mo.Duplicates {
			r.StatusLine(id, "warning", "")
		}
	}
	if len(mo.Missing) > 0 {
		r.Println("")
		r.Header(2, "Rows without a section")
		for _, key := range mo.Missing {
			r.StatusLine(key, "warning", "not in script")
		}
	}
}

func renderMapMarkdown(r *output.Renderer, mo *MapOutput) {
	r.Println(output.FormatHeader(1, "Mapping Result"))
	r.Println("")
	r.Println(output.FormatKeyValue("Output", mo.Output))
	r.Println(output.FormatKeyValue("Script", mo.Script))
	r.Println(output.FormatKeyValue("Workbook", mo.Workbook))
	r.Println(output.FormatKeyValue("Encoding", mo.Encoding))
	r.Println(output.FormatKeyValue("Dialect", mo.Dialect))
	r.Println(output.FormatKeyValue("Sections", strconv.Itoa(mo.Sections)))
	r.Println(output.FormatKeyValue("Rows", strconv.Itoa(mo.Rows)))
	r.Println(output.FormatKeyValue("Matched", strconv.Itoa(mo.Matched)))
	if mo.RunID != "" {
		r.Println(output.FormatKeyValue("Run", mo.RunID))
	}

	if len(mo.Duplicates) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Repeated Sections"))
		r.Println("")
		for _, id := range mo.Duplicates {
			r.Printf("- %s\n", id)
		}
	}
	if len(mo.Missing) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Missing Sections"))
		r.Println("")
		for _, key := range mo.Missing {
			r.Printf("- %s\n", key)
		}
	}
}

// watchAndMap maps once, then again after every change to the script or
// workbook until interrupted. Failed runs are reported and watching
// continues.
func watchAndMap(ctx context.Context, cmdCtx *CommandContext, script, book, out string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	targets, err := watchTargets(watcher, script, book)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	run := func() {
		if _, err := mapOnce(ctx, cmdCtx, script, book, out); err != nil {
			r.Error(err.Error())
		}
	}

	run()
	r.Muted("Watching for changes (Ctrl+C to stop)")
	watchLoop(ctx, watcher, targets, cmdCtx.Logger, run)
	return nil
}

// watchTargets watches the directories of paths, since editors often
// replace a file rather than write to it, and returns the absolute paths
// whose events matter.
func watchTargets(w *fsnotify.Watcher, paths ...string) (map[string]bool, error) {
	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return targets, nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, targets map[string]bool, logger *slog.Logger, run func()) {
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				logger.Debug("change detected", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				fire = time.After(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", slog.String("error", err.Error()))
		case <-fire:
			fire = nil
			run()
		}
	}
}
