package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlsplice/internal/state"
	"github.com/leapstack-labs/sqlsplice/internal/workbook"
	"github.com/leapstack-labs/sqlsplice/pkg/join"
)

// Request names the files of one mapping run.
type Request struct {
	ScriptPath   string
	WorkbookPath string
	// OutputPath is where the result goes. It must be set.
	OutputPath string
}

// Outcome describes a completed run.
type Outcome struct {
	// RunID is the history ID, empty when history is off.
	RunID      string
	Script     *Script
	Table      *join.Table
	Report     *join.Report
	OutputPath string
}

// Map runs the full pipeline for req. Nothing is written unless every
// earlier stage succeeds. Missing keys are reported in the outcome and
// logged as a warning; they do not fail the run.
func (e *Engine) Map(ctx context.Context, req Request) (*Outcome, error) {
	started := time.Now().UTC()
	e.logger.Info("starting run",
		slog.String("script", req.ScriptPath),
		slog.String("workbook", req.WorkbookPath))

	out, err := e.mapFiles(ctx, req)

	e.record(ctx, started, req, out, err)
	if err != nil {
		e.logger.Debug("run failed", slog.String("error", err.Error()))
		return nil, err
	}

	if n := len(out.Report.Missing); n > 0 {
		e.logger.Warn("workbook keys without a section",
			slog.Int("count", n),
			slog.Any("keys", out.Report.Missing))
	}
	e.logger.Info("run completed",
		slog.String("output", out.OutputPath),
		slog.Int("rows", out.Report.Rows),
		slog.Int("matched", out.Report.Matched))
	return out, nil
}

func (e *Engine) mapFiles(ctx context.Context, req Request) (*Outcome, error) {
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	script, err := e.LoadScript(req.ScriptPath)
	if err != nil {
		return &Outcome{Script: script}, err
	}
	out := &Outcome{Script: script, OutputPath: req.OutputPath}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	sheet, err := workbook.Read(req.WorkbookPath, e.cfg.Sheet)
	if err != nil {
		return out, err
	}
	out.Table = sheet.Table

	report, err := join.Apply(sheet.Table, script.Result.Sections, join.Options{
		KeyColumn:     e.cfg.KeyColumn,
		ContentColumn: e.cfg.ContentColumn,
	})
	if err != nil {
		return out, fmt.Errorf("%s: %w", req.WorkbookPath, err)
	}
	out.Report = report
	if err := ctx.Err(); err != nil {
		return out, err
	}

	opts := workbook.WriteOptions{
		Sheet:      e.cfg.OutputSheet,
		Debug:      e.cfg.Debug,
		DebugSheet: e.cfg.DebugSheet,
		KeyLabel:   report.KeyColumn,
		Logger:     e.logger,
	}
	if e.cfg.Debug {
		for _, id := range script.Result.IDs {
			opts.Raw = append(opts.Raw, workbook.RawEntry{ID: id, Body: script.Result.Raw[id]})
		}
	}
	if err := workbook.Write(req.OutputPath, sheet, opts); err != nil {
		return out, err
	}
	return out, nil
}

// record stores the run in history. Failures here never fail the run.
func (e *Engine) record(ctx context.Context, started time.Time, req Request, out *Outcome, runErr error) {
	if e.store == nil {
		return
	}

	run := &state.Run{
		StartedAt:    started,
		ScriptPath:   req.ScriptPath,
		WorkbookPath: req.WorkbookPath,
		Status:       state.RunStatusCompleted,
	}
	if out != nil {
		if s := out.Script; s != nil {
			run.Encoding = s.Encoding
			if s.Result != nil {
				run.Dialect = string(s.Result.Dialect)
				run.Sections = s.Result.Len()
			}
		}
		if r := out.Report; r != nil {
			run.Rows = r.Rows
			run.Matched = r.Matched
			run.MissingKeys = r.Missing
		}
	}
	if runErr != nil {
		run.Status = state.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.OutputPath = out.OutputPath
	}

	// Record even when the run was cancelled.
	if err := e.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Warn("failed to record run history", slog.String("error", err.Error()))
		return
	}
	if out != nil && runErr == nil {
		out.RunID = run.ID
	}
	e.logger.Debug("run recorded", slog.String("run_id", run.ID))
}
