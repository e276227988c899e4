package commands

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/internal/diagnose"
	"github.com/leapstack-labs/sqlsplice/internal/engine"
	"github.com/leapstack-labs/sqlsplice/pkg/section"
	"github.com/spf13/cobra"
)

// ProbeOptions holds options for the probe command.
type ProbeOptions struct {
	Lines int
	Hex   bool
	All   bool
}

// CandidateOutput reports how many markers one dialect finds.
type CandidateOutput struct {
	Dialect string `json:"dialect" yaml:"dialect"`
	Markers int    `json:"markers" yaml:"markers"`
}

// PatternCount is the number of inspected lines a pattern matched.
type PatternCount struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Lines   int    `json:"lines" yaml:"lines"`
}

// ProbeOutput is the JSON output for the probe command.
type ProbeOutput struct {
	Script     string                `json:"script" yaml:"script"`
	Encoding   string                `json:"encoding" yaml:"encoding"`
	Chosen     string                `json:"chosen" yaml:"chosen"`
	Candidates []CandidateOutput     `json:"candidates" yaml:"candidates"`
	Summary    []PatternCount        `json:"summary" yaml:"summary"`
	Lines      []diagnose.LineReport `json:"lines" yaml:"lines"`
}

// NewProbeCommand creates the probe command.
func NewProbeCommand() *cobra.Command {
	opts := &ProbeOptions{}
	cmd := &cobra.Command{
		Use:   "probe <script>",
		Short: "Explain how section markers in a script are recognized",
		Long: `Decode a SQL script and report which encoding was used, how many
markers each dialect finds and which dialect would be chosen.

The first lines of the script are tested against the marker patterns.
Lines with a match are listed; --all lists every inspected line and
--hex adds each line's code points, which exposes invisible characters
that stop a marker from matching.`,
		Example: `  # Why does map find no sections?
  sqlsplice probe tests.sql

  # Inspect the first 20 lines with their code points
  sqlsplice probe tests.sql --lines 20 --all --hex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.Lines, "lines", diagnose.DefaultLines, "Number of lines to inspect")
	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "Show each line's code points")
	cmd.Flags().BoolVar(&opts.All, "all", false, "List inspected lines without a match too")
	addExtractionFlags(cmd)

	return cmd
}

func runProbe(cmd *cobra.Command, path string, opts *ProbeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	script, err := cmdCtx.Engine.ReadScript(path)
	if err != nil {
		return err
	}

	patterns := diagnose.DefaultPatterns(cmdCtx.Cfg.CommentLead, cmdCtx.Cfg.KeyColumn)
	po := buildProbeOutput(script, cmdCtx.Engine.Extractor().Probe(script.Text), patterns, opts.Lines)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(po)
	case output.ModeYAML:
		return r.YAML(po)
	case output.ModeMarkdown:
		renderProbeMarkdown(r, po, opts)
	default:
		renderProbeText(r, po, opts)
	}
	return nil
}

func buildProbeOutput(script *engine.Script, candidates []section.Candidate, patterns []diagnose.Pattern, lines int) *ProbeOutput {
	po := &ProbeOutput{
		Script:     script.Path,
		Encoding:   script.Encoding,
		Chosen:     "none",
		Candidates: make([]CandidateOutput, 0, len(candidates)),
		Lines:      diagnose.Analyze(script.Text, lines, patterns),
	}

	for _, c := range candidates {
		po.Candidates = append(po.Candidates, CandidateOutput{Dialect: string(c.Dialect), Markers: c.Markers})
		if po.Chosen == "none" && c.Markers > 0 {
			po.Chosen = string(c.Dialect)
		}
	}

	counts := diagnose.Summary(po.Lines, patterns)
	for _, p := range patterns {
		po.Summary = append(po.Summary, PatternCount{Pattern: p.Name, Lines: counts[p.Name]})
	}
	return po
}

func renderProbeText(r *output.Renderer, po *ProbeOutput, opts *ProbeOptions) {
	styles := r.Styles()

	r.Header(1, po.Script)
	r.Printf("%s %s\n", styles.Muted.Render("encoding:"), po.Encoding)
	r.Printf("%s %s\n", styles.Muted.Render("chosen dialect:"), styles.Bold.Render(po.Chosen))

	r.Println("")
	r.Header(2, "Dialects")
	for _, c := range po.Candidates {
		status := "success"
		if c.Markers == 0 {
			status = "failed"
		}
		r.StatusLine(c.Dialect, status, pluralize(c.Markers, "marker", "markers"))
	}

	r.Println("")
	r.Header(2, "Patterns in the first "+pluralize(len(po.Lines), "line", "lines"))
	for _, pc := range po.Summary {
		r.Printf("  %-32s %d\n", pc.Pattern, pc.Lines)
	}

	r.Println("")
	renderProbeLines(r, po, opts)
}

func renderProbeMarkdown(r *output.Renderer, po *ProbeOutput, opts *ProbeOptions) {
	r.Println(output.FormatHeader(1, "Probe: "+po.Script))
	r.Println("")
	r.Println(output.FormatKeyValue("Encoding", po.Encoding))
	r.Println(output.FormatKeyValue("Chosen dialect", po.Chosen))

	r.Println("")
	r.Println(output.FormatHeader(2, "Dialects"))
	r.Println("")
	for _, c := range po.Candidates {
		r.Println(output.FormatKeyValue(c.Dialect, strconv.Itoa(c.Markers)))
	}

	r.Println("")
	r.Println(output.FormatHeader(2, "Patterns"))
	r.Println("")
	for _, pc := range po.Summary {
		r.Println(output.FormatKeyValue(pc.Pattern, strconv.Itoa(pc.Lines)))
	}

	r.Println("")
	r.Println(output.FormatHeader(2, "Lines"))
	r.Println("")
	renderProbeLines(r, po, opts)
}

func renderProbeLines(r *output.Renderer, po *ProbeOutput, opts *ProbeOptions) {
	cols := []string{"Line", "Text", "Matches"}
	if opts.Hex {
		cols = append(cols, "Hex")
	}

	var rows [][]string
	for _, l := range po.Lines {
		if len(l.Matches) == 0 && !opts.All {
			continue
		}
		names := make([]string, len(l.Matches))
		for i, m := range l.Matches {
			names[i] = m.Pattern
		}
		row := []string{strconv.Itoa(l.Number), truncate(l.Text, 60), strings.Join(names, "; ")}
		if opts.Hex {
			row = append(row, l.Hex)
		}
		rows = append(rows, row)
	}
	renderGrid(r, cols, rows)
}
