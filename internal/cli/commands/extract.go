package commands

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlsplice/internal/cli/output"
	"github.com/leapstack-labs/sqlsplice/internal/engine"
	"github.com/spf13/cobra"
)

// ExtractOptions holds options for the extract command.
type ExtractOptions struct {
	Raw bool
}

// SectionOutput is one section in the extract command's output.
type SectionOutput struct {
	ID   string `json:"id" yaml:"id"`
	Body string `json:"body" yaml:"body"`
}

// ExtractOutput is the JSON output for the extract command.
type ExtractOutput struct {
	Script     string          `json:"script" yaml:"script"`
	Encoding   string          `json:"encoding" yaml:"encoding"`
	Dialect    string          `json:"dialect" yaml:"dialect"`
	Markers    int             `json:"markers" yaml:"markers"`
	Sections   []SectionOutput `json:"sections" yaml:"sections"`
	Duplicates []string        `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	opts := &ExtractOptions{}
	cmd := &cobra.Command{
		Use:   "extract <script>",
		Short: "Show the sections found in a SQL script",
		Long: `Decode a SQL script, split it into numbered sections and print each
section's cleaned body, in the order the sections first appear.

Use --raw to see the bodies before log inserts and PRINT statements are
removed.`,
		Example: `  # List sections
  sqlsplice extract tests.sql

  # Machine-readable output
  sqlsplice extract tests.sql -o json

  # Bodies as written in the script
  sqlsplice extract tests.sql --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Show section bodies before cleaning")
	addExtractionFlags(cmd)

	return cmd
}

func runExtract(cmd *cobra.Command, path string, opts *ExtractOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	script, err := cmdCtx.Engine.LoadScript(path)
	if err != nil {
		return err
	}

	eo := buildExtractOutput(script, opts.Raw)
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(eo)
	case output.ModeYAML:
		return r.YAML(eo)
	case output.ModeMarkdown:
		renderExtractMarkdown(r, eo)
	default:
		renderExtractText(r, eo)
	}
	return nil
}

func buildExtractOutput(script *engine.Script, raw bool) *ExtractOutput {
	res := script.Result
	bodies := res.Sections
	if raw {
		bodies = res.Raw
	}

	eo := &ExtractOutput{
		Script:     script.Path,
		Encoding:   script.Encoding,
		Dialect:    string(res.Dialect),
		Markers:    res.Markers,
		Sections:   make([]SectionOutput, 0, len(res.IDs)),
		Duplicates: res.Duplicates,
	}
	for _, id := range res.IDs {
		eo.Sections = append(eo.Sections, SectionOutput{ID: id, Body: bodies[id]})
	}
	return eo
}

func renderExtractText(r *output.Renderer, eo *ExtractOutput) {
	styles := r.Styles()

	r.Header(1, eo.Script)
	r.Muted(sectionSummary(eo))
	for _, s := range eo.Sections {
		r.Println("")
		r.Println(styles.Key.Render(s.ID))
		if strings.TrimSpace(s.Body) == "" {
			r.Muted("  (empty)")
			continue
		}
		for _, line := range strings.Split(s.Body, "\n") {
			r.Println("  " + line)
		}
	}

	if len(eo.Duplicates) > 0 {
		r.Println("")
		r.Warning("repeated sections, last one kept: " + strings.Join(eo.Duplicates, ", "))
	}
}

func renderExtractMarkdown(r *output.Renderer, eo *ExtractOutput) {
	r.Println(output.FormatHeader(1, "Sections: "+eo.Script))
	r.Println("")
	r.Println(sectionSummary(eo))

	for _, s := range eo.Sections {
		r.Println("")
		r.Println(output.FormatHeader(2, s.ID))
		r.Println("")
		r.Println("```sql")
		r.Println(s.Body)
		r.Println("```")
	}

	if len(eo.Duplicates) > 0 {
		r.Println("")
		r.Println(output.FormatKeyValue("Repeated", strings.Join(eo.Duplicates, ", ")))
	}
}

func sectionSummary(eo *ExtractOutput) string {
	var sb strings.Builder
	sb.WriteString(pluralize(len(eo.Sections), "section", "sections"))
	sb.WriteString(", ")
	sb.WriteString(eo.Dialect)
	sb.WriteString(" dialect, ")
	sb.WriteString(eo.Encoding)
	return sb.String()
}

func pluralize(n int, one, many string) string {
	word := many
	if n == 1 {
		word = one
	}
	return strconv.Itoa(n) + " " + word
}
