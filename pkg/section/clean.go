package section

import (
	"fmt"
	"regexp"
	"strings"
)

// Grammar selects how a bookkeeping insert statement is delimited.
type Grammar string

// Supported insert grammars. Scripts in the wild use both; neither is
// considered canonical.
const (
	// GrammarParen removes from INSERT INTO <log table> through the closing
	// parenthesis that ends its line, or failing that the first closing
	// parenthesis, plus an optional semicolon and trailing whitespace.
	GrammarParen Grammar = "paren"

	// GrammarQuotedID removes from INSERT INTO <log table> through the first
	// quoted section identifier and the rest of that line.
	GrammarQuotedID Grammar = "quoted-id"
)

// Defaults used when CleanOptions fields are empty.
const (
	DefaultLogTable    = "#RUNLOG"
	DefaultCommentLead = "-"
)

// ParseGrammar converts a configuration string into a Grammar.
// An empty string selects GrammarParen.
func ParseGrammar(s string) (Grammar, error) {
	switch g := Grammar(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GrammarParen, nil
	case GrammarParen, GrammarQuotedID:
		return g, nil
	default:
		return "", fmt.Errorf("unknown insert grammar %q (expected paren or quoted-id)", s)
	}
}

// CleanOptions configures a Cleaner.
type CleanOptions struct {
	LogTable    string
	Grammar     Grammar
	CommentLead string
}

// Cleaner reduces a raw section body to the text stored in a table cell.
type Cleaner struct {
	insert *regexp.Regexp
	print  *regexp.Regexp
	prefix *regexp.Regexp
}

// NewCleaner compiles the removal patterns for the given options.
func NewCleaner(opts CleanOptions) (*Cleaner, error) {
	table := opts.LogTable
	if table == "" {
		table = DefaultLogTable
	}
	lead := opts.CommentLead
	if lead == "" {
		lead = DefaultCommentLead
	}
	if len([]rune(lead)) != 1 {
		return nil, fmt.Errorf("comment lead must be a single character, got %q", lead)
	}
	grammar := opts.Grammar
	if grammar == "" {
		grammar = GrammarParen
	}

	head := `(?is)INSERT\s+INTO\s+` + regexp.QuoteMeta(table)
	var insert string
	switch grammar {
	case GrammarParen:
		// Prefer a closing paren that ends the line within one statement so
		// calls such as GETDATE() inside VALUES are removed with the insert.
		insert = head + `(?:[^;]*?\)[ \t]*;?[ \t]*(?:\n|\z)|.*?\)\s*;?\s*\n?)`
	case GrammarQuotedID:
		insert = head + `.*?'[\d.]+'[^\n]*\n?`
	default:
		return nil, fmt.Errorf("unknown insert grammar %q", grammar)
	}

	return &Cleaner{
		insert: regexp.MustCompile(insert),
		print:  regexp.MustCompile(`(?i)PRINT\s+'[\d.]+';?\s*\n?`),
		prefix: regexp.MustCompile(`^(?:\s*` + regexp.QuoteMeta(lead) + `{2,})+`),
	}, nil
}

// Clean removes bookkeeping inserts and print statements, strips comment
// leads from the start of each line and trims the result.
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func (c *Cleaner) Clean(raw string) string {
	// Stripping comment leads can expose a commented-out insert split over
	// several lines, so passes repeat until nothing changes. Every pass only
	// deletes text, which bounds the loop.
	s := c.pass(raw)
	for {
		next := c.pass(s)
		if next == s {
			return s
		}
		s = next
	}
}

func (c *Cleaner) pass(raw string) string {
	s := c.insert.ReplaceAllLiteralString(raw, "")
	s = c.print.ReplaceAllLiteralString(s, "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = c.prefix.ReplaceAllLiteralString(line, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
