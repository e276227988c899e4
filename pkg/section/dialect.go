package section

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect names a boundary marker convention.
type Dialect string

// Supported dialects.
const (
	// DialectAuto probes the concrete dialects in order and keeps the first
	// one that finds at least one boundary.
	DialectAuto Dialect = "auto"

	// DialectComment recognizes header lines such as "--1.1." and
	// accumulates the lines that follow each header.
	DialectComment Dialect = "comment"

	// DialectInline splits the whole document on PRINT '1.1' statements.
	DialectInline Dialect = "inline"
)

// probeOrder is the order DialectAuto tries concrete dialects in.
var probeOrder = []Dialect{DialectComment, DialectInline}

// Dialects returns the concrete dialects in probe order.
func Dialects() []Dialect {
	out := make([]Dialect, len(probeOrder))
	copy(out, probeOrder)
	return out
}

// ParseDialect converts a configuration string into a Dialect.
// An empty string selects DialectAuto.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DialectAuto, nil
	case DialectAuto, DialectComment, DialectInline:
		return d, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (expected auto, comment or inline)", s)
	}
}

// Block is one raw section as found in the document, before cleaning.
type Block struct {
	ID   string
	Body string
}

// Splitter turns document text into raw blocks in document order.
// Duplicated identifiers are returned as separate blocks; collapsing
// them is the caller's job.
type Splitter interface {
	Dialect() Dialect
	Split(text string) []Block
}

// NewSplitter returns the splitter for a concrete dialect.
// lead is the comment-lead character used by DialectComment.
func NewSplitter(d Dialect, lead string) (Splitter, error) {
	switch d {
	case DialectComment:
		return newCommentSplitter(lead)
	case DialectInline:
		return newInlineSplitter(), nil
	default:
		return nil, fmt.Errorf("no splitter for dialect %q", d)
	}
}

// commentSplitter scans line by line for marker lines.
type commentSplitter struct {
	marker *regexp.Regexp
}

func newCommentSplitter(lead string) (*commentSplitter, error) {
	if len([]rune(lead)) != 1 {
		return nil, fmt.Errorf("comment lead must be a single character, got %q", lead)
	}
	l := regexp.QuoteMeta(lead)
	return &commentSplitter{
		marker: regexp.MustCompile(`^\s*` + l + `{2,3}(` + idPattern + `)`),
	}, nil
}

func (s *commentSplitter) Dialect() Dialect { return DialectComment }

func (s *commentSplitter) Split(text string) []Block {
	var (
		blocks  []Block
		current string
		open    bool
		buf     []string
	)

	flush := func() {
		if open {
			blocks = append(blocks, Block{ID: current, Body: strings.Join(buf, "\n")})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := s.marker.FindStringSubmatch(line); m != nil {
			flush()
			current = NormalizeID(m[1])
			open = true
			buf = buf[:0]
			continue
		}
		// Lines before the first marker belong to no section.
		if open {
			buf = append(buf, line)
		}
	}
	flush()

	return blocks
}

// inlineSplitter splits the document on diagnostic print statements.
type inlineSplitter struct {
	delim *regexp.Regexp
}

func newInlineSplitter() *inlineSplitter {
	return &inlineSplitter{
		delim: regexp.MustCompile(`(?i)PRINT\s+'(` + idPattern + `)'[ \t]*;?[ \t]*\r?\n?`),
	}
}

func (s *inlineSplitter) Dialect() Dialect { return DialectInline }

func (s *inlineSplitter) Split(text string) []Block {
	locs := s.delim.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, Block{
			ID:   NormalizeID(text[loc[2]:loc[3]]),
			Body: text[loc[1]:end],
		})
	}
	return blocks
}
