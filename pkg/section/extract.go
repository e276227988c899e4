package section

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoSections is returned when a document contains no recognizable
// boundary marker under any tried dialect.
var ErrNoSections = errors.New("no section markers found")

// Options configures an Extractor.
type Options struct {
	Dialect     Dialect
	CommentLead string
	LogTable    string
	Grammar     Grammar
	Logger      *slog.Logger
}

// Result is the outcome of extracting one document.
type Result struct {
	// Dialect is the dialect that produced the sections.
	Dialect Dialect

	// Sections maps section ID to cleaned body. Empty bodies are kept.
	Sections map[string]string

	// Raw maps section ID to the uncleaned body, for diagnostics.
	Raw map[string]string

	// IDs lists section IDs in order of first appearance.
	IDs []string

	// Markers counts boundary markers seen, duplicates included.
	Markers int

	// Duplicates lists IDs that appeared more than once. The last
	// occurrence wins.
	Duplicates []string
}

// Len returns the number of distinct sections.
func (r *Result) Len() int {
	return len(r.Sections)
}

// Candidate reports how many markers a dialect finds in a document.
type Candidate struct {
	Dialect Dialect
	Markers int
}

// Extractor turns document text into a section map.
type Extractor struct {
	splitters []Splitter
	cleaner   *Cleaner
	logger    *slog.Logger
}

// New creates an Extractor. With DialectAuto every concrete dialect is
// prepared and probed in order; otherwise only the named one is used.
func New(opts Options) (*Extractor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lead := opts.CommentLead
	if lead == "" {
		lead = DefaultCommentLead
	}

	dialect := opts.Dialect
	if dialect == "" {
		dialect = DialectAuto
	}

	dialects := []Dialect{dialect}
	if dialect == DialectAuto {
		dialects = probeOrder
	}

	splitters := make([]Splitter, 0, len(dialects))
	for _, d := range dialects {
		s, err := NewSplitter(d, lead)
		if err != nil {
			return nil, err
		}
		splitters = append(splitters, s)
	}

	cleaner, err := NewCleaner(CleanOptions{
		LogTable:    opts.LogTable,
		Grammar:     opts.Grammar,
		CommentLead: lead,
	})
	if err != nil {
		return nil, err
	}

	return &Extractor{
		splitters: splitters,
		cleaner:   cleaner,
		logger:    logger,
	}, nil
}

// Cleaner returns the cleaner used for section bodies.
func (e *Extractor) Cleaner() *Cleaner {
	return e.cleaner
}

// Probe runs every configured splitter and reports its marker count
// without building a result.
func (e *Extractor) Probe(text string) []Candidate {
	out := make([]Candidate, 0, len(e.splitters))
	for _, s := range e.splitters {
		out = append(out, Candidate{Dialect: s.Dialect(), Markers: len(s.Split(text))})
	}
	return out
}

// Extract builds the section map for text using the first dialect that
// finds at least one marker. Boundaries from different dialects are never
// mixed. A document without markers yields ErrNoSections.
func (e *Extractor) Extract(text string) (*Result, error) {
	tried := make([]string, 0, len(e.splitters))
	for _, s := range e.splitters {
		blocks := s.Split(text)
		if len(blocks) == 0 {
			e.logger.Debug("dialect found no markers", slog.String("dialect", string(s.Dialect())))
			tried = append(tried, string(s.Dialect()))
			continue
		}

		result := e.collect(s.Dialect(), blocks)
		e.logger.Debug("sections extracted",
			slog.String("dialect", string(result.Dialect)),
			slog.Int("markers", result.Markers),
			slog.Int("sections", result.Len()),
		)
		return result, nil
	}
	return nil, fmt.Errorf("%w (tried dialects: %s)", ErrNoSections, strings.Join(tried, ", "))
}

// collect folds blocks into a Result, applying last-write-wins.
func (e *Extractor) collect(d Dialect, blocks []Block) *Result {
	result := &Result{
		Dialect:  d,
		Sections: make(map[string]string, len(blocks)),
		Raw:      make(map[string]string, len(blocks)),
		Markers:  len(blocks),
	}

	seen := make(map[string]int, len(blocks))
	for _, b := range blocks {
		seen[b.ID]++
		switch seen[b.ID] {
		case 1:
			result.IDs = append(result.IDs, b.ID)
		case 2:
			result.Duplicates = append(result.Duplicates, b.ID)
			e.logger.Warn("duplicate section marker, later content wins", slog.String("section", b.ID))
		}
		result.Raw[b.ID] = b.Body
		result.Sections[b.ID] = e.cleaner.Clean(b.Body)
	}
	return result
}
