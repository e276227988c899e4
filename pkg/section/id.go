// Package section extracts numbered sections from flat SQL scripts.
//
// A script is a single file holding many sub-queries, each introduced by a
// boundary marker carrying a dotted numeric identifier such as 1.1 or 2.10.3.
// Two marker dialects are supported (see Dialect); exactly one of them is
// used per document. Every extracted body is passed through a Cleaner that
// strips bookkeeping inserts, diagnostic prints and residual comment leads.
package section

import "strings"

// idPattern matches a dotted numeric identifier with at least one dot,
// optionally ending with a trailing separator: 1. 1.1 1.1. 2.10.3
const idPattern = `\d+\.(?:\d+\.?)*`

// NormalizeID returns the canonical form of a section identifier.
// Surrounding whitespace and leading/trailing dots are removed, so
// "1.1.", " 1.1" and "1.1" all normalize to "1.1".
func NormalizeID(id string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(id), "."))
}
