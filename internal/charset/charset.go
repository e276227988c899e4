// Package charset decodes script files by trying candidate encodings in order.
//
// A candidate is accepted only when it decodes the whole input cleanly:
// UTF-8 variants require valid UTF-8, and single-byte code pages must not
// produce replacement characters or C1 control characters (which the
// legacy code pages leave undefined). Input that starts with a UTF-8
// byte-order mark is never handed to a single-byte code page.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUndecodable is returned when no candidate encoding decodes the input.
var ErrUndecodable = errors.New("no candidate encoding could decode the input")

// DefaultCandidates is the fallback order used when none is configured:
// the legacy Hebrew code page first, then UTF-8 with and without BOM.
var DefaultCandidates = []string{"windows-1255", "utf-8-sig", "utf-8"}

// DecodeError lists the encodings that were tried.
type DecodeError struct {
	Source string
	Tried  []string
}

func (e *DecodeError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %v (tried %s)", e.Source, ErrUndecodable, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("%v (tried %s)", ErrUndecodable, strings.Join(e.Tried, ", "))
}

func (e *DecodeError) Unwrap() error {
	return ErrUndecodable
}

// Decoded is text together with the encoding that produced it.
type Decoded struct {
	Text     string
	Encoding string
}

type codec struct {
	name       string
	enc        encoding.Encoding
	valid      func(in, out []byte) bool
	singleByte bool
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func validUTF8(in, _ []byte) bool { return utf8.Valid(in) }

func cleanSingleByte(_, out []byte) bool {
	for _, r := range string(out) {
		if r == utf8.RuneError || (r >= 0x80 && r <= 0x9f) {
			return false
		}
	}
	return true
}

func noReplacement(_, out []byte) bool {
	return !bytes.ContainsRune(out, utf8.RuneError)
}

// lookup resolves an encoding name or alias.
func lookup(name string) (codec, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "windows-1255", "cp1255", "hebrew-windows":
		return codec{name: "windows-1255", enc: charmap.Windows1255, valid: cleanSingleByte, singleByte: true}, nil
	case "iso-8859-8", "iso8859-8", "hebrew":
		return codec{name: "iso-8859-8", enc: charmap.ISO8859_8, valid: cleanSingleByte, singleByte: true}, nil
	case "windows-1252", "cp1252", "latin1":
		return codec{name: "windows-1252", enc: charmap.Windows1252, valid: cleanSingleByte, singleByte: true}, nil
	case "utf-8-sig", "utf8-sig":
		return codec{name: "utf-8-sig", enc: unicode.UTF8BOM, valid: validUTF8}, nil
	case "utf-8", "utf8":
		return codec{name: "utf-8", enc: unicode.UTF8, valid: validUTF8}, nil
	case "utf-16", "utf16":
		return codec{
			name:  "utf-16",
			enc:   unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
			valid: noReplacement,
		}, nil
	default:
		return codec{}, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Supported reports whether name is a known encoding or alias.
func Supported(name string) bool {
	_, err := lookup(name)
	return err == nil
}

// Decode tries each candidate in order and returns the first clean decode.
// Line endings are translated to "\n".
func Decode(b []byte, candidates []string) (*Decoded, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}

	bom := bytes.HasPrefix(b, utf8BOM)
	tried := make([]string, 0, len(candidates))
	for _, name := range candidates {
		c, err := lookup(name)
		if err != nil {
			return nil, err
		}
		tried = append(tried, c.name)
		if bom && c.singleByte {
			continue
		}

		out, err := c.enc.NewDecoder().Bytes(b)
		if err != nil || !c.valid(b, out) {
			continue
		}
		return &Decoded{Text: normalizeNewlines(string(out)), Encoding: c.name}, nil
	}

	return nil, &DecodeError{Tried: tried}
}

// ReadFile reads path and decodes it with Decode.
func ReadFile(path string, candidates []string) (*Decoded, error) {
	b, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	d, err := Decode(b, candidates)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Source = path
		}
		return nil, err
	}
	return d, nil
}

func normalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
