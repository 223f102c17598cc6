// Package pathcodec implements the escape-aware path splitter/joiner used
// for both URI paths and JSON-conversion selectors (SPEC_FULL.md §4.1).
//
// On the wire, segments are joined by "/" and "!" escapes both "!" and "/"
// inside a segment. This is a wire contract: client compatibility depends on
// it being preserved bit-exactly (spec.md §9).
package pathcodec

import "strings"

const (
	sep    = '/'
	escape = '!'
)

// Split decodes a wire path into its ordered segments. Empty segments are
// preserved: "a//b" yields three segments ("a", "", "b"). An empty path
// yields no segments (nil), so a path of one empty segment, which Join
// encodes as "", does not survive a Join/Split round trip.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	var segments []string
	var cur strings.Builder
	escaped := false
	for _, r := range path {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == escape:
			escaped = true
		case r == sep:
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	// A trailing, unterminated escape is treated as a literal "!".
	if escaped {
		cur.WriteByte(escape)
	}
	segments = append(segments, cur.String())
	return segments
}

// Join encodes segments into a single wire path, escaping "!" and "/" inside
// each segment.
func Join(segments []string) string {
	encoded := make([]string, len(segments))
	for i, s := range segments {
		encoded[i] = EscapeSegment(s)
	}
	return strings.Join(encoded, string(sep))
}

// EscapeSegment escapes "!" and "/" within a single segment so it may be
// embedded in a joined path without being mistaken for a boundary. Object
// name property values use this same discipline (spec.md §4.1).
func EscapeSegment(s string) string {
	if !strings.ContainsAny(s, "!/") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if r == escape || r == sep {
			b.WriteByte(escape)
		}
		b.WriteRune(r)
	}
	return b.String()
}
