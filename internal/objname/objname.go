// Package objname implements the object-name data model of spec.md §3: a
// domain plus an ordered or unordered list of key=value properties, with a
// pattern flag when the domain or any property value contains "*" or "?".
package objname

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/beanbridge/bridge/internal/pathcodec"
)

// Property is one key=value pair of an object name.
type Property struct {
	Key   string
	Value string
}

// Name is a parsed object name. Literal() preserves input property order;
// Canonical() sorts properties lexicographically by key. Equality always
// compares canonical form.
type Name struct {
	Domain     string
	Properties []Property
	Pattern    bool
}

// Parse parses "domain:k1=v1,k2=v2,...". Property values follow the same
// escape discipline as pathcodec (so an embedded "," must be escaped with
// "!" the way "/" would be in a path) — "!" escapes "!" and ",".
// A name with no domain, or a non-pattern name with zero properties, is
// invalid (spec.md §3 invariant).
func Parse(s string) (Name, error) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return Name{}, fmt.Errorf("objname: missing ':' in %q", s)
	}
	domain := s[:idx]
	rest := s[idx+1:]
	if domain == "" {
		return Name{}, fmt.Errorf("objname: empty domain in %q", s)
	}

	var props []Property
	pattern := containsWildcard(domain)
	if rest != "" {
		for _, raw := range splitProps(rest) {
			kv := splitUnescaped(raw, '=')
			if len(kv) != 2 {
				return Name{}, fmt.Errorf("objname: malformed property %q in %q", raw, s)
			}
			key := unescapeProp(kv[0])
			val := unescapeProp(kv[1])
			if key == "" {
				return Name{}, fmt.Errorf("objname: empty property key in %q", s)
			}
			props = append(props, Property{Key: key, Value: val})
			if containsWildcard(key) || containsWildcard(val) {
				pattern = true
			}
		}
	}

	if !pattern && len(props) == 0 {
		return Name{}, fmt.Errorf("objname: non-pattern name %q must have at least one property", s)
	}

	return Name{Domain: domain, Properties: props, Pattern: pattern}, nil
}

func containsWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// splitProps splits the comma-separated property list, honoring "!" escapes.
func splitProps(s string) []string {
	return splitUnescapedAll(s, ',')
}

// splitUnescaped splits on the first unescaped occurrence of sep, returning
// at most 2 parts.
func splitUnescaped(s string, sep byte) []string {
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '!':
			escaped = true
		case s[i] == sep:
			return []string{s[:i], s[i+1:]}
		}
	}
	return []string{s}
}

func splitUnescapedAll(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '!':
			escaped = true
		case c == sep:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, cur.String())
	return out
}

func unescapeProp(s string) string {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '!' {
			escaped = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func escapeProp(s string) string {
	if !strings.ContainsAny(s, "!,=:") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '!', ',', '=', ':':
			b.WriteByte('!')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Literal renders the name preserving input property order.
func (n Name) Literal() string {
	return n.render(n.Properties)
}

// Canonical renders the name with properties sorted lexicographically by key.
func (n Name) Canonical() string {
	sorted := make([]Property, len(n.Properties))
	copy(sorted, n.Properties)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return n.render(sorted)
}

func (n Name) render(props []Property) string {
	var b strings.Builder
	b.WriteString(n.Domain)
	b.WriteByte(':')
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeProp(p.Key))
		b.WriteByte('=')
		b.WriteString(escapeProp(p.Value))
	}
	return b.String()
}

// String implements fmt.Stringer as the canonical form.
func (n Name) String() string { return n.Canonical() }

// Equal compares two names by canonical form (spec.md §3).
func (n Name) Equal(other Name) bool {
	return n.Canonical() == other.Canonical()
}

// Matches reports whether n (assumed concrete) matches pattern p. Both the
// domain and every property of p may contain "*"/"?" glob wildcards; a
// property present in p but absent from n never matches.
func (n Name) Matches(p Name) bool {
	if !p.Pattern {
		return n.Equal(p)
	}
	if !globMatch(p.Domain, n.Domain) {
		return false
	}
	props := map[string]string{}
	for _, prop := range n.Properties {
		props[prop.Key] = prop.Value
	}
	for _, pp := range p.Properties {
		v, ok := props[pp.Key]
		if !ok {
			return false
		}
		if !globMatch(pp.Value, v) {
			return false
		}
	}
	return true
}

// globMatch implements "*"/"?" glob matching using path.Match semantics,
// which is the closest stdlib primitive to the shell-style globs object
// names use. Property values arrive here already unescaped and may contain
// "/", which path.Match's "*" and "?" never cross, so "/" is mapped to a
// byte with no glob meaning first and matches like any other character.
func globMatch(pattern, s string) bool {
	const slash = "\x00"
	ok, err := path.Match(strings.ReplaceAll(pattern, "/", slash), strings.ReplaceAll(s, "/", slash))
	if err != nil {
		return false
	}
	return ok
}

// EscapePathSegment escapes an object name's literal form for embedding as a
// single path segment, reusing the pathcodec escape discipline (spec.md §4.1:
// "property values of object names use the same escape discipline").
func (n Name) EscapePathSegment() string {
	return pathcodec.EscapeSegment(n.Literal())
}
