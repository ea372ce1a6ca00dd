package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled wildcard fragment tested against normalised names.
//
// Grammar:
//   - literal text is normalised like a column name
//   - ".", "*" and ".*" match any run of characters, including none
//   - "|" separates alternatives
//
// Matching is unanchored: "total.*price" matches "grand total unit price".
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// CompilePattern parses a wildcard fragment.
func CompilePattern(src string) (Pattern, error) {
	alts := strings.Split(src, "|")
	parts := make([]string, 0, len(alts))
	for _, alt := range alts {
		expr, hasLiteral := translateAlternative(alt)
		if !hasLiteral {
			return Pattern{}, fmt.Errorf("pattern %q: alternative %q has no literal text", src, alt)
		}
		parts = append(parts, expr)
	}

	re, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", src, err)
	}
	return Pattern{Source: src, re: re}, nil
}

// MustCompilePattern is CompilePattern for static patterns in tests.
func MustCompilePattern(src string) Pattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the normalised name contains the pattern.
func (p Pattern) Match(normalized string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(normalized)
}

// String returns the pattern as written in the catalog.
func (p Pattern) String() string {
	return p.Source
}

// translateAlternative converts one wildcard alternative into a regular
// expression body. Literal fragments are normalised and quoted.
func translateAlternative(alt string) (string, bool) {
	var (
		out        strings.Builder
		literal    strings.Builder
		hasLiteral bool
	)

	flush := func() {
		if literal.Len() == 0 {
			return
		}
		if lit := Normalize(literal.String()); lit != "" {
			out.WriteString(regexp.QuoteMeta(lit))
			hasLiteral = true
		}
		literal.Reset()
	}

	rs := []rune(alt)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '.', '*':
			flush()
			for i+1 < len(rs) && (rs[i+1] == '.' || rs[i+1] == '*') {
				i++
			}
			out.WriteString(".*")
		default:
			literal.WriteRune(rs[i])
		}
	}
	flush()

	return out.String(), hasLiteral
}
