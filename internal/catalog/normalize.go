package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a column name or catalog term into its comparison form:
//
//  1. Split camelCase and acronym boundaries ("QtySold" -> "Qty Sold")
//  2. Lower-case and strip diacritics ("Désignation" -> "designation")
//  3. Collapse every run of non-alphanumeric characters to one space
//  4. Trim
//
// Raw names and every alias, keyword and pattern fragment go through the same
// function, so equality and substring tests are case- and punctuation-blind.
func Normalize(s string) string {
	return fold(splitCamel(s))
}

// NormalizeUnsplit is Normalize without the camelCase split, so
// "SalesAmount" folds to "salesamount". Matchers compare both forms so that
// aliases written without separators still match camelCase headers.
func NormalizeUnsplit(s string) string {
	return fold(s)
}

func fold(s string) string {
	s = foldDiacritics(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Tokens splits a normalised name into its words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// foldDiacritics removes combining marks after canonical decomposition.
func foldDiacritics(s string) string {
	if isASCII(s) {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// splitCamel inserts a space at lower->upper transitions and at the end of
// an acronym followed by a lower-case letter ("OrderID" -> "Order ID",
// "SKUCode" -> "SKU Code").
func splitCamel(s string) string {
	rs := []rune(s)
	if len(rs) < 2 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
