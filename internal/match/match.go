package match

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/adelakul/retail-pulse/internal/catalog"
)

// Tier is the matching strategy that produced a candidate. Higher tiers are
// more trustworthy: Exact > Pattern > Keyword > None.
type Tier int

const (
	TierNone Tier = iota
	TierKeyword
	TierPattern
	TierExact
)

const (
	exactScore       = 1.0
	patternBaseScore = 0.8
	patternStep      = 0.01
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPattern:
		return "pattern"
	case TierKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// MarshalJSON renders the tier by name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the names written by MarshalJSON.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, tier := range []Tier{TierNone, TierKeyword, TierPattern, TierExact} {
		if tier.String() == name {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown match tier %q", name)
}

// Candidate is the result of matching one raw column against one field.
type Candidate struct {
	Field  string
	Column string
	// Index is the column's position in the input header.
	Index int
	Tier  Tier
	Score float64
	// Evidence is the alias, pattern or keyword list that fired.
	Evidence string
}

// Viable reports whether the candidate carries any evidence.
func (c Candidate) Viable() bool {
	return c.Tier != TierNone
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s <- %q (%s %.2f)", c.Field, c.Column, c.Tier, c.Score)
}

// Match scores a single raw column name against one field.
func Match(rawName string, field *catalog.FieldSpec) Candidate {
	return matchNormalized(rawName, foldName(rawName), 0, field)
}

// MatchAll scores every raw column against every catalog field. The result
// holds len(columns) × cat.Len() candidates, column-major in input order and
// catalog order within a column, including None candidates.
func MatchAll(columns []string, cat *catalog.Catalog) CandidateList {
	fields := cat.Fields()
	out := make(CandidateList, 0, len(columns)*len(fields))
	for i, col := range columns {
		name := foldName(col)
		for _, f := range fields {
			out = append(out, matchNormalized(col, name, i, f))
		}
	}
	return out
}

// folded holds the two comparison forms of a raw column name.
type folded struct {
	split   string
	unsplit string
}

func foldName(raw string) folded {
	return folded{split: catalog.Normalize(raw), unsplit: catalog.NormalizeUnsplit(raw)}
}

// is reports whether either form satisfies ok.
func (n folded) is(ok func(string) bool) bool {
	return ok(n.split) || (n.unsplit != n.split && ok(n.unsplit))
}

func matchNormalized(raw string, name folded, index int, f *catalog.FieldSpec) Candidate {
	c := Candidate{Field: f.Name, Column: raw, Index: index}
	norm := name.split
	if norm == "" {
		return c
	}

	for _, alias := range f.Aliases {
		if name.is(func(s string) bool { return s == alias }) {
			c.Tier, c.Score, c.Evidence = TierExact, exactScore, alias
			return c
		}
	}

	for i, p := range f.Patterns {
		if name.is(p.Match) {
			c.Tier = TierPattern
			c.Score = patternBaseScore - patternStep*float64(i)
			c.Evidence = p.Source
			return c
		}
	}

	if len(f.Keywords) > 0 {
		var hits []string
		for _, kw := range f.Keywords {
			if strings.Contains(norm, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			c.Tier = TierKeyword
			c.Score = float64(len(hits)) / float64(len(f.Keywords))
			c.Evidence = strings.Join(hits, ",")
		}
	}

	return c
}

// CandidateList orders candidates for greedy assignment.
type CandidateList []Candidate

// Viable returns the candidates with a tier above None, in the same order.
func (l CandidateList) Viable() CandidateList {
	out := make(CandidateList, 0, len(l))
	for _, c := range l {
		if c.Viable() {
			out = append(out, c)
		}
	}
	return out
}

// ForColumn returns the viable candidates for one input column, best first.
func (l CandidateList) ForColumn(index int, cat *catalog.Catalog) CandidateList {
	var out CandidateList
	for _, c := range l {
		if c.Index == index && c.Viable() {
			out = append(out, c)
		}
	}
	out.Rank(cat)
	return out
}

// Rank sorts the list in place by tier, then score (both descending), then
// catalog order of the field, then input order of the column.
func (l CandidateList) Rank(cat *catalog.Catalog) {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Tier != b.Tier {
			return a.Tier > b.Tier
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := cat.Position(a.Field), cat.Position(b.Field); pa != pb {
			return pa < pb
		}
		return a.Index < b.Index
	})
}
