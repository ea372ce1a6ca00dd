// Package resolve turns per-column match candidates into a single,
// injective column mapping.
//
// Resolution is global and greedy: every viable candidate is ranked by
// (tier, score, catalog order, input order) and assigned if neither its
// field nor its column is already claimed. Resolution never fails on
// missing fields; it reports them so the caller can apply a policy.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/match"
)

// DefaultLowConfidence is the score under which an assignment is flagged by
// Review.
const DefaultLowConfidence = 0.8

// TierOverride marks an assignment pinned by the caller.
const TierOverride = "override"

// Options tune resolution. The zero value gives plain greedy resolution.
type Options struct {
	// Overrides pins logical field -> raw column name before the greedy pass.
	Overrides map[string]string
	// MinScore drops candidates scoring below it. Zero disables the floor.
	MinScore float64
}

// Assignment is one resolved field.
type Assignment struct {
	Field    string     `json:"field"`
	Column   string     `json:"column"`
	Index    int        `json:"index"`
	Tier     match.Tier `json:"tier"`
	Score    float64    `json:"score"`
	Evidence string     `json:"evidence,omitempty"`
	Pinned   bool       `json:"pinned,omitempty"`
}

// Mapping is the outcome of resolving one header.
type Mapping struct {
	// Assignments are in catalog order.
	Assignments []Assignment `json:"assignments"`
	// UnresolvedRequired lists required fields with no column, in catalog order.
	UnresolvedRequired []string `json:"unresolved_required"`
	// UnmappedColumns lists raw columns no field claimed, in input order.
	UnmappedColumns []string `json:"unmapped_columns"`

	byField map[string]int
}

// Column returns the input position assigned to a field.
func (m *Mapping) Column(field string) (index int, ok bool) {
	i, ok := m.byField[field]
	if !ok {
		return -1, false
	}
	return m.Assignments[i].Index, true
}

// Assignment returns the assignment for a field.
func (m *Mapping) Assignment(field string) (Assignment, bool) {
	i, ok := m.byField[field]
	if !ok {
		return Assignment{}, false
	}
	return m.Assignments[i], true
}

// Fields returns field -> raw column name.
func (m *Mapping) Fields() map[string]string {
	out := make(map[string]string, len(m.Assignments))
	for _, a := range m.Assignments {
		out[a.Field] = a.Column
	}
	return out
}

// Complete reports whether every required field was resolved.
func (m *Mapping) Complete() bool {
	return len(m.UnresolvedRequired) == 0
}

// Review lists human-readable issues with the mapping: missing required
// fields and assignments scoring below threshold. Pinned assignments are
// never flagged.
func (m *Mapping) Review(threshold float64) []string {
	var issues []string
	if len(m.UnresolvedRequired) > 0 {
		issues = append(issues, "missing required fields: "+strings.Join(m.UnresolvedRequired, ", "))
	}

	var low []string
	for _, a := range m.Assignments {
		if !a.Pinned && a.Score < threshold {
			low = append(low, fmt.Sprintf("%s <- %q (%.2f)", a.Field, a.Column, a.Score))
		}
	}
	if len(low) > 0 {
		issues = append(issues, "low confidence mappings: "+strings.Join(low, "; "))
	}
	return issues
}

// OverrideError reports an override that cannot be applied.
type OverrideError struct {
	Field  string
	Column string
	Reason string
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("override %s=%q: %s", e.Field, e.Column, e.Reason)
}

// Resolve maps raw column names to catalog fields.
func Resolve(columns []string, cat *catalog.Catalog) *Mapping {
	m, _ := ResolveWithOptions(columns, cat, Options{})
	return m
}

// ResolveWithOptions is Resolve with overrides and a score floor. It fails
// only when an override is invalid.
func ResolveWithOptions(columns []string, cat *catalog.Catalog, opts Options) (*Mapping, error) {
	claimedField := make(map[string]bool)
	claimedCol := make(map[int]bool)
	var assigned []Assignment

	pinned, err := applyOverrides(columns, cat, opts.Overrides)
	if err != nil {
		return nil, err
	}
	for _, a := range pinned {
		claimedField[a.Field] = true
		claimedCol[a.Index] = true
		assigned = append(assigned, a)
	}

	candidates := match.MatchAll(columns, cat).Viable()
	candidates.Rank(cat)

	for _, c := range candidates {
		if c.Score < opts.MinScore {
			continue
		}
		if claimedField[c.Field] || claimedCol[c.Index] {
			continue
		}
		claimedField[c.Field] = true
		claimedCol[c.Index] = true
		assigned = append(assigned, Assignment{
			Field:    c.Field,
			Column:   c.Column,
			Index:    c.Index,
			Tier:     c.Tier,
			Score:    c.Score,
			Evidence: c.Evidence,
		})
	}

	return newMapping(columns, cat, assigned), nil
}

func applyOverrides(columns []string, cat *catalog.Catalog, overrides map[string]string) ([]Assignment, error) {
	if len(overrides) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(overrides))
	for f := range overrides {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	used := make(map[int]string)
	out := make([]Assignment, 0, len(fields))
	for _, f := range fields {
		col := overrides[f]
		if _, ok := cat.Field(f); !ok {
			return nil, &OverrideError{Field: f, Column: col, Reason: "unknown field"}
		}
		idx := findColumn(columns, col)
		if idx < 0 {
			return nil, &OverrideError{Field: f, Column: col, Reason: "column not present in input"}
		}
		if other, dup := used[idx]; dup {
			return nil, &OverrideError{Field: f, Column: col, Reason: "column already pinned to " + other}
		}
		used[idx] = f
		out = append(out, Assignment{
			Field:    f,
			Column:   columns[idx],
			Index:    idx,
			Tier:     match.TierExact,
			Score:    1.0,
			Evidence: TierOverride,
			Pinned:   true,
		})
	}
	return out, nil
}

// findColumn locates an override target, first verbatim, then by normalised
// name. Earlier columns win.
func findColumn(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	norm := catalog.Normalize(name)
	if norm == "" {
		return -1
	}
	for i, c := range columns {
		if catalog.Normalize(c) == norm {
			return i
		}
	}
	return -1
}

func newMapping(columns []string, cat *catalog.Catalog, assigned []Assignment) *Mapping {
	sort.SliceStable(assigned, func(i, j int) bool {
		return cat.Position(assigned[i].Field) < cat.Position(assigned[j].Field)
	})

	m := &Mapping{
		Assignments: assigned,
		byField:     make(map[string]int, len(assigned)),
	}
	claimed := make(map[int]bool, len(assigned))
	for i, a := range assigned {
		m.byField[a.Field] = i
		claimed[a.Index] = true
	}

	m.UnresolvedRequired = []string{}
	for _, f := range cat.Required() {
		if _, ok := m.byField[f.Name]; !ok {
			m.UnresolvedRequired = append(m.UnresolvedRequired, f.Name)
		}
	}

	m.UnmappedColumns = []string{}
	for i, c := range columns {
		if !claimed[i] {
			m.UnmappedColumns = append(m.UnmappedColumns, c)
		}
	}
	return m
}
