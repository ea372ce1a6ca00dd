// Package coerce converts raw rows into canonical records using a resolved
// column mapping and the catalog's type, range and default metadata.
//
// A Validator is bound to one mapping and holds no mutable state, so rows
// may be coerced from several goroutines.
package coerce

import (
	"strings"
	"time"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// Record is one canonical output row. Values holds every catalog field.
type Record struct {
	Row    int                      `json:"row"`
	Values map[string]catalog.Value `json:"values"`
}

// Get returns the value for a logical field.
func (r Record) Get(field string) catalog.Value {
	return r.Values[field]
}

// Rejected is a row that failed coercion.
type Rejected struct {
	Row   int
	Cells []string
	Err   RowError
}

// Options configure a Validator.
type Options struct {
	// DateLayouts overrides DefaultDateLayouts.
	DateLayouts []string
	// Now anchors the two-digit year pivot. Defaults to time.Now.
	Now func() time.Time
}

// Validator coerces rows for one mapping.
type Validator struct {
	cat     *catalog.Catalog
	mapping *resolve.Mapping
	dates   *DateParser
}

// New creates a Validator for rows laid out like the header the mapping was
// resolved from.
func New(cat *catalog.Catalog, mapping *resolve.Mapping, opts Options) *Validator {
	return &Validator{
		cat:     cat,
		mapping: mapping,
		dates:   NewDateParser(opts.DateLayouts, opts.Now),
	}
}

// CoerceRow converts one raw row. The first failing field, in catalog
// order, rejects the whole row.
func (v *Validator) CoerceRow(row []string, index int) (Record, error) {
	rec := Record{Row: index, Values: make(map[string]catalog.Value, v.cat.Len())}

	for _, f := range v.cat.Fields() {
		col, mapped := v.mapping.Column(f.Name)
		if !mapped {
			if f.Required {
				return Record{}, &UnresolvedFieldError{Field: f.Name, Row: index}
			}
			rec.Values[f.Name] = f.Fallback()
			continue
		}

		var raw string
		if col < len(row) {
			raw = row[col]
		}

		val, err := v.coerceCell(f, raw, index)
		if err != nil {
			return Record{}, err
		}
		rec.Values[f.Name] = val
	}
	return rec, nil
}

// CoerceAll partitions rows into accepted records and rejected rows,
// preserving input order. Blank rows are skipped.
func (v *Validator) CoerceAll(rows [][]string) ([]Record, []Rejected) {
	var accepted []Record
	var rejected []Rejected
	for i, row := range rows {
		if IsEmptyRow(row) {
			continue
		}
		rec, err := v.CoerceRow(row, i)
		if err != nil {
			rejected = append(rejected, Rejected{Row: i, Cells: row, Err: err.(RowError)})
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted, rejected
}

func (v *Validator) coerceCell(f *catalog.FieldSpec, raw string, row int) (catalog.Value, error) {
	if CleanCell(raw) == "" {
		if f.Required {
			return catalog.Value{}, &CoercionError{Field: f.Name, Raw: raw, Row: row, Reason: "required value is empty"}
		}
		return f.Fallback(), nil
	}

	var val catalog.Value
	switch f.Type {
	case catalog.TypeFloat:
		n, err := ParseNumber(raw)
		if err != nil {
			return catalog.Value{}, &CoercionError{Field: f.Name, Raw: raw, Row: row, Reason: err.Error()}
		}
		val = catalog.FloatValue(n)
	case catalog.TypeInteger:
		n, err := ParseInteger(raw)
		if err != nil {
			return catalog.Value{}, &CoercionError{Field: f.Name, Raw: raw, Row: row, Reason: err.Error()}
		}
		val = catalog.IntValue(n)
	case catalog.TypeDatetime:
		t, err := v.dates.Parse(raw)
		if err != nil {
			return catalog.Value{}, &CoercionError{Field: f.Name, Raw: raw, Row: row, Reason: err.Error()}
		}
		val = catalog.TimeValue(t)
	default:
		val = catalog.StringValue(strings.TrimSpace(raw))
	}

	if f.Validation != nil {
		if n, ok := val.Number(); ok && !f.Validation.Contains(n) {
			return catalog.Value{}, &RangeError{
				Field: f.Name,
				Raw:   raw,
				Value: n,
				Min:   f.Validation.Min,
				Max:   f.Validation.Max,
				Row:   row,
			}
		}
	}
	return val, nil
}

// IsEmptyRow reports whether every cell is blank.
func IsEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
