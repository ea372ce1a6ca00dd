// Package catalog holds the field knowledge base used to recognise retail
// columns: which logical fields exist, how their headers tend to be spelled,
// what type their values have and which ranges and defaults apply.
//
// A Catalog is loaded once and is read-only afterwards. It is safe to share
// between goroutines.
package catalog

import (
	"math"
)

// DataType is the declared type of a logical field.
type DataType string

const (
	TypeString   DataType = "string"
	TypeFloat    DataType = "float"
	TypeInteger  DataType = "integer"
	TypeDatetime DataType = "datetime"
)

// Valid reports whether t is one of the supported data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeFloat, TypeInteger, TypeDatetime:
		return true
	}
	return false
}

// Numeric reports whether values of this type can carry a validation range.
func (t DataType) Numeric() bool {
	return t == TypeFloat || t == TypeInteger
}

// Range is an inclusive numeric bound. A missing side is stored as an
// infinity so Contains never needs to special-case it.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// unbounded returns a range with both sides open.
func unbounded() Range {
	return Range{Min: math.Inf(-1), Max: math.Inf(1)}
}

// FieldSpec describes one logical field. Aliases and keywords are stored
// normalised (see Normalize) and patterns are compiled at load time.
//
// A FieldSpec obtained from a Catalog must not be modified.
type FieldSpec struct {
	Name        string
	Required    bool
	Description string
	Aliases     []string
	Patterns    []Pattern
	Keywords    []string
	Type        DataType
	Validation  *Range
	Default     *Value
}

// Fallback returns the value used when the field has no source data: the
// declared default, or the neutral value of the field's type.
func (f *FieldSpec) Fallback() Value {
	if f.Default != nil {
		return *f.Default
	}
	return Neutral(f.Type)
}

// Catalog is the immutable set of field specs, enumerated required fields
// first, each group in declared order.
type Catalog struct {
	fields []*FieldSpec
	index  map[string]int
}

func newCatalog(fields []*FieldSpec) *Catalog {
	c := &Catalog{
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		c.index[f.Name] = i
	}
	return c
}

// Fields returns every field spec in catalog order.
// The returned slice is a copy; the specs themselves are shared.
func (c *Catalog) Fields() []*FieldSpec {
	out := make([]*FieldSpec, len(c.fields))
	copy(out, c.fields)
	return out
}

// Field looks up a field spec by logical name.
func (c *Catalog) Field(name string) (*FieldSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.fields[i], true
}

// Position returns the catalog order of a field, or -1 if it is unknown.
func (c *Catalog) Position(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Required returns the required fields in declared order.
func (c *Catalog) Required() []*FieldSpec {
	var out []*FieldSpec
	for _, f := range c.fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the logical field names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Name
	}
	return out
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	return len(c.fields)
}
