package coerce

import (
	"fmt"
	"strconv"
)

// Row error kinds, as reported in run summaries.
const (
	KindCoercion   = "coercion"
	KindRange      = "range"
	KindUnresolved = "unresolved"
)

// RowError is implemented by every error that rejects a single row.
type RowError interface {
	error
	Kind() string
	FieldName() string
	RawValue() string
	RowIndex() int
}

// CoercionError is returned when a cell cannot be converted to its field's type.
type CoercionError struct {
	Field  string
	Raw    string
	Row    int
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("row %d: %s: cannot convert %q: %s", e.Row, e.Field, e.Raw, e.Reason)
}

func (e *CoercionError) Kind() string      { return KindCoercion }
func (e *CoercionError) FieldName() string { return e.Field }
func (e *CoercionError) RawValue() string  { return e.Raw }
func (e *CoercionError) RowIndex() int     { return e.Row }

// RangeError is returned when a numeric value falls outside the field's
// validation range. Values are never clamped.
type RangeError struct {
	Field string
	// Raw is the cell as it appeared in the source.
	Raw   string
	Value float64
	Min   float64
	Max   float64
	Row   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("row %d: %s: value %s outside [%s, %s]",
		e.Row, e.Field, formatFloat(e.Value), formatFloat(e.Min), formatFloat(e.Max))
}

func (e *RangeError) Kind() string      { return KindRange }
func (e *RangeError) FieldName() string { return e.Field }
func (e *RangeError) RowIndex() int     { return e.Row }

// RawValue returns the source cell, or the parsed value when the cell is
// unknown.
func (e *RangeError) RawValue() string {
	if e.Raw != "" {
		return e.Raw
	}
	return formatFloat(e.Value)
}

// UnresolvedFieldError is returned for every row when a required field has
// no source column and the run chose to proceed anyway.
type UnresolvedFieldError struct {
	Field string
	Row   int
}

func (e *UnresolvedFieldError) Error() string {
	return fmt.Sprintf("row %d: %s: required field has no source column", e.Row, e.Field)
}

func (e *UnresolvedFieldError) Kind() string      { return KindUnresolved }
func (e *UnresolvedFieldError) FieldName() string { return e.Field }
func (e *UnresolvedFieldError) RawValue() string  { return "" }
func (e *UnresolvedFieldError) RowIndex() int     { return e.Row }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
