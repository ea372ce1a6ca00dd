package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Error reports every problem found in a catalog document.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Problems) == 1 {
		return "catalog invalid: " + e.Problems[0]
	}
	return "catalog invalid:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// document is the on-disk shape of a catalog. JSON documents decode through
// the same path since YAML is a superset.
type document struct {
	RequiredFields  []string              `yaml:"required_fields"`
	OptionalFields  []string              `yaml:"optional_fields"`
	FieldMappings   map[string]mappingDoc `yaml:"field_mappings"`
	DataTypes       map[string]string     `yaml:"data_types"`
	ValidationRules map[string]ruleDoc    `yaml:"validation_rules"`
	DefaultValues   map[string]any        `yaml:"default_values"`
}

type mappingDoc struct {
	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases"`
	Patterns    []string `yaml:"patterns"`
	Keywords    []string `yaml:"keywords"`
}

type ruleDoc struct {
	MinValue *float64 `yaml:"min_value"`
	MaxValue *float64 `yaml:"max_value"`
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// Load parses a catalog document from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. All structural problems
// are collected into a single *Error.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Problems: []string{"document is empty"}}
		}
		return nil, &Error{Problems: []string{err.Error()}}
	}
	return build(&doc)
}

func build(doc *document) (*Catalog, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(doc.RequiredFields)+len(doc.OptionalFields) == 0 {
		addf("no fields declared")
	}

	listed := make(map[string]bool)
	var fields []*FieldSpec

	declare := func(name string, required bool) {
		if name == "" {
			addf("empty field name")
			return
		}
		if listed[name] {
			addf("field %q declared more than once", name)
			return
		}
		listed[name] = true

		m, hasMapping := doc.FieldMappings[name]
		dt, hasType := doc.DataTypes[name]
		if !hasMapping {
			addf("field %q has no field_mappings entry", name)
		}
		if !hasType {
			addf("field %q has no data_types entry", name)
		}
		if !hasMapping || !hasType {
			return
		}

		f := &FieldSpec{
			Name:        name,
			Required:    required,
			Description: m.Description,
			Type:        DataType(strings.ToLower(strings.TrimSpace(dt))),
		}
		if !f.Type.Valid() {
			addf("field %q has unknown data type %q", name, dt)
			return
		}

		f.Aliases = normalizeTerms(m.Aliases)
		f.Keywords = normalizeTerms(m.Keywords)
		for _, src := range m.Patterns {
			p, err := CompilePattern(src)
			if err != nil {
				addf("field %q: %v", name, err)
				continue
			}
			f.Patterns = append(f.Patterns, p)
		}

		if rule, ok := doc.ValidationRules[name]; ok {
			if !f.Type.Numeric() {
				addf("field %q: validation range on non-numeric type %s", name, f.Type)
			} else {
				r := unbounded()
				if rule.MinValue != nil {
					r.Min = *rule.MinValue
				}
				if rule.MaxValue != nil {
					r.Max = *rule.MaxValue
				}
				if r.Min > r.Max {
					addf("field %q: min_value %v greater than max_value %v", name, r.Min, r.Max)
				} else {
					f.Validation = &r
				}
			}
		}

		if raw, ok := doc.DefaultValues[name]; ok {
			if required {
				addf("required field %q must not declare a default value", name)
			} else if v, err := convertDefault(f.Type, raw); err != nil {
				addf("field %q: default value: %v", name, err)
			} else if f.Validation != nil && !defaultInRange(v, *f.Validation) {
				addf("field %q: default value %s outside [%v, %v]", name, v, f.Validation.Min, f.Validation.Max)
			} else {
				f.Default = &v
			}
		}

		fields = append(fields, f)
	}

	for _, name := range doc.RequiredFields {
		declare(name, true)
	}
	for _, name := range doc.OptionalFields {
		declare(name, false)
	}

	for _, name := range sortedKeys(doc.FieldMappings) {
		if !listed[name] {
			addf("field_mappings entry %q is not a declared field", name)
		}
	}
	for _, name := range sortedKeys(doc.DataTypes) {
		if !listed[name] {
			addf("data_types entry %q is not a declared field", name)
		}
	}
	for _, name := range sortedKeys(doc.ValidationRules) {
		if !listed[name] {
			addf("validation_rules entry %q is not a declared field", name)
		}
	}
	for _, name := range sortedKeys(doc.DefaultValues) {
		if !listed[name] {
			addf("default_values entry %q is not a declared field", name)
		}
	}

	if len(problems) > 0 {
		return nil, &Error{Problems: problems}
	}
	return newCatalog(fields), nil
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		n := Normalize(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func defaultInRange(v Value, r Range) bool {
	n, ok := v.Number()
	return !ok || r.Contains(n)
}

// convertDefault turns a decoded YAML scalar into a Value of type t.
func convertDefault(t DataType, raw any) (Value, error) {
	if raw == nil {
		return Neutral(t), nil
	}

	switch t {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return StringValue(v), nil
		case int, int64, float64, bool:
			return StringValue(fmt.Sprint(v)), nil
		}
	case TypeFloat:
		switch v := raw.(type) {
		case int:
			return FloatValue(float64(v)), nil
		case int64:
			return FloatValue(float64(v)), nil
		case float64:
			return FloatValue(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, fmt.Errorf("%q is not a number", v)
			}
			return FloatValue(f), nil
		}
	case TypeInteger:
		switch v := raw.(type) {
		case int:
			return IntValue(int64(v)), nil
		case int64:
			return IntValue(v), nil
		case float64:
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return Value{}, fmt.Errorf("%v is not an integer", v)
			}
			return IntValue(int64(v)), nil
		case string:
			i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("%q is not an integer", v)
			}
			return IntValue(i), nil
		}
	case TypeDatetime:
		switch v := raw.(type) {
		case time.Time:
			return TimeValue(v), nil
		case string:
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if ts, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return TimeValue(ts), nil
				}
			}
			return Value{}, fmt.Errorf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date", v)
		}
	}
	return Value{}, fmt.Errorf("%v (%T) cannot be used as %s", raw, raw, t)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
