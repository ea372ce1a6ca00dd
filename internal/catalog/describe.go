package catalog

import "math"

// FieldInfo is a JSON-safe view of a FieldSpec. Unbounded range ends are
// omitted.
type FieldInfo struct {
	Name        string   `json:"name"`
	Required    bool     `json:"required"`
	Type        DataType `json:"type"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Patterns    []string `json:"patterns,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Default     *Value   `json:"default,omitempty"`
}

// Describe returns every field in catalog order.
func (c *Catalog) Describe() []FieldInfo {
	out := make([]FieldInfo, 0, len(c.fields))
	for _, f := range c.fields {
		info := FieldInfo{
			Name:        f.Name,
			Required:    f.Required,
			Type:        f.Type,
			Description: f.Description,
			Aliases:     f.Aliases,
			Keywords:    f.Keywords,
			Default:     f.Default,
		}
		for _, p := range f.Patterns {
			info.Patterns = append(info.Patterns, p.String())
		}
		if f.Validation != nil {
			if !math.IsInf(f.Validation.Min, 0) {
				lo := f.Validation.Min
				info.Min = &lo
			}
			if !math.IsInf(f.Validation.Max, 0) {
				hi := f.Validation.Max
				info.Max = &hi
			}
		}
		out = append(out, info)
	}
	return out
}
