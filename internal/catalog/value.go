package catalog

import (
	"encoding/json"
	"strconv"
	"time"
)

// Value is a typed cell value. Exactly one of the payload fields is
// meaningful, selected by Type. Null is only used for datetimes without a
// value; the other types use their zero value as the neutral value.
type Value struct {
	Type  DataType
	Str   string
	Float float64
	Int   int64
	Time  time.Time
	Null  bool
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{Type: TypeInteger, Int: i} }

// TimeValue wraps t.
func TimeValue(t time.Time) Value { return Value{Type: TypeDatetime, Time: t} }

// Neutral returns the empty value for a type: "", 0, 0.0 or a null datetime.
func Neutral(t DataType) Value {
	switch t {
	case TypeFloat:
		return FloatValue(0)
	case TypeInteger:
		return IntValue(0)
	case TypeDatetime:
		return Value{Type: TypeDatetime, Null: true}
	default:
		return StringValue("")
	}
}

// Any returns the payload as a plain Go value suitable for database drivers.
// A null datetime becomes nil.
func (v Value) Any() any {
	switch v.Type {
	case TypeFloat:
		return v.Float
	case TypeInteger:
		return v.Int
	case TypeDatetime:
		if v.Null {
			return nil
		}
		return v.Time
	default:
		return v.Str
	}
}

// Number returns the value as a float64 for range checks.
func (v Value) Number() (float64, bool) {
	switch v.Type {
	case TypeFloat:
		return v.Float, true
	case TypeInteger:
		return float64(v.Int), true
	}
	return 0, false
}

// String formats the value for reports and failed-row files.
func (v Value) String() string {
	switch v.Type {
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeDatetime:
		if v.Null {
			return ""
		}
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 && v.Time.Nanosecond() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format(time.RFC3339)
	default:
		return v.Str
	}
}

// Equal compares two values of the same type.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.Null != o.Null {
		return false
	}
	switch v.Type {
	case TypeFloat:
		return v.Float == o.Float
	case TypeInteger:
		return v.Int == o.Int
	case TypeDatetime:
		return v.Null || v.Time.Equal(o.Time)
	default:
		return v.Str == o.Str
	}
}

// MarshalJSON renders the payload only, so API clients see plain scalars.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeFloat:
		return []byte(strconv.FormatFloat(v.Float, 'f', -1, 64)), nil
	case TypeInteger:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case TypeDatetime:
		if v.Null {
			return []byte("null"), nil
		}
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return json.Marshal(v.Str)
	}
}
