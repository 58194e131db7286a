package numeric

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is a numeric field that may arrive as a JSON number or as a
// locale-formatted string (edit forms, LLM output). It is converted to
// float64 exactly once, by Float, before any arithmetic happens.
type Value struct {
	text  string
	num   float64
	isNum bool
}

// Number wraps an already numeric value.
func Number(f float64) Value { return Value{num: f, isNum: true} }

// Text wraps a raw string value.
func Text(s string) Value { return Value{text: s} }

// Float returns the numeric value, or NaN when the value is missing or does
// not parse. NaN is deliberate: it must surface in validation instead of
// being mistaken for zero.
func (v Value) Float() float64 {
	if v.isNum {
		return v.num
	}
	f, err := ParseLocale(v.text)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Raw returns the value as it was supplied. Numbers are rendered without
// trailing zeros.
func (v Value) Raw() string {
	if v.isNum && v.text == "" {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.text
}

// IsText reports whether the value was supplied as a string.
func (v Value) IsText() bool { return !v.isNum }

// UnmarshalJSON accepts a number, a string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	}
	// Keep the literal so glued digit runs such as 175848 stay inspectable.
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = Value{text: string(data), num: f, isNum: true}
	return nil
}

// MarshalJSON encodes the value as a number, or null when it does not parse.
func (v Value) MarshalJSON() ([]byte, error) {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}
