package entities

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags the payload slot a Value carries.
type ValueKind string

const (
	ValueKindBool   ValueKind = "bool"
	ValueKindNumber ValueKind = "number"
	ValueKindString ValueKind = "string"
	ValueKindJSON   ValueKind = "json"
)

// Value is the tagged union for command payloads and endpoint readings.
// Exactly one payload slot is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
	Raw  json.RawMessage
}

func BoolValue(b bool) Value      { return Value{Kind: ValueKindBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: ValueKindNumber, Num: n} }
func StringValue(s string) Value  { return Value{Kind: ValueKindString, Str: s} }

// ParseValue decodes a raw JSON payload into a Value, inferring the kind
// from the JSON token type. Objects and arrays land in the json slot.
func ParseValue(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("empty value payload")
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return BoolValue(b), nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return NumberValue(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return StringValue(s), nil
	}

	// must still be valid JSON (object/array)
	var probe interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Value{}, fmt.Errorf("invalid value payload: %w", err)
	}
	return Value{Kind: ValueKindJSON, Raw: append(json.RawMessage(nil), raw...)}, nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindBool:
		return json.Marshal(v.Bool)
	case ValueKindNumber:
		return json.Marshal(v.Num)
	case ValueKindString:
		return json.Marshal(v.Str)
	case ValueKindJSON:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	}
	return nil, fmt.Errorf("value has no kind")
}

func (v *Value) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Encode returns the canonical JSON string form, used for the command log
// columns.
func (v Value) Encode() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// Equal reports payload equality. JSON payloads compare byte-wise.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueKindBool:
		return v.Bool == o.Bool
	case ValueKindNumber:
		return v.Num == o.Num
	case ValueKindString:
		return v.Str == o.Str
	case ValueKindJSON:
		return string(v.Raw) == string(o.Raw)
	}
	return false
}

func (v Value) String() string { return v.Encode() }

// MatchesType reports whether the value fits an endpoint's declared value
// type. A json endpoint accepts any payload.
func (v Value) MatchesType(valueType string) bool {
	switch valueType {
	case ValueTypeBool:
		return v.Kind == ValueKindBool
	case ValueTypeInt, ValueTypeFloat:
		return v.Kind == ValueKindNumber
	case ValueTypeString:
		return v.Kind == ValueKindString
	case ValueTypeJSON:
		return true
	}
	return false
}
