package entities

import (
	"encoding/json"
	"time"
)

// Reading quality flags.
const (
	QualityGood      = "good"
	QualityUncertain = "uncertain"
	QualityBad       = "bad"
)

// Reading sources.
const (
	SourceCommand  = "command"
	SourceHardware = "hardware"
	SourceManual   = "manual"
	SourceSim      = "sim"
)

// CurrentValue is the single-row-per-endpoint fast-read projection of the
// latest known value. Overwritten on every successful command or telemetry
// push; never holds history.
type CurrentValue struct {
	EndpointID string    `gorm:"primaryKey;type:varchar(36)" json:"endpoint_id"`
	Timestamp  time.Time `json:"timestamp"`

	ValueBool   *bool    `json:"value_bool,omitempty"`
	ValueNum    *float64 `json:"value_num,omitempty"`
	ValueString *string  `json:"value_string,omitempty"`
	ValueJSON   string   `gorm:"type:text" json:"value_json,omitempty"`

	Quality   string    `gorm:"type:varchar(20)" json:"quality"`
	Source    string    `gorm:"type:varchar(20)" json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetValue fills the typed column matching the value kind, clearing the
// others.
func (cv *CurrentValue) SetValue(v Value) {
	cv.ValueBool = nil
	cv.ValueNum = nil
	cv.ValueString = nil
	cv.ValueJSON = ""
	switch v.Kind {
	case ValueKindBool:
		b := v.Bool
		cv.ValueBool = &b
	case ValueKindNumber:
		n := v.Num
		cv.ValueNum = &n
	case ValueKindString:
		s := v.Str
		cv.ValueString = &s
	case ValueKindJSON:
		cv.ValueJSON = string(v.Raw)
	}
}

// Value reconstructs the tagged union from the typed columns.
func (cv *CurrentValue) Value() (Value, bool) {
	switch {
	case cv.ValueBool != nil:
		return BoolValue(*cv.ValueBool), true
	case cv.ValueNum != nil:
		return NumberValue(*cv.ValueNum), true
	case cv.ValueString != nil:
		return StringValue(*cv.ValueString), true
	case cv.ValueJSON != "":
		return Value{Kind: ValueKindJSON, Raw: json.RawMessage(cv.ValueJSON)}, true
	}
	return Value{}, false
}
