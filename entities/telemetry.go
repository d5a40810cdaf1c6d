package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelemetryReading is the append-only history of observed endpoint values.
// The latest row per endpoint always corresponds to CurrentValue.
type TelemetryReading struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EndpointID string    `gorm:"index:idx_endpoint_ts;type:varchar(36)" json:"endpoint_id"`
	TileID     string    `gorm:"index;type:varchar(36)" json:"tile_id,omitempty"`
	Timestamp  time.Time `gorm:"index:idx_endpoint_ts" json:"timestamp"`

	ValueBool   *bool    `json:"value_bool,omitempty"`
	ValueNum    *float64 `json:"value_num,omitempty"`
	ValueString *string  `json:"value_string,omitempty"`
	ValueJSON   string   `gorm:"type:text" json:"value_json,omitempty"`

	Quality   string    `gorm:"type:varchar(20)" json:"quality"`
	Source    string    `gorm:"type:varchar(20)" json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

func (tr *TelemetryReading) BeforeCreate(tx *gorm.DB) (err error) {
	if tr.ID == "" {
		tr.ID = uuid.New().String()
	}
	return nil
}

// SetValue fills the typed column matching the value kind.
func (tr *TelemetryReading) SetValue(v Value) {
	switch v.Kind {
	case ValueKindBool:
		b := v.Bool
		tr.ValueBool = &b
	case ValueKindNumber:
		n := v.Num
		tr.ValueNum = &n
	case ValueKindString:
		s := v.Str
		tr.ValueString = &s
	case ValueKindJSON:
		tr.ValueJSON = string(v.Raw)
	}
}

// Value reconstructs the tagged union from the typed columns.
func (tr *TelemetryReading) Value() (Value, bool) {
	switch {
	case tr.ValueBool != nil:
		return BoolValue(*tr.ValueBool), true
	case tr.ValueNum != nil:
		return NumberValue(*tr.ValueNum), true
	case tr.ValueString != nil:
		return StringValue(*tr.ValueString), true
	case tr.ValueJSON != "":
		return Value{Kind: ValueKindJSON, Raw: json.RawMessage(tr.ValueJSON)}, true
	}
	return Value{}, false
}
