package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Endpoint kinds.
const (
	KindDigitalIn  = "DI"
	KindDigitalOut = "DO"
	KindAnalogIn   = "AI"
	KindAnalogOut  = "AO"
	KindPWM        = "PWM"
	KindI2C        = "I2C"
	KindModbus     = "MODBUS"
	KindOneWire    = "1WIRE"
	KindVirtual    = "VIRTUAL"
)

// Endpoint value types.
const (
	ValueTypeBool   = "bool"
	ValueTypeInt    = "int"
	ValueTypeFloat  = "float"
	ValueTypeString = "string"
	ValueTypeJSON   = "json"
)

// Endpoint operational status.
const (
	EndpointActive   = "active"
	EndpointInactive = "inactive"
	EndpointFaulted  = "faulted"
)

// Endpoint is an addressable I/O point on a controller node. Provisioning
// creates it; the command pipeline only reads it.
type Endpoint struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	NodeID          string         `gorm:"index;type:varchar(36)" json:"node_id"`
	Channel         string         `gorm:"type:varchar(100)" json:"channel"`
	Name            string         `json:"name"`
	Kind            string         `gorm:"index;type:varchar(20)" json:"kind"`
	ValueType       string         `gorm:"type:varchar(20)" json:"value_type"`
	Status          string         `gorm:"index;type:varchar(20)" json:"status"`
	Unit            string         `gorm:"type:varchar(50)" json:"unit,omitempty"`
	RangeMin        *float64       `json:"range_min,omitempty"`
	RangeMax        *float64       `json:"range_max,omitempty"`
	PulseDurationMs int            `json:"pulse_duration_ms,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Endpoint) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EndpointActive
	}
	return nil
}

// Writable reports whether the endpoint kind accepts commands. Inputs and
// bus reads are read-only.
func (e *Endpoint) Writable() bool {
	switch e.Kind {
	case KindDigitalOut, KindAnalogOut, KindPWM, KindVirtual:
		return true
	}
	return false
}

// InRange checks a numeric value against the declared range. Endpoints
// without a declared range accept everything.
func (e *Endpoint) InRange(n float64) bool {
	if e.RangeMin != nil && n < *e.RangeMin {
		return false
	}
	if e.RangeMax != nil && n > *e.RangeMax {
		return false
	}
	return true
}
