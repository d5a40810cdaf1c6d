package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interlock modes. Trip and permissive rules block; advisory rules are
// traced only.
const (
	ModeTrip       = "trip"
	ModePermissive = "permissive"
	ModeAdvisory   = "advisory"
)

// Interlock severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Interlock condition types.
const (
	CondProposedRange = "proposed_range" // requested value vs min/max
	CondRange         = "range"          // referenced endpoint current value vs min/max
	CondRequireLevel  = "require_level"  // referenced endpoint bool must equal required state
	CondRequireClosed = "require_closed" // referenced endpoint bool must be false
	CondRequireState  = "require_state"  // referenced endpoint value must equal required value
)

// InterlockCondition is the decoded condition payload.
type InterlockCondition struct {
	Type          string   `json:"type"`
	EndpointID    string   `json:"endpoint_id,omitempty"` // referenced endpoint for current-value checks
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	RequiredState *bool    `json:"required_state,omitempty"`
	RequiredValue *Value   `json:"required_value,omitempty"`
}

// Interlock is a safety rule that can block a command before it reaches
// hardware. Owned by safety configuration; the pipeline only reads it.
type Interlock struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string `json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Mode        string `gorm:"type:varchar(20)" json:"mode"`
	Priority    int    `gorm:"index" json:"priority"`
	Severity    string `gorm:"index;type:varchar(20)" json:"severity"`
	Active      bool   `gorm:"index" json:"active"`

	// Condition is the JSON-encoded InterlockCondition.
	Condition string `gorm:"type:text" json:"condition"`

	// Scope: JSON arrays of ids. Both empty means the rule is global.
	AffectedEndpoints string `gorm:"type:text" json:"affected_endpoints,omitempty"`
	AffectedTiles     string `gorm:"type:text" json:"affected_tiles,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (il *Interlock) BeforeCreate(tx *gorm.DB) (err error) {
	if il.ID == "" {
		il.ID = uuid.New().String()
	}
	if il.Mode == "" {
		il.Mode = ModeTrip
	}
	if il.Severity == "" {
		il.Severity = SeverityWarning
	}
	return nil
}

// ParseCondition decodes the condition column.
func (il *Interlock) ParseCondition() (InterlockCondition, error) {
	var cond InterlockCondition
	if il.Condition == "" {
		return cond, fmt.Errorf("interlock %s has no condition", il.ID)
	}
	if err := json.Unmarshal([]byte(il.Condition), &cond); err != nil {
		return cond, fmt.Errorf("interlock %s condition: %w", il.ID, err)
	}
	return cond, nil
}

// AppliesTo reports whether the rule is in scope for the target endpoint
// and tile context. Unscoped rules apply everywhere.
func (il *Interlock) AppliesTo(endpointID, tileID string) bool {
	endpoints := decodeIDList(il.AffectedEndpoints)
	tiles := decodeIDList(il.AffectedTiles)
	if len(endpoints) == 0 && len(tiles) == 0 {
		return true
	}
	for _, id := range endpoints {
		if id == endpointID {
			return true
		}
	}
	if tileID != "" {
		for _, id := range tiles {
			if id == tileID {
				return true
			}
		}
	}
	return false
}

// SeverityRank orders severities for evaluation (higher first).
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 0
	}
	return -1
}

func decodeIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

// EncodeIDList is the counterpart used by provisioning and tests.
func EncodeIDList(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	b, _ := json.Marshal(ids)
	return string(b)
}
