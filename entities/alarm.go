package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Alarm statuses. The pipeline only creates alarms; clearing belongs to
// alarm management.
const (
	AlarmActive       = "active"
	AlarmAcknowledged = "acknowledged"
	AlarmCleared      = "cleared"
)

// Alarm records a blocked command or an out-of-band safety event.
type Alarm struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EndpointID  string `gorm:"index;type:varchar(36)" json:"endpoint_id,omitempty"`
	TileID      string `gorm:"index;type:varchar(36)" json:"tile_id,omitempty"`
	InterlockID string `gorm:"index;type:varchar(36)" json:"interlock_id,omitempty"`
	CommandID   string `gorm:"index;type:varchar(36)" json:"command_id,omitempty"`

	Severity string `gorm:"index;type:varchar(20)" json:"severity"`
	Message  string `gorm:"type:text" json:"message"`
	Status   string `gorm:"index;type:varchar(20)" json:"status"`

	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedBy string     `gorm:"type:varchar(100)" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Alarm) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AlarmActive
	}
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = time.Now().UTC()
	}
	return nil
}
