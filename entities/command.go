package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Command types.
const (
	CommandWrite  = "write"
	CommandToggle = "toggle"
	CommandPulse  = "pulse"
)

// Command lifecycle states. Blocked is terminal and reachable only from
// admission, before the command is ever queued.
const (
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusAcked     = "acked"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusBlocked   = "blocked"
)

// Command is one ledger row per command request. The per-transition
// timestamps are the lifecycle history; a terminal row never changes again.
type Command struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"command_id"`
	CorrelationID string `gorm:"index;type:varchar(100)" json:"correlation_id,omitempty"`
	EndpointID    string `gorm:"index;type:varchar(36)" json:"endpoint_id"`
	TileID        string `gorm:"index;type:varchar(36)" json:"tile_id,omitempty"`
	CommandType   string `gorm:"type:varchar(20)" json:"command_type"`

	RequestedValue string `gorm:"type:text" json:"requested_value"`
	ActualValue    string `gorm:"type:text" json:"actual_value,omitempty"`

	Status       string `gorm:"index;type:varchar(20)" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	BlockedByInterlockID string `gorm:"type:varchar(36)" json:"blocked_by_interlock_id,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	AckedAt     *time.Time `json:"acked_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	RequestedBy string         `gorm:"type:varchar(100)" json:"requested_by"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Command) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.RequestedAt.IsZero() {
		c.RequestedAt = time.Now().UTC()
	}
	if c.RequestedBy == "" {
		c.RequestedBy = "system"
	}
	return nil
}

// IsTerminalStatus reports whether a status is final.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// CanTransition reports whether a lifecycle move is legal. Transitions are
// monotonic; no state may be skipped and terminal states are immutable.
// Failed is reachable from any non-terminal state: a queued row whose
// dispatch bookkeeping errors must still terminate.
func CanTransition(from, to string) bool {
	switch from {
	case StatusQueued:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusAcked || to == StatusFailed
	case StatusAcked:
		return to == StatusSucceeded || to == StatusFailed
	}
	return false
}

// ValidCommandType reports whether the request names a known command kind.
func ValidCommandType(t string) bool {
	switch t {
	case CommandWrite, CommandToggle, CommandPulse:
		return true
	}
	return false
}
