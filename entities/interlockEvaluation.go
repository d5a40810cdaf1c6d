package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evaluation results.
const (
	EvalPass = "pass"
	EvalFail = "fail"
)

// InterlockEvaluation is one audit row per rule checked during a command's
// interlock evaluation, written in evaluation order.
type InterlockEvaluation struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	InterlockID string    `gorm:"index;type:varchar(36)" json:"interlock_id"`
	CommandID   string    `gorm:"index;type:varchar(36)" json:"command_id"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Sequence    int       `json:"sequence"`
	Result      string    `gorm:"type:varchar(10)" json:"result"`
	Detail      string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ev *InterlockEvaluation) BeforeCreate(tx *gorm.DB) (err error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.EvaluatedAt.IsZero() {
		ev.EvaluatedAt = time.Now().UTC()
	}
	return nil
}
