package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Node is a controller board that owns a set of endpoints.
type Node struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string         `json:"name"`
	Address    string         `gorm:"type:varchar(255)" json:"address,omitempty"`
	Status     string         `gorm:"type:varchar(20)" json:"status"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (n *Node) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = "offline"
	}
	return nil
}
