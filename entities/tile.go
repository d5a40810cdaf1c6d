package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tile is a logical grouping of endpoints (vessel, pump, valve). The
// pipeline only uses it for interlock scoping and alarm context.
type Tile struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string         `json:"name"`
	TileType  string         `gorm:"type:varchar(50)" json:"tile_type"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Tile) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
