package repositories

import (
	"brewos-server/db"
	"brewos-server/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type telemetryPgRepository struct {
	db db.Database
}

func NewTelemetryPgRepository(database db.Database) TelemetryRepository {
	return &telemetryPgRepository{db: database}
}

// RecordObservation appends the history row and upserts the current-value
// row in one transaction. History goes first so a reader can never see a
// new current value without its reading already durable.
func (r *telemetryPgRepository) RecordObservation(current *entities.CurrentValue, reading *entities.TelemetryReading) error {
	return r.db.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reading).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint_id"}},
			UpdateAll: true,
		}).Create(current).Error
	})
}

func (r *telemetryPgRepository) GetCurrent(endpointID string) (*entities.CurrentValue, error) {
	var current entities.CurrentValue
	err := r.db.GetDB().Where("endpoint_id = ?", endpointID).First(&current).Error
	if err != nil {
		return nil, err
	}
	return &current, nil
}

func (r *telemetryPgRepository) GetAllCurrent() ([]entities.CurrentValue, error) {
	var currents []entities.CurrentValue
	err := r.db.GetDB().Find(&currents).Error
	return currents, err
}

func (r *telemetryPgRepository) GetHistory(endpointID string, limit int) ([]entities.TelemetryReading, error) {
	if limit <= 0 {
		limit = 100
	}
	var readings []entities.TelemetryReading
	err := r.db.GetDB().Where("endpoint_id = ?", endpointID).
		Order("timestamp DESC").Limit(limit).Find(&readings).Error
	return readings, err
}

func (r *telemetryPgRepository) GetLatestReading(endpointID string) (*entities.TelemetryReading, error) {
	var reading entities.TelemetryReading
	err := r.db.GetDB().Where("endpoint_id = ?", endpointID).
		Order("timestamp DESC").First(&reading).Error
	if err != nil {
		return nil, err
	}
	return &reading, nil
}
