package repositories

import (
	"time"

	"brewos-server/db"
	"brewos-server/entities"
)

type alarmPgRepository struct {
	db db.Database
}

func NewAlarmPgRepository(database db.Database) AlarmRepository {
	return &alarmPgRepository{db: database}
}

func (r *alarmPgRepository) Create(alarm *entities.Alarm) error {
	return r.db.GetDB().Create(alarm).Error
}

func (r *alarmPgRepository) GetByID(id string) (*entities.Alarm, error) {
	var alarm entities.Alarm
	err := r.db.GetDB().Where("id = ?", id).First(&alarm).Error
	if err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (r *alarmPgRepository) GetAll(status string) ([]entities.Alarm, error) {
	q := r.db.GetDB().Model(&entities.Alarm{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var alarms []entities.Alarm
	err := q.Order("triggered_at DESC").Find(&alarms).Error
	return alarms, err
}

func (r *alarmPgRepository) Acknowledge(id, by string, at time.Time) error {
	return r.db.GetDB().Model(&entities.Alarm{}).
		Where("id = ? AND status = ?", id, entities.AlarmActive).
		Updates(map[string]interface{}{
			"status":          entities.AlarmAcknowledged,
			"acknowledged_by": by,
			"acknowledged_at": at,
		}).Error
}
