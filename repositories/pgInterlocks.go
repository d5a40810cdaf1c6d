package repositories

import (
	"brewos-server/db"
	"brewos-server/entities"
)

type interlockPgRepository struct {
	db db.Database
}

func NewInterlockPgRepository(database db.Database) InterlockRepository {
	return &interlockPgRepository{db: database}
}

func (r *interlockPgRepository) Create(interlock *entities.Interlock) error {
	return r.db.GetDB().Create(interlock).Error
}

func (r *interlockPgRepository) GetByID(id string) (*entities.Interlock, error) {
	var interlock entities.Interlock
	err := r.db.GetDB().Where("id = ?", id).First(&interlock).Error
	if err != nil {
		return nil, err
	}
	return &interlock, nil
}

func (r *interlockPgRepository) GetAll() ([]entities.Interlock, error) {
	var interlocks []entities.Interlock
	err := r.db.GetDB().Find(&interlocks).Error
	return interlocks, err
}

func (r *interlockPgRepository) GetActive() ([]entities.Interlock, error) {
	var interlocks []entities.Interlock
	err := r.db.GetDB().Where("active = ?", true).Find(&interlocks).Error
	return interlocks, err
}

func (r *interlockPgRepository) RecordEvaluations(evals []entities.InterlockEvaluation) error {
	if len(evals) == 0 {
		return nil
	}
	return r.db.GetDB().Create(&evals).Error
}
