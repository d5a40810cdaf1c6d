package repositories

import (
	"errors"
	"time"

	"brewos-server/db"
	"brewos-server/entities"

	"gorm.io/gorm"
)

// ErrTransitionConflict means the ledger row was not in the expected state
// for the requested move. Terminal rows always conflict.
var ErrTransitionConflict = errors.New("illegal command transition")

// ErrEmptyReason guards the invariant that failed and blocked rows carry a
// non-empty reason.
var ErrEmptyReason = errors.New("failed/blocked command requires a reason")

type commandPgRepository struct {
	db db.Database
}

func NewCommandPgRepository(database db.Database) CommandRepository {
	return &commandPgRepository{db: database}
}

func (r *commandPgRepository) Create(cmd *entities.Command) error {
	switch cmd.Status {
	case entities.StatusQueued:
	case entities.StatusBlocked:
		if cmd.ErrorMessage == "" {
			return ErrEmptyReason
		}
	default:
		return ErrTransitionConflict
	}
	return r.db.GetDB().Create(cmd).Error
}

func (r *commandPgRepository) GetByID(id string) (*entities.Command, error) {
	var cmd entities.Command
	err := r.db.GetDB().Where("id = ?", id).First(&cmd).Error
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *commandPgRepository) List(filter CommandFilter) ([]entities.Command, error) {
	q := r.db.GetDB().Model(&entities.Command{})
	if filter.EndpointID != "" {
		q = q.Where("endpoint_id = ?", filter.EndpointID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CorrelationID != "" {
		q = q.Where("correlation_id = ?", filter.CorrelationID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var cmds []entities.Command
	err := q.Order("requested_at DESC").Limit(limit).Find(&cmds).Error
	return cmds, err
}

func (r *commandPgRepository) MarkSent(id string, at time.Time) error {
	return r.transition(id, []string{entities.StatusQueued}, map[string]interface{}{
		"status":  entities.StatusSent,
		"sent_at": at,
	})
}

func (r *commandPgRepository) MarkAcked(id string, at time.Time) error {
	return r.transition(id, []string{entities.StatusSent}, map[string]interface{}{
		"status":   entities.StatusAcked,
		"acked_at": at,
	})
}

func (r *commandPgRepository) MarkSucceeded(id string, actualValue string, at time.Time) error {
	return r.transition(id, []string{entities.StatusAcked}, map[string]interface{}{
		"status":       entities.StatusSucceeded,
		"actual_value": actualValue,
		"completed_at": at,
	})
}

func (r *commandPgRepository) MarkFailed(id string, reason string, at time.Time) error {
	if reason == "" {
		return ErrEmptyReason
	}
	return r.transition(id, []string{entities.StatusQueued, entities.StatusSent, entities.StatusAcked}, map[string]interface{}{
		"status":        entities.StatusFailed,
		"error_message": reason,
		"completed_at":  at,
	})
}

// transition performs a guarded update: the row must currently be in one of
// the allowed source states, otherwise the move is rejected. The status
// predicate in the WHERE clause keeps concurrent writers from racing a row
// past a terminal state.
func (r *commandPgRepository) transition(id string, from []string, updates map[string]interface{}) error {
	res := r.db.GetDB().Model(&entities.Command{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cmd entities.Command
		if err := r.db.GetDB().Where("id = ?", id).First(&cmd).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}
		return ErrTransitionConflict
	}
	return nil
}
