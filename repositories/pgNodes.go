package repositories

import (
	"time"

	"brewos-server/db"
	"brewos-server/entities"
)

type nodePgRepository struct {
	db db.Database
}

func NewNodePgRepository(database db.Database) NodeRepository {
	return &nodePgRepository{db: database}
}

func (r *nodePgRepository) Create(node *entities.Node) error {
	return r.db.GetDB().Create(node).Error
}

func (r *nodePgRepository) GetByID(id string) (*entities.Node, error) {
	var node entities.Node
	err := r.db.GetDB().Where("id = ?", id).First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *nodePgRepository) GetAll() ([]entities.Node, error) {
	var nodes []entities.Node
	err := r.db.GetDB().Find(&nodes).Error
	return nodes, err
}

func (r *nodePgRepository) Update(node *entities.Node) error {
	return r.db.GetDB().Save(node).Error
}

func (r *nodePgRepository) UpdateLastSeen(id string, t time.Time) error {
	return r.db.GetDB().Model(&entities.Node{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_seen_at": t,
		"status":       "online",
	}).Error
}
