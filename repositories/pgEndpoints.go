package repositories

import (
	"brewos-server/db"
	"brewos-server/entities"
)

type endpointPgRepository struct {
	db db.Database
}

func NewEndpointPgRepository(database db.Database) EndpointRepository {
	return &endpointPgRepository{db: database}
}

func (r *endpointPgRepository) Create(endpoint *entities.Endpoint) error {
	return r.db.GetDB().Create(endpoint).Error
}

func (r *endpointPgRepository) GetByID(id string) (*entities.Endpoint, error) {
	var endpoint entities.Endpoint
	err := r.db.GetDB().Where("id = ?", id).First(&endpoint).Error
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *endpointPgRepository) GetAll() ([]entities.Endpoint, error) {
	var endpoints []entities.Endpoint
	err := r.db.GetDB().Find(&endpoints).Error
	return endpoints, err
}

func (r *endpointPgRepository) GetByNodeID(nodeID string) ([]entities.Endpoint, error) {
	var endpoints []entities.Endpoint
	err := r.db.GetDB().Where("node_id = ?", nodeID).Find(&endpoints).Error
	return endpoints, err
}

func (r *endpointPgRepository) Update(endpoint *entities.Endpoint) error {
	return r.db.GetDB().Save(endpoint).Error
}

type tilePgRepository struct {
	db db.Database
}

func NewTilePgRepository(database db.Database) TileRepository {
	return &tilePgRepository{db: database}
}

func (r *tilePgRepository) Create(tile *entities.Tile) error {
	return r.db.GetDB().Create(tile).Error
}

func (r *tilePgRepository) GetByID(id string) (*entities.Tile, error) {
	var tile entities.Tile
	err := r.db.GetDB().Where("id = ?", id).First(&tile).Error
	if err != nil {
		return nil, err
	}
	return &tile, nil
}

func (r *tilePgRepository) GetAll() ([]entities.Tile, error) {
	var tiles []entities.Tile
	err := r.db.GetDB().Find(&tiles).Error
	return tiles, err
}
