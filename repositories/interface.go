package repositories

import (
	"time"

	"brewos-server/entities"
)

type NodeRepository interface {
	Create(node *entities.Node) error
	GetByID(id string) (*entities.Node, error)
	GetAll() ([]entities.Node, error)
	Update(node *entities.Node) error
	UpdateLastSeen(id string, t time.Time) error
}

type EndpointRepository interface {
	Create(endpoint *entities.Endpoint) error
	GetByID(id string) (*entities.Endpoint, error)
	GetAll() ([]entities.Endpoint, error)
	GetByNodeID(nodeID string) ([]entities.Endpoint, error)
	Update(endpoint *entities.Endpoint) error
}

type TileRepository interface {
	Create(tile *entities.Tile) error
	GetByID(id string) (*entities.Tile, error)
	GetAll() ([]entities.Tile, error)
}

type InterlockRepository interface {
	Create(interlock *entities.Interlock) error
	GetByID(id string) (*entities.Interlock, error)
	GetAll() ([]entities.Interlock, error)
	GetActive() ([]entities.Interlock, error)
	RecordEvaluations(evals []entities.InterlockEvaluation) error
}

// CommandFilter narrows ledger list queries.
type CommandFilter struct {
	EndpointID    string
	Status        string
	CorrelationID string
	Limit         int
}

// CommandRepository is the command ledger. Transition methods enforce the
// lifecycle: moves are monotonic and terminal rows are immutable.
type CommandRepository interface {
	Create(cmd *entities.Command) error
	GetByID(id string) (*entities.Command, error)
	List(filter CommandFilter) ([]entities.Command, error)
	MarkSent(id string, at time.Time) error
	MarkAcked(id string, at time.Time) error
	MarkSucceeded(id string, actualValue string, at time.Time) error
	MarkFailed(id string, reason string, at time.Time) error
}

// TelemetryRepository owns the current-value cache row and the append-only
// history. RecordObservation writes both in one transaction, history first.
type TelemetryRepository interface {
	RecordObservation(current *entities.CurrentValue, reading *entities.TelemetryReading) error
	GetCurrent(endpointID string) (*entities.CurrentValue, error)
	GetAllCurrent() ([]entities.CurrentValue, error)
	GetHistory(endpointID string, limit int) ([]entities.TelemetryReading, error)
	GetLatestReading(endpointID string) (*entities.TelemetryReading, error)
}

type AlarmRepository interface {
	Create(alarm *entities.Alarm) error
	GetByID(id string) (*entities.Alarm, error)
	GetAll(status string) ([]entities.Alarm, error)
	Acknowledge(id, by string, at time.Time) error
}
