package usecases

import (
	"sync"
	"time"

	"brewos-server/entities"
	"brewos-server/repositories"

	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the persistence semantics the
// pipeline relies on, including guarded ledger transitions.

type fakeEndpointRepo struct {
	mu        sync.Mutex
	endpoints map[string]entities.Endpoint
}

func newFakeEndpointRepo(eps ...entities.Endpoint) *fakeEndpointRepo {
	r := &fakeEndpointRepo{endpoints: make(map[string]entities.Endpoint)}
	for _, ep := range eps {
		r.endpoints[ep.ID] = ep
	}
	return r
}

func (r *fakeEndpointRepo) Create(ep *entities.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ep.ID] = *ep
	return nil
}

func (r *fakeEndpointRepo) GetByID(id string) (*entities.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoints[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := ep
	return &out, nil
}

func (r *fakeEndpointRepo) GetAll() ([]entities.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entities.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		all = append(all, ep)
	}
	return all, nil
}

func (r *fakeEndpointRepo) GetByNodeID(nodeID string) ([]entities.Endpoint, error) {
	all, _ := r.GetAll()
	var out []entities.Endpoint
	for _, ep := range all {
		if ep.NodeID == nodeID {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (r *fakeEndpointRepo) Update(ep *entities.Endpoint) error {
	return r.Create(ep)
}

type fakeCommandRepo struct {
	mu      sync.Mutex
	rows    map[string]entities.Command
	sentErr error
}

func newFakeCommandRepo() *fakeCommandRepo {
	return &fakeCommandRepo{rows: make(map[string]entities.Command)}
}

func (r *fakeCommandRepo) Create(cmd *entities.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cmd.Status != entities.StatusQueued && cmd.Status != entities.StatusBlocked {
		return repositories.ErrTransitionConflict
	}
	r.rows[cmd.ID] = *cmd
	return nil
}

func (r *fakeCommandRepo) GetByID(id string) (*entities.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cmd
	return &out, nil
}

func (r *fakeCommandRepo) List(filter repositories.CommandFilter) ([]entities.Command, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Command
	for _, cmd := range r.rows {
		if filter.EndpointID != "" && cmd.EndpointID != filter.EndpointID {
			continue
		}
		if filter.Status != "" && cmd.Status != filter.Status {
			continue
		}
		if filter.CorrelationID != "" && cmd.CorrelationID != filter.CorrelationID {
			continue
		}
		out = append(out, cmd)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeCommandRepo) transition(id, to string, mutate func(*entities.Command)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !entities.CanTransition(cmd.Status, to) {
		return repositories.ErrTransitionConflict
	}
	cmd.Status = to
	mutate(&cmd)
	r.rows[id] = cmd
	return nil
}

func (r *fakeCommandRepo) MarkSent(id string, at time.Time) error {
	if r.sentErr != nil {
		return r.sentErr
	}
	return r.transition(id, entities.StatusSent, func(c *entities.Command) { c.SentAt = &at })
}

func (r *fakeCommandRepo) MarkAcked(id string, at time.Time) error {
	return r.transition(id, entities.StatusAcked, func(c *entities.Command) { c.AckedAt = &at })
}

func (r *fakeCommandRepo) MarkSucceeded(id string, actualValue string, at time.Time) error {
	return r.transition(id, entities.StatusSucceeded, func(c *entities.Command) {
		c.ActualValue = actualValue
		c.CompletedAt = &at
	})
}

func (r *fakeCommandRepo) MarkFailed(id string, reason string, at time.Time) error {
	return r.transition(id, entities.StatusFailed, func(c *entities.Command) {
		c.ErrorMessage = reason
		c.CompletedAt = &at
	})
}

type fakeInterlockRepo struct {
	mu        sync.Mutex
	rules     []entities.Interlock
	evals     []entities.InterlockEvaluation
	activeErr error
	recordErr error
}

func newFakeInterlockRepo(rules ...entities.Interlock) *fakeInterlockRepo {
	return &fakeInterlockRepo{rules: rules}
}

func (r *fakeInterlockRepo) Create(il *entities.Interlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, *il)
	return nil
}

func (r *fakeInterlockRepo) GetByID(id string) (*entities.Interlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			out := rule
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInterlockRepo) GetAll() ([]entities.Interlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Interlock(nil), r.rules...), nil
}

func (r *fakeInterlockRepo) GetActive() ([]entities.Interlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeErr != nil {
		return nil, r.activeErr
	}
	var out []entities.Interlock
	for _, rule := range r.rules {
		if rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeInterlockRepo) RecordEvaluations(evals []entities.InterlockEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.evals = append(r.evals, evals...)
	return nil
}

func (r *fakeInterlockRepo) recorded() []entities.InterlockEvaluation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.InterlockEvaluation(nil), r.evals...)
}

type fakeTelemetryRepo struct {
	mu        sync.Mutex
	current   map[string]entities.CurrentValue
	history   []entities.TelemetryReading
	recordErr error
}

func newFakeTelemetryRepo() *fakeTelemetryRepo {
	return &fakeTelemetryRepo{current: make(map[string]entities.CurrentValue)}
}

func (r *fakeTelemetryRepo) setCurrent(endpointID string, v entities.Value, ts time.Time) {
	cv := entities.CurrentValue{EndpointID: endpointID, Timestamp: ts, Quality: entities.QualityGood}
	cv.SetValue(v)
	r.mu.Lock()
	r.current[endpointID] = cv
	r.mu.Unlock()
}

func (r *fakeTelemetryRepo) RecordObservation(current *entities.CurrentValue, reading *entities.TelemetryReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	// history first, then the current-value upsert
	r.history = append(r.history, *reading)
	r.current[current.EndpointID] = *current
	return nil
}

func (r *fakeTelemetryRepo) GetCurrent(endpointID string) (*entities.CurrentValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cv, ok := r.current[endpointID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cv
	return &out, nil
}

func (r *fakeTelemetryRepo) GetAllCurrent() ([]entities.CurrentValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entities.CurrentValue, 0, len(r.current))
	for _, cv := range r.current {
		all = append(all, cv)
	}
	return all, nil
}

func (r *fakeTelemetryRepo) GetHistory(endpointID string, limit int) ([]entities.TelemetryReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.TelemetryReading
	for _, reading := range r.history {
		if reading.EndpointID == endpointID {
			out = append(out, reading)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeTelemetryRepo) GetLatestReading(endpointID string) (*entities.TelemetryReading, error) {
	readings, _ := r.GetHistory(endpointID, 0)
	if len(readings) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	out := readings[len(readings)-1]
	return &out, nil
}

func (r *fakeTelemetryRepo) historyFor(endpointID string) []entities.TelemetryReading {
	readings, _ := r.GetHistory(endpointID, 0)
	return readings
}

type fakeAlarmRepo struct {
	mu     sync.Mutex
	alarms []entities.Alarm
}

func newFakeAlarmRepo() *fakeAlarmRepo { return &fakeAlarmRepo{} }

func (r *fakeAlarmRepo) Create(alarm *entities.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms = append(r.alarms, *alarm)
	return nil
}

func (r *fakeAlarmRepo) GetByID(id string) (*entities.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alarms {
		if a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAlarmRepo) GetAll(status string) ([]entities.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.Alarm
	for _, a := range r.alarms {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlarmRepo) Acknowledge(id, by string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alarms {
		if r.alarms[i].ID == id {
			r.alarms[i].Status = entities.AlarmAcknowledged
			r.alarms[i].AcknowledgedBy = by
			r.alarms[i].AcknowledgedAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeAlarmRepo) all() []entities.Alarm {
	alarms, _ := r.GetAll("")
	return alarms
}
