package services

import (
	"context"
	"log"
	"sync"
	"time"

	"brewos-server/entities"
	"brewos-server/usecases"
)

// CommandSubmitter is the slice of the pipeline the scheduler needs to
// submit reversion commands.
type CommandSubmitter interface {
	Submit(ctx context.Context, req usecases.SubmitRequest) (*usecases.SubmitResult, error)
}

// PulseScheduler turns a succeeded pulse into a delayed follow-up command
// that restores the opposite state. The reversion is a command of its own
// with a full lifecycle, not a mutation of the original; it can be
// cancelled any time before it fires.
type PulseScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer // parent commandID -> reversion timer

	submitter CommandSubmitter
}

func NewPulseScheduler(submitter CommandSubmitter) *PulseScheduler {
	return &PulseScheduler{
		timers:    make(map[string]*time.Timer),
		submitter: submitter,
	}
}

// Schedule arms the reversion timer for a succeeded pulse command.
// Implements usecases.ReversionScheduler.
func (s *PulseScheduler) Schedule(parent *entities.Command, endpoint *entities.Endpoint, revertTo entities.Value, after time.Duration) {
	correlation := parent.CorrelationID
	if correlation == "" {
		correlation = parent.ID
	}
	req := usecases.SubmitRequest{
		EndpointID:    endpoint.ID,
		Value:         revertTo,
		CommandType:   entities.CommandWrite,
		TileID:        parent.TileID,
		CorrelationID: correlation,
		RequestedBy:   "pulse-reversion",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[parent.ID]; ok {
		old.Stop()
	}
	s.timers[parent.ID] = time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.timers, parent.ID)
		s.mu.Unlock()

		if _, err := s.submitter.Submit(context.Background(), req); err != nil {
			log.Printf("pulse reversion for command %s failed: %v", parent.ID, err)
		}
	})
}

// Cancel stops a pending reversion before it fires. Returns false when the
// reversion already fired or never existed.
func (s *PulseScheduler) Cancel(parentCommandID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[parentCommandID]
	if !ok {
		return false
	}
	delete(s.timers, parentCommandID)
	return t.Stop()
}

// Pending reports how many reversions are armed.
func (s *PulseScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
