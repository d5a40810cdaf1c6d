package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brewos-server/entities"
	"brewos-server/repositories"
)

// Simulated is the in-process dispatcher used in demo mode and tests.
// It acknowledges after one latency period and completes after another,
// and can be told to fail or hang for failure-path tests.
type Simulated struct {
	telemetry repositories.TelemetryRepository
	latency   time.Duration

	mu        sync.Mutex
	failNext  int  // upcoming attempts that fail with ErrTransient
	hangNext  bool // next attempt never acknowledges (forces timeout)
}

func NewSimulated(telemetry repositories.TelemetryRepository, latency time.Duration) *Simulated {
	return &Simulated{telemetry: telemetry, latency: latency}
}

// FailNext makes the next n dispatch attempts fail transiently.
func (s *Simulated) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// HangNext makes the next dispatch attempt never acknowledge.
func (s *Simulated) HangNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hangNext = true
}

func (s *Simulated) Dispatch(ctx context.Context, cmd *entities.Command, endpoint *entities.Endpoint, value entities.Value, ack func()) (entities.Value, error) {
	s.mu.Lock()
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return entities.Value{}, fmt.Errorf("send to %s: %w", describeTarget(endpoint), ErrTransient)
	}
	hang := s.hangNext
	s.hangNext = false
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return entities.Value{}, ctx.Err()
	}

	// transport delay before the node confirms receipt
	if err := s.sleep(ctx); err != nil {
		return entities.Value{}, err
	}
	ack()

	// processing delay before the node reports the applied value
	if err := s.sleep(ctx); err != nil {
		return entities.Value{}, err
	}

	return resolveValue(s.telemetry, cmd, endpoint, value)
}

func (s *Simulated) sleep(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
