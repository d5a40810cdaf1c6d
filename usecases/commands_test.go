package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"brewos-server/cache"
	"brewos-server/dispatch"
	"brewos-server/entities"
	"brewos-server/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scheduledReversion struct {
	parentID string
	revertTo entities.Value
	after    time.Duration
}

type captureScheduler struct {
	mu    sync.Mutex
	calls []scheduledReversion
}

func (s *captureScheduler) Schedule(parent *entities.Command, endpoint *entities.Endpoint, revertTo entities.Value, after time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduledReversion{parentID: parent.ID, revertTo: revertTo, after: after})
}

func (s *captureScheduler) scheduled() []scheduledReversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduledReversion(nil), s.calls...)
}

type pipelineRig struct {
	endpoints  *fakeEndpointRepo
	commands   *fakeCommandRepo
	interlocks *fakeInterlockRepo
	telemetry  *fakeTelemetryRepo
	alarms     *fakeAlarmRepo
	current    *cache.CurrentCache
	sim        *dispatch.Simulated
	reversions *captureScheduler
	pipeline   *CommandPipeline
}

func newPipelineRig(eps ...entities.Endpoint) *pipelineRig {
	rig := &pipelineRig{
		endpoints:  newFakeEndpointRepo(eps...),
		commands:   newFakeCommandRepo(),
		interlocks: newFakeInterlockRepo(),
		telemetry:  newFakeTelemetryRepo(),
		alarms:     newFakeAlarmRepo(),
		current:    cache.NewCurrentCache(),
		reversions: &captureScheduler{},
	}
	rig.sim = dispatch.NewSimulated(rig.telemetry, 0)
	evaluator := NewEvaluator(rig.interlocks, rig.telemetry)
	reconciler := NewReconciler(rig.telemetry, rig.alarms, rig.current)
	rig.pipeline = NewCommandPipeline(
		rig.endpoints, rig.commands, evaluator, reconciler, rig.sim,
		50*time.Millisecond, time.Second,
	)
	rig.pipeline.SetReversionScheduler(rig.reversions)
	return rig
}

func heaterEndpoint() entities.Endpoint {
	return entities.Endpoint{
		ID:        "ep-heater",
		NodeID:    "node-1",
		Channel:   "DO1",
		Name:      "hlt-heater",
		Kind:      entities.KindDigitalOut,
		ValueType: entities.ValueTypeBool,
		Status:    entities.EndpointActive,
	}
}

func setpointEndpoint() entities.Endpoint {
	min, max := 0.0, 110.0
	return entities.Endpoint{
		ID:        "ep-setpoint",
		NodeID:    "node-1",
		Channel:   "V1",
		Name:      "hlt-setpoint",
		Kind:      entities.KindVirtual,
		ValueType: entities.ValueTypeFloat,
		Status:    entities.EndpointActive,
		RangeMin:  &min,
		RangeMax:  &max,
	}
}

func TestSubmitWriteSucceeds(t *testing.T) {
	rig := newPipelineRig(setpointEndpoint())

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-setpoint",
		Value:       entities.NumberValue(68.5),
		CommandType: entities.CommandWrite,
		RequestedBy: "operator",
	})
	require.NoError(t, err)

	cmd := result.Command
	assert.Equal(t, entities.StatusSucceeded, cmd.Status)
	assert.Equal(t, "68.5", cmd.ActualValue)
	require.NotNil(t, cmd.SentAt)
	require.NotNil(t, cmd.AckedAt)
	require.NotNil(t, cmd.CompletedAt)
	assert.False(t, cmd.SentAt.After(*cmd.AckedAt))
	assert.False(t, cmd.AckedAt.After(*cmd.CompletedAt))

	// the value landed in both stores and the read cache
	current, err := rig.telemetry.GetCurrent("ep-setpoint")
	require.NoError(t, err)
	require.NotNil(t, current.ValueNum)
	assert.Equal(t, 68.5, *current.ValueNum)
	assert.Equal(t, entities.SourceCommand, current.Source)

	history := rig.telemetry.historyFor("ep-setpoint")
	require.Len(t, history, 1)
	require.NotNil(t, history[0].ValueNum)
	assert.Equal(t, 68.5, *history[0].ValueNum)

	cached, ok := rig.current.Get("ep-setpoint")
	require.True(t, ok)
	assert.Equal(t, 68.5, *cached.ValueNum)
}

func TestSubmitSnapshotIsStableOnceTerminal(t *testing.T) {
	rig := newPipelineRig(setpointEndpoint())

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-setpoint",
		Value:       entities.NumberValue(42),
		CommandType: entities.CommandWrite,
	})
	require.NoError(t, err)

	first, err := rig.pipeline.GetCommand(result.Command.ID)
	require.NoError(t, err)
	second, err := rig.pipeline.GetCommand(result.Command.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSubmitToggleInvertsCurrentState(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())

	// no prior reading: toggle turns on
	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		CommandType: entities.CommandToggle,
	})
	require.NoError(t, err)
	assert.True(t, result.ActualValue.Equal(entities.BoolValue(true)))

	// second toggle sees the reconciled value and turns off
	result, err = rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		CommandType: entities.CommandToggle,
	})
	require.NoError(t, err)
	assert.True(t, result.ActualValue.Equal(entities.BoolValue(false)))
}

func TestSubmitBlockedByInterlock(t *testing.T) {
	rig := newPipelineRig(setpointEndpoint())
	rule := activeRule("il-ceiling", "setpoint-ceiling", entities.ModeTrip, entities.SeverityCritical, 1,
		`{"type":"proposed_range","max":100}`)
	require.NoError(t, rig.interlocks.Create(&rule))

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-setpoint",
		Value:       entities.NumberValue(105),
		CommandType: entities.CommandWrite,
	})
	require.Error(t, err)

	pe, ok := AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeBlocked, pe.Code)
	assert.Equal(t, "il-ceiling", pe.InterlockID)

	cmd := result.Command
	assert.Equal(t, entities.StatusBlocked, cmd.Status)
	assert.Equal(t, "il-ceiling", cmd.BlockedByInterlockID)
	assert.Contains(t, cmd.ErrorMessage, "setpoint-ceiling")
	require.NotNil(t, cmd.CompletedAt)
	assert.Nil(t, cmd.SentAt, "blocked commands never reach dispatch")

	// ledger row persisted and readable
	stored, err := rig.commands.GetByID(cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusBlocked, stored.Status)

	// alarm raised, no state change recorded
	alarms := rig.alarms.all()
	require.Len(t, alarms, 1)
	assert.Equal(t, cmd.ID, alarms[0].CommandID)
	assert.Equal(t, "il-ceiling", alarms[0].InterlockID)
	assert.Equal(t, entities.SeverityCritical, alarms[0].Severity)
	assert.Empty(t, rig.telemetry.historyFor("ep-setpoint"))
}

func TestSubmitFailsClosedWhenSafetyDataUnavailable(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())
	rig.interlocks.activeErr = assert.AnError

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeSafetyUnavailable))

	cmd := result.Command
	assert.Equal(t, entities.StatusBlocked, cmd.Status)
	assert.Equal(t, "interlock evaluation unavailable", cmd.ErrorMessage)

	alarms := rig.alarms.all()
	require.Len(t, alarms, 1)
	assert.Equal(t, entities.SeverityCritical, alarms[0].Severity)
}

func TestSubmitValidationFailures(t *testing.T) {
	inactive := heaterEndpoint()
	inactive.ID = "ep-inactive"
	inactive.Status = entities.EndpointInactive

	sensor := entities.Endpoint{
		ID:        "ep-sensor",
		Kind:      entities.KindAnalogIn,
		ValueType: entities.ValueTypeFloat,
		Status:    entities.EndpointActive,
	}

	rig := newPipelineRig(heaterEndpoint(), setpointEndpoint(), inactive, sensor)

	tests := []struct {
		name string
		req  SubmitRequest
		code ErrorCode
	}{
		{
			"unknown endpoint",
			SubmitRequest{EndpointID: "ep-missing", Value: entities.BoolValue(true), CommandType: entities.CommandWrite},
			ErrCodeNotFound,
		},
		{
			"inactive endpoint",
			SubmitRequest{EndpointID: "ep-inactive", Value: entities.BoolValue(true), CommandType: entities.CommandWrite},
			ErrCodeNotWritable,
		},
		{
			"read-only endpoint",
			SubmitRequest{EndpointID: "ep-sensor", Value: entities.NumberValue(1), CommandType: entities.CommandWrite},
			ErrCodeNotWritable,
		},
		{
			"value type mismatch",
			SubmitRequest{EndpointID: "ep-setpoint", Value: entities.StringValue("hot"), CommandType: entities.CommandWrite},
			ErrCodeValidation,
		},
		{
			"value outside declared range",
			SubmitRequest{EndpointID: "ep-setpoint", Value: entities.NumberValue(400), CommandType: entities.CommandWrite},
			ErrCodeValidation,
		},
		{
			"toggle on non-bool endpoint",
			SubmitRequest{EndpointID: "ep-setpoint", CommandType: entities.CommandToggle},
			ErrCodeValidation,
		},
		{
			"unknown command type",
			SubmitRequest{EndpointID: "ep-heater", Value: entities.BoolValue(true), CommandType: "reboot"},
			ErrCodeValidation,
		},
		{
			"missing value",
			SubmitRequest{EndpointID: "ep-heater", CommandType: entities.CommandWrite},
			ErrCodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rig.pipeline.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, HasCode(err, tt.code), "expected code %s, got %v", tt.code, err)
		})
	}

	// validation rejections never write ledger rows
	rows, err := rig.commands.List(repositories.CommandFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmitTimeoutFailsWithExactReason(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())
	rig.sim.HangNext()

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeDispatchTimeout))

	cmd := result.Command
	assert.Equal(t, entities.StatusFailed, cmd.Status)
	assert.Equal(t, "timeout", cmd.ErrorMessage)
	require.NotNil(t, cmd.SentAt)
	assert.Nil(t, cmd.AckedAt, "the node never acknowledged")

	// nothing reconciled
	assert.Empty(t, rig.telemetry.historyFor("ep-heater"))
}

func TestSubmitMarkSentErrorTerminatesCommand(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())
	rig.commands.sentErr = errors.New("pq: connection refused")

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeDispatchFailed))

	// the ledger row must not be stranded in queued
	cmd := result.Command
	assert.Equal(t, entities.StatusFailed, cmd.Status)
	assert.Contains(t, cmd.ErrorMessage, "recording dispatch")
	require.NotNil(t, cmd.CompletedAt)
	assert.Empty(t, rig.telemetry.historyFor("ep-heater"))
}

func TestSubmitRetriesOnceOnTransientFailure(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())
	rig.sim.FailNext(1)

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSucceeded, result.Command.Status)
}

func TestSubmitGivesUpAfterSecondTransientFailure(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())
	rig.sim.FailNext(2)

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeDispatchFailed))
	assert.Equal(t, entities.StatusFailed, result.Command.Status)
}

func TestSubmitPulseSchedulesReversion(t *testing.T) {
	ep := heaterEndpoint()
	ep.PulseDurationMs = 250
	rig := newPipelineRig(ep)

	result, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandPulse,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSucceeded, result.Command.Status)

	calls := rig.reversions.scheduled()
	require.Len(t, calls, 1)
	assert.Equal(t, result.Command.ID, calls[0].parentID)
	assert.True(t, calls[0].revertTo.Equal(entities.BoolValue(false)))
	assert.Equal(t, 250*time.Millisecond, calls[0].after)
}

func TestSubmitPulseUsesDefaultDuration(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())

	_, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandPulse,
	})
	require.NoError(t, err)

	calls := rig.reversions.scheduled()
	require.Len(t, calls, 1)
	assert.Equal(t, time.Second, calls[0].after)
}

func TestSubmitWriteDoesNotScheduleReversion(t *testing.T) {
	rig := newPipelineRig(heaterEndpoint())

	_, err := rig.pipeline.Submit(context.Background(), SubmitRequest{
		EndpointID:  "ep-heater",
		Value:       entities.BoolValue(true),
		CommandType: entities.CommandWrite,
	})
	require.NoError(t, err)
	assert.Empty(t, rig.reversions.scheduled())
}

func TestSubmitSerializesPerEndpoint(t *testing.T) {
	rig := newPipelineRig(setpointEndpoint())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = rig.pipeline.Submit(context.Background(), SubmitRequest{
				EndpointID:  "ep-setpoint",
				Value:       entities.NumberValue(float64(i)),
				CommandType: entities.CommandWrite,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "submit %d", i)
	}
	// every command completed and was reconciled
	assert.Len(t, rig.telemetry.historyFor("ep-setpoint"), 8)
}

func TestGetCommandNotFound(t *testing.T) {
	rig := newPipelineRig()
	_, err := rig.pipeline.GetCommand("missing")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeNotFound))
}
