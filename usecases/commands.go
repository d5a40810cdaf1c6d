package usecases

import (
	"context"
	"errors"
	"log"
	"time"

	"brewos-server/dispatch"
	"brewos-server/entities"
	"brewos-server/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// reservedSafetyReason is the system reason recorded when interlock data
// cannot be loaded and evaluation fails closed.
const reservedSafetyReason = "interlock evaluation unavailable"

// ReversionScheduler schedules the follow-up command that reverses a pulse
// after its duration elapses.
type ReversionScheduler interface {
	Schedule(parent *entities.Command, endpoint *entities.Endpoint, revertTo entities.Value, after time.Duration)
}

// SubmitRequest is one admitted command request.
type SubmitRequest struct {
	EndpointID    string
	Value         entities.Value
	CommandType   string
	TileID        string
	CorrelationID string
	RequestedBy   string
}

// SubmitResult carries the ledger row and, for allowed commands, the value
// the node actually applied.
type SubmitResult struct {
	Command     *entities.Command
	Decision    Decision
	ActualValue entities.Value
}

// CommandPipeline runs the admission flow: validate, evaluate interlocks,
// record the lifecycle in the ledger, dispatch, reconcile. Commands against
// one endpoint are serialized; different endpoints run concurrently.
type CommandPipeline struct {
	endpoints  repositories.EndpointRepository
	commands   repositories.CommandRepository
	evaluator  *Evaluator
	reconciler *Reconciler
	dispatcher dispatch.Dispatcher
	locks      *endpointLocks

	timeout      time.Duration
	defaultPulse time.Duration
	reversions   ReversionScheduler
}

func NewCommandPipeline(
	endpoints repositories.EndpointRepository,
	commands repositories.CommandRepository,
	evaluator *Evaluator,
	reconciler *Reconciler,
	dispatcher dispatch.Dispatcher,
	timeout time.Duration,
	defaultPulse time.Duration,
) *CommandPipeline {
	return &CommandPipeline{
		endpoints:    endpoints,
		commands:     commands,
		evaluator:    evaluator,
		reconciler:   reconciler,
		dispatcher:   dispatcher,
		locks:        newEndpointLocks(),
		timeout:      timeout,
		defaultPulse: defaultPulse,
	}
}

// SetReversionScheduler wires the pulse scheduler after construction; the
// scheduler submits follow-up commands back through this pipeline.
func (p *CommandPipeline) SetReversionScheduler(s ReversionScheduler) {
	p.reversions = s
}

// Submit runs one command through the pipeline. Validation failures return
// before any ledger row exists; every later outcome is persisted and the
// returned result carries the ledger row. The error, when non-nil, is
// always a *PipelineError.
func (p *CommandPipeline) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	endpoint, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	unlock := p.locks.acquire(endpoint.ID)
	defer unlock()

	commandID := uuid.New().String()
	cmd := &entities.Command{
		ID:             commandID,
		CorrelationID:  req.CorrelationID,
		EndpointID:     endpoint.ID,
		TileID:         req.TileID,
		CommandType:    req.CommandType,
		RequestedValue: req.Value.Encode(),
		RequestedAt:    time.Now().UTC(),
		RequestedBy:    req.RequestedBy,
	}

	decision, evalErr := p.evaluator.Evaluate(commandID, endpoint, req.Value, req.TileID)
	if evalErr != nil {
		// fail closed: safety data unavailable blocks the command
		log.Printf("interlock evaluation failed for command %s: %v", commandID, evalErr)
		decision = Decision{
			Blocked:  true,
			Reason:   reservedSafetyReason,
			Severity: entities.SeverityCritical,
		}
		return p.block(cmd, decision, ErrCodeSafetyUnavailable)
	}
	if decision.Blocked {
		return p.block(cmd, decision, ErrCodeBlocked)
	}

	cmd.Status = entities.StatusQueued
	if err := p.commands.Create(cmd); err != nil {
		return nil, &PipelineError{
			Code: ErrCodeDispatchFailed, Message: "recording command: " + err.Error(),
			CommandID: commandID, EndpointID: endpoint.ID,
		}
	}

	return p.dispatchAndReconcile(ctx, cmd, endpoint, req.Value)
}

func (p *CommandPipeline) validate(req SubmitRequest) (*entities.Endpoint, error) {
	if !entities.ValidCommandType(req.CommandType) {
		return nil, newValidationError("commandType must be one of: write, toggle, pulse")
	}
	if req.CommandType != entities.CommandToggle && req.Value.Kind == "" {
		return nil, newValidationError("value is required")
	}

	endpoint, err := p.endpoints.GetByID(req.EndpointID)
	if err != nil {
		if isNotFound(err) {
			return nil, newNotFoundError(req.EndpointID)
		}
		return nil, newValidationError("loading endpoint: %v", err)
	}

	if endpoint.Status != entities.EndpointActive {
		return nil, newNotWritableError(endpoint.ID, "endpoint "+endpoint.ID+" is "+endpoint.Status)
	}
	if !endpoint.Writable() {
		return nil, newNotWritableError(endpoint.ID, "endpoint kind "+endpoint.Kind+" is read-only")
	}

	switch req.CommandType {
	case entities.CommandToggle:
		if endpoint.ValueType != entities.ValueTypeBool {
			return nil, newValidationError("toggle requires a bool endpoint, got %s", endpoint.ValueType)
		}
	case entities.CommandPulse:
		if endpoint.ValueType != entities.ValueTypeBool || req.Value.Kind != entities.ValueKindBool {
			return nil, newValidationError("pulse requires a bool endpoint and a bool value")
		}
	default:
		if !req.Value.MatchesType(endpoint.ValueType) {
			return nil, newValidationError("value kind %s does not match endpoint value type %s", req.Value.Kind, endpoint.ValueType)
		}
		if req.Value.Kind == entities.ValueKindNumber && !endpoint.InRange(req.Value.Num) {
			return nil, newValidationError("value %v outside endpoint declared range", req.Value.Num)
		}
	}
	return endpoint, nil
}

// block writes the terminal blocked row, raises the alarm, and shapes the
// typed error. Blocked is the only terminal state reachable without the
// command ever being queued.
func (p *CommandPipeline) block(cmd *entities.Command, decision Decision, code ErrorCode) (*SubmitResult, error) {
	cmd.Status = entities.StatusBlocked
	cmd.ErrorMessage = decision.Reason
	cmd.BlockedByInterlockID = decision.InterlockID
	now := time.Now().UTC()
	cmd.CompletedAt = &now

	if err := p.commands.Create(cmd); err != nil {
		log.Printf("failed to record blocked command %s: %v", cmd.ID, err)
	}
	p.reconciler.RaiseAlarm(cmd, decision)

	return &SubmitResult{Command: cmd, Decision: decision}, &PipelineError{
		Code:        code,
		Message:     decision.Reason,
		CommandID:   cmd.ID,
		EndpointID:  cmd.EndpointID,
		InterlockID: decision.InterlockID,
	}
}

func (p *CommandPipeline) dispatchAndReconcile(ctx context.Context, cmd *entities.Command, endpoint *entities.Endpoint, value entities.Value) (*SubmitResult, error) {
	if err := p.commands.MarkSent(cmd.ID, time.Now().UTC()); err != nil {
		return p.fail(cmd, "recording dispatch: "+err.Error(), ErrCodeDispatchFailed)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	acked := false
	ack := func() {
		if acked {
			return
		}
		acked = true
		if err := p.commands.MarkAcked(cmd.ID, time.Now().UTC()); err != nil {
			log.Printf("failed to record ack for command %s: %v", cmd.ID, err)
		}
	}

	actual, err := p.dispatcher.Dispatch(dispatchCtx, cmd, endpoint, value, ack)
	if err != nil && dispatch.IsTransient(err) && !acked {
		// one retry for transient transport failures, then terminal
		actual, err = p.dispatcher.Dispatch(dispatchCtx, cmd, endpoint, value, ack)
	}
	if err != nil {
		if dispatch.IsTimeout(err) {
			return p.fail(cmd, "timeout", ErrCodeDispatchTimeout)
		}
		return p.fail(cmd, err.Error(), ErrCodeDispatchFailed)
	}

	completedAt := time.Now().UTC()
	if !acked {
		ack()
	}
	if err := p.commands.MarkSucceeded(cmd.ID, actual.Encode(), completedAt); err != nil {
		return p.fail(cmd, "recording success: "+err.Error(), ErrCodeDispatchFailed)
	}
	cmd.Status = entities.StatusSucceeded
	cmd.ActualValue = actual.Encode()
	cmd.CompletedAt = &completedAt

	if err := p.reconciler.Reconcile(endpoint.ID, cmd.TileID, actual, completedAt, entities.SourceCommand); err != nil {
		// the command did execute; the projection is behind until the next
		// observation, which is worth shouting about but not a failure
		log.Printf("reconcile after command %s failed: %v", cmd.ID, err)
	}

	if cmd.CommandType == entities.CommandPulse && p.reversions != nil && actual.Kind == entities.ValueKindBool {
		duration := p.defaultPulse
		if endpoint.PulseDurationMs > 0 {
			duration = time.Duration(endpoint.PulseDurationMs) * time.Millisecond
		}
		p.reversions.Schedule(cmd, endpoint, entities.BoolValue(!actual.Bool), duration)
	}

	return &SubmitResult{Command: cmd, ActualValue: actual}, nil
}

// fail records the terminal failed row. The ledger keeps whatever progress
// the command made (sent/acked timestamps) plus the reason.
func (p *CommandPipeline) fail(cmd *entities.Command, reason string, code ErrorCode) (*SubmitResult, error) {
	if err := p.commands.MarkFailed(cmd.ID, reason, time.Now().UTC()); err != nil {
		log.Printf("failed to record failure for command %s: %v", cmd.ID, err)
	}
	if fresh, err := p.commands.GetByID(cmd.ID); err == nil {
		cmd = fresh
	}
	return &SubmitResult{Command: cmd}, &PipelineError{
		Code:       code,
		Message:    reason,
		CommandID:  cmd.ID,
		EndpointID: cmd.EndpointID,
	}
}

// GetCommand returns the full lifecycle snapshot for a command.
func (p *CommandPipeline) GetCommand(id string) (*entities.Command, error) {
	if id == "" {
		return nil, newValidationError("commandId is required")
	}
	cmd, err := p.commands.GetByID(id)
	if err != nil {
		if isNotFound(err) {
			return nil, &PipelineError{Code: ErrCodeNotFound, Message: "no command found with id " + id, CommandID: id}
		}
		return nil, err
	}
	return cmd, nil
}

// ListCommands returns ledger rows for the status screens.
func (p *CommandPipeline) ListCommands(filter repositories.CommandFilter) ([]entities.Command, error) {
	return p.commands.List(filter)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
