// Package dispatch delivers allowed commands to controller nodes. The
// Dispatcher port has two implementations: a deterministic simulated
// transport and a websocket push to live nodes. The pipeline owns ledger
// transitions; dispatchers report acknowledgment through the ack callback.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"brewos-server/entities"
	"brewos-server/repositories"

	"gorm.io/gorm"
)

// ErrTransient marks a delivery failure worth one retry (send failed
// before the node ever saw the command).
var ErrTransient = errors.New("transient transport failure")

// IsTransient reports whether the caller may retry the dispatch once.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsTimeout reports whether dispatch exceeded its acknowledgment bound.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Dispatcher delivers one command to the endpoint's owning node and
// returns the value the node actually applied. Implementations must call
// ack exactly once when the node confirms receipt, and must respect the
// context deadline.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *entities.Command, endpoint *entities.Endpoint, value entities.Value, ack func()) (entities.Value, error)
}

// resolveValue maps the command kind to the value the node should apply.
// Toggle inverts the endpoint's current boolean state (no prior reading
// counts as off); write and pulse deliver the requested value. A failed
// current-value read is an error, not an implicit off: toggling against
// unknown state must fail the dispatch, never energize the output.
func resolveValue(telemetry repositories.TelemetryRepository, cmd *entities.Command, endpoint *entities.Endpoint, requested entities.Value) (entities.Value, error) {
	if cmd.CommandType != entities.CommandToggle {
		return requested, nil
	}

	current, err := telemetry.GetCurrent(endpoint.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no reading yet: treat as off
			return entities.BoolValue(true), nil
		}
		return entities.Value{}, fmt.Errorf("resolving current state of %s: %w", endpoint.ID, err)
	}
	if current.ValueBool != nil && *current.ValueBool {
		return entities.BoolValue(false), nil
	}
	return entities.BoolValue(true), nil
}

// envelope is the wire shape pushed to nodes and echoed back in replies.
type envelope struct {
	Type        string         `json:"type"`
	CommandID   string         `json:"command_id"`
	EndpointID  string         `json:"endpoint_id"`
	Channel     string         `json:"channel"`
	CommandType string         `json:"command_type"`
	Value       entities.Value `json:"value"`
	Timestamp   string         `json:"timestamp"`
}

func describeTarget(endpoint *entities.Endpoint) string {
	return fmt.Sprintf("node %s channel %s", endpoint.NodeID, endpoint.Channel)
}
