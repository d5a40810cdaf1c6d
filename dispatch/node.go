package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brewos-server/entities"
	"brewos-server/repositories"
	"brewos-server/ws"
)

// Node pushes commands to live controller nodes over websocket and waits
// for the ack/result replies routed back through the connection manager.
type Node struct {
	mgr       *ws.Manager
	telemetry repositories.TelemetryRepository
}

func NewNode(mgr *ws.Manager, telemetry repositories.TelemetryRepository) *Node {
	return &Node{mgr: mgr, telemetry: telemetry}
}

func (n *Node) Dispatch(ctx context.Context, cmd *entities.Command, endpoint *entities.Endpoint, value entities.Value, ack func()) (entities.Value, error) {
	resolved, err := resolveValue(n.telemetry, cmd, endpoint, value)
	if err != nil {
		return entities.Value{}, err
	}

	env := envelope{
		Type:        "command",
		CommandID:   cmd.ID,
		EndpointID:  endpoint.ID,
		Channel:     endpoint.Channel,
		CommandType: cmd.CommandType,
		Value:       resolved,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return entities.Value{}, fmt.Errorf("encoding command envelope: %w", err)
	}

	// subscribe before sending so a fast reply cannot be missed
	replies := n.mgr.Subscribe(cmd.ID)
	defer n.mgr.Unsubscribe(cmd.ID)

	if err := n.mgr.SendToNode(endpoint.NodeID, payload); err != nil {
		return entities.Value{}, fmt.Errorf("send to %s: %w (%v)", describeTarget(endpoint), ErrTransient, err)
	}

	acked := false
	for {
		select {
		case <-ctx.Done():
			return entities.Value{}, ctx.Err()
		case reply := <-replies:
			switch reply.Type {
			case "command_ack":
				if !acked {
					acked = true
					ack()
				}
			case "command_result":
				if !acked {
					// nodes may skip the explicit ack
					ack()
				}
				if !reply.OK {
					reason := reply.Error
					if reason == "" {
						reason = "node reported failure"
					}
					return entities.Value{}, fmt.Errorf("%s: %s", describeTarget(endpoint), reason)
				}
				if len(reply.Value) > 0 {
					applied, err := entities.ParseValue(reply.Value)
					if err != nil {
						return entities.Value{}, fmt.Errorf("node reply value: %w", err)
					}
					return applied, nil
				}
				return resolved, nil
			}
		}
	}
}
