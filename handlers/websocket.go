package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"brewos-server/entities"
	"brewos-server/repositories"
	"brewos-server/usecases"
	"brewos-server/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket message envelopes
type incomingMessage struct {
	Type string `json:"type"` // telemetry | heartbeat | command_ack | command_result
}

type telemetryPayload struct {
	Type       string          `json:"type"`
	EndpointID string          `json:"endpoint_id"`
	Value      json.RawMessage `json:"value"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// WSHandler groups dependencies for the controller-node websocket flows.
type WSHandler struct {
	mgr        *ws.Manager
	nodes      repositories.NodeRepository
	endpoints  repositories.EndpointRepository
	reconciler *usecases.Reconciler
}

func NewWSHandler(mgr *ws.Manager, nodes repositories.NodeRepository, endpoints repositories.EndpointRepository, reconciler *usecases.Reconciler) *WSHandler {
	return &WSHandler{mgr: mgr, nodes: nodes, endpoints: endpoints, reconciler: reconciler}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// HandleNodeWS upgrades to websocket and reads messages from a node.
// GET /ws?node=<node_id>
func (h *WSHandler) HandleNodeWS(c *gin.Context) {
	nodeID := c.Query("node")
	if nodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing node id"})
		return
	}
	if _, err := h.nodes.GetByID(nodeID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node", "node_id": nodeID})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	h.mgr.Register(nodeID, conn)
	log.Printf("node connected: %s", nodeID)
	_ = h.nodes.UpdateLastSeen(nodeID, time.Now().UTC())

	defer func() {
		h.mgr.Unregister(nodeID)
		log.Printf("node disconnected: %s", nodeID)
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("node %s closed connection", nodeID)
			} else {
				log.Printf("read error from %s: %v", nodeID, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var base incomingMessage
		if err := json.Unmarshal(message, &base); err != nil {
			log.Printf("invalid json from %s: %v", nodeID, err)
			continue
		}

		switch base.Type {
		case "telemetry":
			h.handleTelemetry(nodeID, message)
		case "heartbeat":
			_ = h.nodes.UpdateLastSeen(nodeID, time.Now().UTC())
		case "command_ack", "command_result":
			var reply ws.CommandReply
			if err := json.Unmarshal(message, &reply); err != nil {
				log.Printf("invalid command reply from %s: %v", nodeID, err)
				continue
			}
			if !h.mgr.Deliver(reply) {
				log.Printf("no waiter for command reply %s from %s", reply.CommandID, nodeID)
			}
		default:
			log.Printf("unknown message type from %s: %s", nodeID, base.Type)
		}
	}
}

func (h *WSHandler) handleTelemetry(nodeID string, message []byte) {
	var payload telemetryPayload
	if err := json.Unmarshal(message, &payload); err != nil {
		log.Printf("invalid telemetry payload from %s: %v", nodeID, err)
		return
	}
	value, err := entities.ParseValue(payload.Value)
	if err != nil {
		log.Printf("invalid telemetry value from %s: %v", nodeID, err)
		return
	}
	// a node only speaks for registered endpoints; drop anything else
	if _, err := h.endpoints.GetByID(payload.EndpointID); err != nil {
		log.Printf("telemetry from %s for unknown endpoint %s dropped", nodeID, payload.EndpointID)
		return
	}
	ts := time.Now().UTC()
	if payload.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			ts = parsed.UTC()
		}
	}
	if err := h.reconciler.Reconcile(payload.EndpointID, "", value, ts, entities.SourceHardware); err != nil {
		log.Printf("telemetry reconcile from %s failed: %v", nodeID, err)
	}
}
