package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// CommandReply is a node's answer to a pushed command: an ack when the
// command is received, then a result when it has been applied.
type CommandReply struct {
	Type      string          `json:"type"` // command_ack | command_result
	CommandID string          `json:"command_id"`
	OK        bool            `json:"ok"`
	Value     json.RawMessage `json:"value,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Manager keeps track of active controller-node websocket connections and
// routes command replies back to waiting dispatchers.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn // nodeID -> conn
	pending     map[string]chan CommandReply
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[string]*websocket.Conn),
		pending:     make(map[string]chan CommandReply),
	}
}

// Register registers a node connection, replacing any existing one.
func (m *Manager) Register(nodeID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.connections[nodeID]; ok && old != conn {
		// close old connection to avoid leaks
		_ = old.Close()
	}
	m.connections[nodeID] = conn
}

// Unregister removes a node connection.
func (m *Manager) Unregister(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[nodeID]; ok {
		_ = conn.Close()
		delete(m.connections, nodeID)
	}
}

// SendToNode sends a text message to a node if connected.
func (m *Manager) SendToNode(nodeID string, payload []byte) error {
	m.mu.RLock()
	conn, ok := m.connections[nodeID]
	m.mu.RUnlock()
	if !ok || conn == nil {
		return errors.New("node not connected")
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// IsConnected returns whether a node is currently connected.
func (m *Manager) IsConnected(nodeID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[nodeID]
	return ok
}

// List returns a copy of current connected node IDs.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe opens a reply channel for a command about to be pushed. The
// channel is buffered so the websocket read loop never blocks on a slow
// dispatcher.
func (m *Manager) Subscribe(commandID string) <-chan CommandReply {
	ch := make(chan CommandReply, 4)
	m.mu.Lock()
	m.pending[commandID] = ch
	m.mu.Unlock()
	return ch
}

// Unsubscribe drops the reply channel once the dispatcher is done waiting.
func (m *Manager) Unsubscribe(commandID string) {
	m.mu.Lock()
	delete(m.pending, commandID)
	m.mu.Unlock()
}

// Deliver routes a node reply to the waiting dispatcher, if any.
func (m *Manager) Deliver(reply CommandReply) bool {
	m.mu.RLock()
	ch, ok := m.pending[reply.CommandID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case ch <- reply:
		return true
	default:
		return false
	}
}
