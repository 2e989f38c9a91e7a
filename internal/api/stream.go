package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DecisionEvent describes websocket payloads emitted for each routed request.
type DecisionEvent struct {
	Type             string    `json:"type"`
	RequestID        string    `json:"request_id"`
	RequestedAgent   string    `json:"requested_agent"`
	AgentUsed        string    `json:"agent_used"`
	Label            string    `json:"label,omitempty"`
	Rule             string    `json:"rule,omitempty"`
	Reasoning        string    `json:"reasoning,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Failed           bool      `json:"failed,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DecisionNotifier keeps track of active websocket clients and broadcasts decision events.
type DecisionNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *DecisionEvent
}

// NewDecisionNotifier constructs a notifier instance.
func NewDecisionNotifier() *DecisionNotifier {
	return &DecisionNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the latest event.
func (n *DecisionNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastEvent
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *DecisionNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *DecisionNotifier) Broadcast(event DecisionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	n.mu.Lock()
	snapshot := event
	n.lastEvent = &snapshot

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// Clients reports the number of connected websocket clients.
func (n *DecisionNotifier) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

// LastEvent returns a copy of the most recent event, if any.
func (n *DecisionNotifier) LastEvent() *DecisionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	copy := *n.lastEvent
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
