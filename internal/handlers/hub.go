package handlers

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// clientQueueSize bounds each client's send queue. A consumer that falls
// behind loses its oldest queued message, not the connection.
const clientQueueSize = 64

// wsClient is one connected dashboard socket, pinned to an organization.
type wsClient struct {
	orgID string
	send  chan []byte
}

// Hub fans broadcast messages out to the connected clients of one socket
// channel, grouped by organization. Delivery is best effort and at most
// once: a message queued while a client's buffer is full evicts the
// oldest entry.
type Hub struct {
	name   string
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*wsClient]struct{}
}

func newHub(name string, logger *zap.Logger) *Hub {
	return &Hub{
		name:   name,
		logger: logger,
		rooms:  make(map[string]map[*wsClient]struct{}),
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.orgID]
	if room == nil {
		room = make(map[*wsClient]struct{})
		h.rooms[c.orgID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.orgID]
	if room == nil {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.orgID)
	}
}

// Broadcast queues message for every client of the organization.
func (h *Hub) Broadcast(orgID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[orgID] {
		select {
		case c.send <- message:
		default:
			// Full queue: drop the oldest message to make room.
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- message:
			default:
			}
			h.logger.Debug("dropped message for slow client",
				zap.String("channel", h.name),
				zap.String("organization_id", orgID))
		}
	}
}

// ClientCount returns the number of connected clients for an organization.
func (h *Hub) ClientCount(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orgID])
}

// envelope wraps an event payload in the wire format dashboards consume.
type envelope struct {
	OrganizationID string          `json:"organization_id"`
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
}

func encodeEnvelope(orgID, typ string, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(envelope{
		OrganizationID: orgID,
		Type:           typ,
		Payload:        payload,
	})
}
