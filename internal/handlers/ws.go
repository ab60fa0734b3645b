package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/bus"
)

const (
	// writeWait is the deadline for a single outbound frame.
	writeWait = 10 * time.Second
	// pongWait is how long a client may stay silent before the read
	// side gives up on it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so the ping lands
	// before the deadline expires.
	pingPeriod = (pongWait * 9) / 10
	// maxClientMessageSize caps inbound frames; clients only listen.
	maxClientMessageSize = 512
)

// Subscriber attaches handlers to bus subjects. Satisfied by *bus.Conn.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (*nats.Subscription, error)
}

// Envelope types pushed to dashboard sockets.
const (
	wsTypeMonitorUpdate    = "monitor_update"
	wsTypeServiceStatus    = "service_status"
	wsTypeIncidentCreated  = "incident_created"
	wsTypeIncidentResolved = "incident_resolved"
	wsTypeIncidentUpdated  = "incident_updated"
)

// WSGateway bridges bus events to dashboard websockets. The monitors
// channel carries probe results and derived service status changes, the
// incidents channel carries incident lifecycle events. Clients connect
// per organization and only see that organization's events.
type WSGateway struct {
	monitors  *Hub
	incidents *Hub
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWSGateway creates the websocket gateway.
func NewWSGateway(logger *zap.Logger) *WSGateway {
	return &WSGateway{
		monitors:  newHub("monitors", logger),
		incidents: newHub("incidents", logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS policy is enforced at the HTTP layer
			},
		},
		logger: logger,
	}
}

// SetupRoutes registers the websocket routes on the mux.
func (g *WSGateway) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/monitors/{organizationId}", g.handleMonitorsSocket)
	mux.HandleFunc("GET /ws/incidents/{organizationId}", g.handleIncidentsSocket)
}

// BindBus subscribes the gateway to the bus subjects it re-broadcasts.
func (g *WSGateway) BindBus(sub Subscriber) error {
	if _, err := sub.Subscribe(bus.SubjectMonitorResult, g.onMonitorResult); err != nil {
		return err
	}
	if _, err := sub.Subscribe(bus.SubjectServiceStatus, g.onServiceStatus); err != nil {
		return err
	}
	if _, err := sub.Subscribe(bus.SubjectIncidentEvent, g.onIncidentEvent); err != nil {
		return err
	}
	return nil
}

func (g *WSGateway) handleMonitorsSocket(w http.ResponseWriter, r *http.Request) {
	g.serveSocket(g.monitors, w, r)
}

func (g *WSGateway) handleIncidentsSocket(w http.ResponseWriter, r *http.Request) {
	g.serveSocket(g.incidents, w, r)
}

func (g *WSGateway) serveSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("organizationId")
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		orgID: orgID,
		send:  make(chan []byte, clientQueueSize),
	}
	hub.register(client)

	go g.writePump(conn, client)
	go g.readPump(hub, conn, client)
}

// readPump discards inbound frames and watches for disconnect. Clients
// are listen-only; the read loop exists to drive pong handling and to
// notice closed connections.
func (g *WSGateway) readPump(hub *Hub, conn *websocket.Conn, client *wsClient) {
	defer func() {
		hub.unregister(client)
		conn.Close()
	}()
	conn.SetReadLimit(maxClientMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

// writePump pushes queued messages to the client and keeps the
// connection alive with periodic pings.
func (g *WSGateway) writePump(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ========== Bus Event Fan-out ==========

// orgOf extracts the organization id without decoding the full event.
func orgOf(data []byte) string {
	var peek struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return ""
	}
	return peek.OrganizationID
}

func (g *WSGateway) onMonitorResult(data []byte) {
	g.fanOut(g.monitors, wsTypeMonitorUpdate, data)
}

func (g *WSGateway) onServiceStatus(data []byte) {
	g.fanOut(g.monitors, wsTypeServiceStatus, data)
}

func (g *WSGateway) onIncidentEvent(data []byte) {
	var event bus.IncidentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		g.logger.Warn("malformed incident event", zap.Error(err))
		return
	}
	typ := wsTypeIncidentUpdated
	switch event.Kind {
	case bus.IncidentEventCreated:
		typ = wsTypeIncidentCreated
	case bus.IncidentEventResolved:
		typ = wsTypeIncidentResolved
	}
	g.fanOut(g.incidents, typ, data)
}

func (g *WSGateway) fanOut(hub *Hub, typ string, data []byte) {
	orgID := orgOf(data)
	if orgID == "" {
		g.logger.Warn("event without organization id", zap.String("type", typ))
		return
	}
	message, err := encodeEnvelope(orgID, typ, data)
	if err != nil {
		g.logger.Error("encode websocket envelope", zap.Error(err))
		return
	}
	hub.Broadcast(orgID, message)
}
