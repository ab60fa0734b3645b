package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects carried over the event bus. The first three fan out state
// changes to the gateway and notifiers; the control subjects carry
// monitor CRUD signals from the API to the engine.
const (
	SubjectMonitorResult = "statusdeck.monitor.result"
	SubjectServiceStatus = "statusdeck.service.status"
	SubjectIncidentEvent = "statusdeck.incident.event"

	SubjectMonitorCreated = "statusdeck.monitor.control.created"
	SubjectMonitorUpdated = "statusdeck.monitor.control.updated"
	SubjectMonitorDeleted = "statusdeck.monitor.control.deleted"
)

// Conn wraps the NATS connection shared by publishers and subscribers
type Conn struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// Connect establishes the NATS connection with reconnect handling
func Connect(url string, logger *zap.Logger) (*Conn, error) {
	opts := []nats.Option{
		nats.Name("statusdeck"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				logger.Error("bus subscription error",
					zap.String("subject", sub.Subject),
					zap.Error(err))
				return
			}
			logger.Error("bus connection error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("bus disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("bus reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return &Conn{nc: nc, logger: logger}, nil
}

// Publish broadcasts v as JSON on the subject. Delivery is best effort
// and at most once: failures are logged and never surface to the caller,
// so a broken bus cannot stall probe processing or the API write path.
func (c *Conn) Publish(subject string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode event",
			zap.String("subject", subject),
			zap.Error(err))
		return
	}
	if err := c.nc.Publish(subject, data); err != nil {
		c.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Subscribe delivers raw event payloads for a subject to the handler on
// the NATS delivery goroutine
func (c *Conn) Subscribe(subject string, handler func(data []byte)) (*nats.Subscription, error) {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Connected reports whether the underlying connection is up
func (c *Conn) Connected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// Close drains in-flight messages and closes the connection
func (c *Conn) Close() {
	if err := c.nc.Drain(); err != nil {
		c.logger.Warn("failed to drain bus connection", zap.Error(err))
		c.nc.Close()
	}
}
