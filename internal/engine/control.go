package engine

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/bus"
)

// Subscriber attaches handlers to bus subjects. Satisfied by *bus.Conn.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (*nats.Subscription, error)
}

// BindControl subscribes the scheduler to monitor control events so API
// writes take effect without waiting for the next reconciliation cycle.
func (s *Scheduler) BindControl(sub Subscriber) error {
	if _, err := sub.Subscribe(bus.SubjectMonitorCreated, s.onMonitorUpserted); err != nil {
		return err
	}
	if _, err := sub.Subscribe(bus.SubjectMonitorUpdated, s.onMonitorUpserted); err != nil {
		return err
	}
	if _, err := sub.Subscribe(bus.SubjectMonitorDeleted, s.onMonitorRemoved); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) onMonitorUpserted(data []byte) {
	id, ok := s.decodeControl(data)
	if !ok {
		return
	}
	s.logger.Info("monitor changed, refreshing schedule", zap.String("monitor_id", id))
	s.OnMonitorChanged(id)
}

func (s *Scheduler) onMonitorRemoved(data []byte) {
	id, ok := s.decodeControl(data)
	if !ok {
		return
	}
	s.logger.Info("monitor deleted, dropping from schedule", zap.String("monitor_id", id))
	s.OnMonitorDeleted(id)
}

func (s *Scheduler) decodeControl(data []byte) (string, bool) {
	var event bus.MonitorControlEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn("malformed monitor control event", zap.Error(err))
		return "", false
	}
	if event.MonitorID == "" {
		s.logger.Warn("monitor control event without monitor id")
		return "", false
	}
	return event.MonitorID, true
}
