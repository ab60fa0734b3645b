package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/utils"
)

// maxTitleLen caps incident titles in Slack messages to one readable line.
const maxTitleLen = 120

// Subscriber attaches handlers to bus subjects. Satisfied by *bus.Conn.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (*nats.Subscription, error)
}

// SlackNotifier posts incident lifecycle events to a Slack channel.
// Delivery rides the same best-effort contract as the bus: a failed post
// is logged and dropped, never retried.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier creates a notifier. With an empty token or channel the
// notifier stays disabled and Bind becomes a no-op.
func NewSlackNotifier(token, channel string, logger *zap.Logger) *SlackNotifier {
	n := &SlackNotifier{channel: channel, logger: logger}
	if token == "" || channel == "" {
		logger.Info("slack notifications disabled")
		return n
	}
	n.client = slack.New(token)
	return n
}

// Enabled reports whether the notifier will actually post.
func (n *SlackNotifier) Enabled() bool {
	return n.client != nil
}

// Bind subscribes the notifier to incident events.
func (n *SlackNotifier) Bind(sub Subscriber) error {
	if !n.Enabled() {
		return nil
	}
	if _, err := sub.Subscribe(bus.SubjectIncidentEvent, n.handleIncidentEvent); err != nil {
		return err
	}
	return nil
}

func (n *SlackNotifier) handleIncidentEvent(data []byte) {
	var event bus.IncidentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		n.logger.Warn("malformed incident event", zap.Error(err))
		return
	}

	message := FormatIncidentMessage(event)
	if message == "" {
		return
	}

	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		n.logger.Warn("failed to post slack notification",
			zap.String("incident_id", event.IncidentID),
			zap.Error(err))
		return
	}
	n.logger.Debug("posted slack notification",
		zap.String("incident_id", event.IncidentID),
		zap.String("kind", string(event.Kind)))
}

// FormatIncidentMessage renders the Slack text for an incident event.
// Informational updates return an empty string and are not posted.
func FormatIncidentMessage(event bus.IncidentEvent) string {
	emoji := database.GetSeverityEmoji(event.Severity)
	title := utils.TruncateText(event.Title, maxTitleLen)
	switch event.Kind {
	case bus.IncidentEventCreated:
		return fmt.Sprintf("%s *Incident opened* [%s]: %s", emoji, event.Severity, title)
	case bus.IncidentEventEscalated:
		return fmt.Sprintf("%s *Incident escalated to %s*: %s", emoji, event.Severity, title)
	case bus.IncidentEventMonitoring:
		return fmt.Sprintf(":eyes: *Incident recovering*: %s", title)
	case bus.IncidentEventReopened:
		return fmt.Sprintf("%s *Incident reopened* [%s]: %s", emoji, event.Severity, title)
	case bus.IncidentEventResolved:
		if !event.OpenedAt.IsZero() && event.Timestamp.After(event.OpenedAt) {
			downtime := utils.FormatDuration(event.Timestamp.Sub(event.OpenedAt))
			return fmt.Sprintf(":white_check_mark: *Incident resolved* after %s: %s", downtime, title)
		}
		return fmt.Sprintf(":white_check_mark: *Incident resolved*: %s", title)
	default:
		return ""
	}
}
