package bus

import (
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
)

// MonitorResultEvent is published after every persisted probe result.
// It carries the display fields dashboards need so subscribers render
// rows without a DB round trip.
type MonitorResultEvent struct {
	OrganizationID string                 `json:"organization_id"`
	MonitorID      string                 `json:"monitor_id"`
	MonitorName    string                 `json:"monitor_name"`
	ServiceID      string                 `json:"service_id"`
	ServiceName    string                 `json:"service_name"`
	Status         database.MonitorStatus `json:"status"`
	ResponseTimeMs *int                   `json:"response_time_ms"`
	HTTPStatusCode *int                   `json:"http_status_code"`
	Error          *string                `json:"error"`
	CheckedAt      time.Time              `json:"checked_at"`
}

// ServiceStatusEvent is published only when a recomputation actually
// changed the stored service status
type ServiceStatusEvent struct {
	OrganizationID string                 `json:"organization_id"`
	ServiceID      string                 `json:"service_id"`
	ServiceName    string                 `json:"service_name"`
	OldStatus      database.ServiceStatus `json:"old_status"`
	NewStatus      database.ServiceStatus `json:"new_status"`
	ChangedAt      time.Time              `json:"changed_at"`
}

// IncidentEventKind names the lifecycle transition an IncidentEvent reports
type IncidentEventKind string

const (
	IncidentEventCreated    IncidentEventKind = "created"
	IncidentEventEscalated  IncidentEventKind = "escalated"
	IncidentEventMonitoring IncidentEventKind = "monitoring"
	IncidentEventReopened   IncidentEventKind = "reopened"
	IncidentEventResolved   IncidentEventKind = "resolved"
	IncidentEventUpdated    IncidentEventKind = "updated"
)

// IncidentEvent is published on every incident lifecycle transition
type IncidentEvent struct {
	OrganizationID string                    `json:"organization_id"`
	IncidentID     string                    `json:"incident_id"`
	MonitorID      *string                   `json:"monitor_id"`
	Kind           IncidentEventKind         `json:"kind"`
	Severity       database.IncidentSeverity `json:"severity"`
	Status         database.IncidentStatus   `json:"status"`
	Title          string                    `json:"title"`
	OpenedAt       time.Time                 `json:"opened_at"`
	Timestamp      time.Time                 `json:"timestamp"`
}

// MonitorControlEvent signals a monitor CRUD change from the API to the
// engine, which reconciles the schedule on receipt
type MonitorControlEvent struct {
	MonitorID string `json:"monitor_id"`
}
