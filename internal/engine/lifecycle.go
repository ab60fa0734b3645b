package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
)

// Publisher broadcasts engine events. Satisfied by *bus.Conn.
type Publisher interface {
	Publish(subject string, v interface{})
}

// LifecycleManager drives the per-monitor incident state machine:
// a monitor has at most one unresolved auto-created incident, opened on
// the first unhealthy verdict and resolved only after a configured
// number of consecutive healthy verdicts.
//
// Manually created incidents are never transitioned by the engine; an
// active one only receives an informational timeline entry when the
// monitor's verdict kind changes.
type LifecycleManager struct {
	incidents     *database.IncidentStore
	publisher     Publisher
	logger        *zap.Logger
	confirmations int

	mu sync.Mutex
	// recovery counts consecutive UP verdicts per monitor while its
	// incident is in MONITORING. Engine state only: after a restart a
	// monitoring incident needs a full fresh streak.
	recovery    map[string]int
	lastVerdict map[string]database.MonitorStatus
}

// NewLifecycleManager creates a LifecycleManager resolving incidents
// after confirmations consecutive healthy verdicts
func NewLifecycleManager(incidents *database.IncidentStore, publisher Publisher, confirmations int, logger *zap.Logger) *LifecycleManager {
	if confirmations < 1 {
		confirmations = 1
	}
	return &LifecycleManager{
		incidents:     incidents,
		publisher:     publisher,
		logger:        logger,
		confirmations: confirmations,
		recovery:      make(map[string]int),
		lastVerdict:   make(map[string]database.MonitorStatus),
	}
}

// HandleVerdict applies one classified verdict to the monitor's incident
// state. It returns the monitor's still-active auto incident, or nil
// when there is none or it was just resolved.
func (l *LifecycleManager) HandleVerdict(monitor *database.Monitor, verdict database.MonitorStatus, checkedAt time.Time) (*database.Incident, error) {
	if monitor.Service == nil {
		return nil, fmt.Errorf("monitor %s has no service loaded", monitor.ID)
	}

	auto, err := l.incidents.FindOpenAutoForMonitor(monitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up incident for monitor %s: %w", monitor.ID, err)
	}

	var active *database.Incident
	switch {
	case auto == nil:
		if !verdict.Healthy() {
			active, err = l.openIncident(monitor, verdict, checkedAt)
		}
	case auto.Status == database.IncidentStatusOpen:
		active, err = l.handleOpen(auto, monitor, verdict, checkedAt)
	case auto.Status == database.IncidentStatusMonitoring:
		active, err = l.handleMonitoring(auto, monitor, verdict, checkedAt)
	}
	if err != nil {
		return nil, err
	}

	l.noteManualIncident(monitor, verdict, checkedAt)

	l.mu.Lock()
	l.lastVerdict[monitor.ID] = verdict
	l.mu.Unlock()

	return active, nil
}

// openIncident starts a new auto incident for the first unhealthy verdict
func (l *LifecycleManager) openIncident(monitor *database.Monitor, verdict database.MonitorStatus, checkedAt time.Time) (*database.Incident, error) {
	incident := &database.Incident{
		OrganizationID:     monitor.Service.OrganizationID,
		Title:              fmt.Sprintf("%s is %s", monitor.Name, strings.ToLower(string(verdict))),
		Description:        fmt.Sprintf("Automatically created after monitor %q reported %s.", monitor.Name, verdict),
		Severity:           severityFor(verdict),
		MonitorID:          &monitor.ID,
		ServiceID:          &monitor.ServiceID,
		AffectedServiceIDs: database.StringList{monitor.ServiceID},
	}
	note := fmt.Sprintf("Probe reported %s at %s.", verdict, checkedAt.UTC().Format(time.RFC3339))
	if err := l.incidents.OpenAuto(incident, note); err != nil {
		return nil, fmt.Errorf("failed to open incident: %w", err)
	}

	l.mu.Lock()
	delete(l.recovery, monitor.ID)
	l.mu.Unlock()

	l.logger.Info("opened incident",
		zap.String("incident_id", incident.ID),
		zap.String("monitor_id", monitor.ID),
		zap.String("verdict", string(verdict)),
		zap.String("severity", string(incident.Severity)))
	l.publishEvent(incident, bus.IncidentEventCreated, checkedAt)
	return incident, nil
}

// handleOpen processes a verdict against an OPEN incident
func (l *LifecycleManager) handleOpen(incident *database.Incident, monitor *database.Monitor, verdict database.MonitorStatus, checkedAt time.Time) (*database.Incident, error) {
	if verdict.Healthy() {
		if l.confirmations <= 1 {
			return nil, l.resolve(incident, monitor, checkedAt)
		}
		note := fmt.Sprintf("Probe healthy again, monitoring recovery (1/%d).", l.confirmations)
		updated, err := l.incidents.MarkMonitoring(incident.ID, note)
		if err != nil {
			return nil, fmt.Errorf("failed to mark incident monitoring: %w", err)
		}

		l.mu.Lock()
		l.recovery[monitor.ID] = 1
		l.mu.Unlock()

		l.logger.Info("incident monitoring recovery",
			zap.String("incident_id", incident.ID),
			zap.String("monitor_id", monitor.ID))
		l.publishEvent(updated, bus.IncidentEventMonitoring, checkedAt)
		return updated, nil
	}

	next := escalatedSeverity(incident.Severity, verdict)
	if next == incident.Severity {
		return incident, nil
	}

	note := fmt.Sprintf("Severity raised to %s after %s verdict.", next, verdict)
	updated, err := l.incidents.Escalate(incident.ID, next, note)
	if err != nil {
		return nil, fmt.Errorf("failed to escalate incident: %w", err)
	}

	l.logger.Warn("incident escalated",
		zap.String("incident_id", incident.ID),
		zap.String("monitor_id", monitor.ID),
		zap.String("severity", string(next)))
	l.publishEvent(updated, bus.IncidentEventEscalated, checkedAt)
	return updated, nil
}

// handleMonitoring processes a verdict against an incident awaiting
// recovery confirmation
func (l *LifecycleManager) handleMonitoring(incident *database.Incident, monitor *database.Monitor, verdict database.MonitorStatus, checkedAt time.Time) (*database.Incident, error) {
	if verdict.Healthy() {
		l.mu.Lock()
		streak := l.recovery[monitor.ID] + 1
		l.recovery[monitor.ID] = streak
		l.mu.Unlock()

		if streak >= l.confirmations {
			return nil, l.resolve(incident, monitor, checkedAt)
		}
		return incident, nil
	}

	next := escalatedSeverity(incident.Severity, verdict)
	note := fmt.Sprintf("Relapsed with %s verdict during recovery monitoring.", verdict)
	updated, err := l.incidents.Reopen(incident.ID, next, note)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen incident: %w", err)
	}

	l.mu.Lock()
	delete(l.recovery, monitor.ID)
	l.mu.Unlock()

	l.logger.Warn("incident reopened",
		zap.String("incident_id", incident.ID),
		zap.String("monitor_id", monitor.ID),
		zap.String("severity", string(next)))
	l.publishEvent(updated, bus.IncidentEventReopened, checkedAt)
	return updated, nil
}

func (l *LifecycleManager) resolve(incident *database.Incident, monitor *database.Monitor, checkedAt time.Time) error {
	note := fmt.Sprintf("Recovery confirmed after %d consecutive healthy checks.", l.confirmations)
	resolved, err := l.incidents.Resolve(incident.ID, checkedAt, note)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}

	l.mu.Lock()
	delete(l.recovery, monitor.ID)
	l.mu.Unlock()

	l.logger.Info("incident resolved",
		zap.String("incident_id", incident.ID),
		zap.String("monitor_id", monitor.ID))
	l.publishEvent(resolved, bus.IncidentEventResolved, checkedAt)
	return nil
}

// noteManualIncident appends an informational entry to an active
// manually created incident when the verdict kind changed. Failures are
// logged only; manual incidents never affect verdict processing.
func (l *LifecycleManager) noteManualIncident(monitor *database.Monitor, verdict database.MonitorStatus, checkedAt time.Time) {
	manual, err := l.incidents.FindActiveManualForMonitor(monitor.ID)
	if err != nil {
		l.logger.Warn("failed to look up manual incident",
			zap.String("monitor_id", monitor.ID),
			zap.Error(err))
		return
	}
	if manual == nil {
		return
	}

	l.mu.Lock()
	prev, seen := l.lastVerdict[monitor.ID]
	l.mu.Unlock()
	if !seen || prev == verdict {
		return
	}

	message := fmt.Sprintf("Monitor %s reported %s (previously %s).", monitor.Name, verdict, prev)
	if _, err := l.incidents.AppendUpdate(manual.ID, message, nil); err != nil {
		l.logger.Warn("failed to append manual incident update",
			zap.String("incident_id", manual.ID),
			zap.Error(err))
		return
	}
	l.publishEvent(manual, bus.IncidentEventUpdated, checkedAt)
}

func (l *LifecycleManager) publishEvent(incident *database.Incident, kind bus.IncidentEventKind, ts time.Time) {
	l.publisher.Publish(bus.SubjectIncidentEvent, bus.IncidentEvent{
		OrganizationID: incident.OrganizationID,
		IncidentID:     incident.ID,
		MonitorID:      incident.MonitorID,
		Kind:           kind,
		Severity:       incident.Severity,
		Status:         incident.Status,
		Title:          incident.Title,
		OpenedAt:       incident.CreatedAt,
		Timestamp:      ts,
	})
}

// severityFor maps the first unhealthy verdict to an incident severity
func severityFor(verdict database.MonitorStatus) database.IncidentSeverity {
	if verdict == database.MonitorStatusDown {
		return database.IncidentSeverityHigh
	}
	return database.IncidentSeverityMedium
}

// escalatedSeverity decides the severity after a further unhealthy
// verdict. A DOWN verdict on an incident opened for degradation jumps
// straight to CRITICAL; otherwise severity only ever rises.
func escalatedSeverity(current database.IncidentSeverity, verdict database.MonitorStatus) database.IncidentSeverity {
	if verdict == database.MonitorStatusDown && current == database.IncidentSeverityMedium {
		return database.IncidentSeverityCritical
	}
	if mapped := severityFor(verdict); mapped.Rank() > current.Rank() {
		return mapped
	}
	return current
}
