package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/probe"
)

const (
	resultInsertAttempts = 3
	resultInsertBackoff  = 500 * time.Millisecond
)

// Engine turns completed probes into persisted results, incident
// transitions, service status updates and broadcast events.
type Engine struct {
	results    *database.ResultStore
	incidents  *database.IncidentStore
	lifecycle  *LifecycleManager
	aggregator *Aggregator
	publisher  Publisher
	logger     *zap.Logger
}

// NewEngine creates a new Engine
func NewEngine(results *database.ResultStore, incidents *database.IncidentStore, lifecycle *LifecycleManager, aggregator *Aggregator, publisher Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		results:    results,
		incidents:  incidents,
		lifecycle:  lifecycle,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
	}
}

// ProcessOutcome runs the processing pipeline for one probe: classify,
// persist, broadcast, drive the incident lifecycle, recompute the
// service status. A verdict that cannot be persisted is discarded
// whole: no event, no lifecycle transition, no aggregation.
func (e *Engine) ProcessOutcome(monitor *database.Monitor, outcome probe.Outcome, checkedAt time.Time) error {
	if monitor.Service == nil {
		return fmt.Errorf("monitor %s has no service loaded", monitor.ID)
	}

	verdict := Classify(outcome, monitor.DegradedThreshold())

	result := &database.MonitoringResult{
		MonitorID: monitor.ID,
		CheckedAt: checkedAt,
		Status:    verdict,
	}
	if outcome.Err != nil {
		errText := outcome.Err.Error()
		result.Error = &errText
	} else {
		latency := int(outcome.Latency.Milliseconds())
		status := outcome.HTTPStatus
		result.ResponseTimeMs = &latency
		result.HTTPStatusCode = &status
		if verdict == database.MonitorStatusDown {
			errText := fmt.Sprintf("HTTP error %d", outcome.HTTPStatus)
			result.Error = &errText
		}
	}

	if err := e.insertWithRetry(result); err != nil {
		return err
	}

	e.publisher.Publish(bus.SubjectMonitorResult, bus.MonitorResultEvent{
		OrganizationID: monitor.Service.OrganizationID,
		MonitorID:      monitor.ID,
		MonitorName:    monitor.Name,
		ServiceID:      monitor.ServiceID,
		ServiceName:    monitor.Service.Name,
		Status:         verdict,
		ResponseTimeMs: result.ResponseTimeMs,
		HTTPStatusCode: result.HTTPStatusCode,
		Error:          result.Error,
		CheckedAt:      checkedAt,
	})

	incident, err := e.lifecycle.HandleVerdict(monitor, verdict, checkedAt)
	if err != nil {
		// The verdict is already durable; aggregation still runs
		e.logger.Error("incident lifecycle failed",
			zap.String("monitor_id", monitor.ID),
			zap.Error(err))
	}

	change, err := e.aggregator.Recompute(monitor.ServiceID)
	if err != nil {
		e.logger.Error("service status recomputation failed",
			zap.String("service_id", monitor.ServiceID),
			zap.Error(err))
		return nil
	}
	if change == nil {
		return nil
	}

	e.publisher.Publish(bus.SubjectServiceStatus, bus.ServiceStatusEvent{
		OrganizationID: change.Service.OrganizationID,
		ServiceID:      change.Service.ID,
		ServiceName:    change.Service.Name,
		OldStatus:      change.OldStatus,
		NewStatus:      change.NewStatus,
		ChangedAt:      checkedAt,
	})

	if incident != nil && incident.IsActive() {
		if _, err := e.incidents.UnionAffectedService(incident.ID, change.Service.ID); err != nil {
			e.logger.Warn("failed to record affected service",
				zap.String("incident_id", incident.ID),
				zap.String("service_id", change.Service.ID),
				zap.Error(err))
		}
	}

	return nil
}

// insertWithRetry persists a result with a short bounded backoff so a
// transient database hiccup does not drop a verdict.
func (e *Engine) insertWithRetry(result *database.MonitoringResult) error {
	delay := resultInsertBackoff
	var err error
	for attempt := 1; attempt <= resultInsertAttempts; attempt++ {
		err = e.results.Insert(result)
		if err == nil {
			return nil
		}
		e.logger.Warn("failed to insert monitoring result",
			zap.String("monitor_id", result.MonitorID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < resultInsertAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("failed to persist result after %d attempts: %w", resultInsertAttempts, err)
}
