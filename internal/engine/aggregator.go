package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/database"
)

// Aggregator derives a service's status from the latest verdict of each
// of its active monitors.
type Aggregator struct {
	services *database.ServiceStore
	monitors *database.MonitorStore
	results  *database.ResultStore
	logger   *zap.Logger
}

// NewAggregator creates a new Aggregator
func NewAggregator(services *database.ServiceStore, monitors *database.MonitorStore, results *database.ResultStore, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		services: services,
		monitors: monitors,
		results:  results,
		logger:   logger,
	}
}

// StatusChange describes a recomputation that actually changed the
// stored service status
type StatusChange struct {
	Service   *database.Service
	OldStatus database.ServiceStatus
	NewStatus database.ServiceStatus
}

// Recompute derives and persists the status of a service. The worst
// latest verdict wins: any DOWN means OUTAGE, otherwise any DEGRADED
// means DEGRADED, otherwise OPERATIONAL. Monitors that are inactive or
// have never been probed contribute nothing.
//
// Returns nil when nothing changed, including when the service is under
// a MAINTENANCE override, so callers broadcast only effective changes.
func (a *Aggregator) Recompute(serviceID string) (*StatusChange, error) {
	service, err := a.services.GetByID(serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}

	if service.Status == database.ServiceStatusMaintenance {
		return nil, nil
	}

	monitors, err := a.monitors.ListActiveByService(serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitors: %w", err)
	}

	var sawDown, sawDegraded bool
	for _, monitor := range monitors {
		latest, err := a.results.Latest(monitor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest result for monitor %s: %w", monitor.ID, err)
		}
		if latest == nil {
			continue
		}
		switch latest.Status {
		case database.MonitorStatusDown:
			sawDown = true
		case database.MonitorStatusDegraded:
			sawDegraded = true
		}
	}

	next := database.ServiceStatusOperational
	if sawDown {
		next = database.ServiceStatusOutage
	} else if sawDegraded {
		next = database.ServiceStatusDegraded
	}

	if next == service.Status {
		return nil, nil
	}

	if err := a.services.UpdateStatus(service.ID, next); err != nil {
		return nil, fmt.Errorf("failed to update service status: %w", err)
	}

	a.logger.Info("service status changed",
		zap.String("service_id", service.ID),
		zap.String("service", service.Name),
		zap.String("old_status", string(service.Status)),
		zap.String("new_status", string(next)))

	change := &StatusChange{
		Service:   service,
		OldStatus: service.Status,
		NewStatus: next,
	}
	service.Status = next
	return change, nil
}
