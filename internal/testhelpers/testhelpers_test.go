package testhelpers

import (
	"testing"
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
)

func TestBuildersPersistWithDefaults(t *testing.T) {
	db := SetupTestDB(t)

	org := NewOrganizationBuilder().Create(t, db)
	if org.ID == "" {
		t.Fatal("expected organization to get an ID")
	}

	service := NewServiceBuilder(org.ID).Create(t, db)
	if service.Status != database.ServiceStatusOperational {
		t.Errorf("default service status = %s, want OPERATIONAL", service.Status)
	}

	monitor := NewMonitorBuilder(service.ID).WithInterval(30).Create(t, db)
	if monitor.IntervalSeconds != 30 {
		t.Errorf("interval = %d, want 30", monitor.IntervalSeconds)
	}
	if !monitor.Active {
		t.Error("expected default monitor to be active")
	}

	result := NewResultBuilder(monitor.ID).
		WithStatus(database.MonitorStatusDegraded).
		WithLatency(900).
		Create(t, db)
	if result.ResponseTimeMs == nil || *result.ResponseTimeMs != 900 {
		t.Errorf("latency = %v, want 900", result.ResponseTimeMs)
	}

	incident := NewIncidentBuilder(org.ID).
		AutoCreatedFor(monitor.ID, service.ID).
		WithSeverity(database.IncidentSeverityHigh).
		Create(t, db)
	if !incident.AutoCreated {
		t.Error("expected auto-created incident")
	}
	if !incident.AffectedServiceIDs.Contains(service.ID) {
		t.Error("expected affected services to include the monitor's service")
	}
}

func TestResolvedBuilderSetsTimestamp(t *testing.T) {
	resolvedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	incident := NewIncidentBuilder("org-1").Resolved(resolvedAt).Build()

	if incident.Status != database.IncidentStatusResolved {
		t.Errorf("status = %s, want RESOLVED", incident.Status)
	}
	if incident.ResolvedAt == nil || !incident.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("resolved at = %v, want %v", incident.ResolvedAt, resolvedAt)
	}
}

func TestWaitForPollsUntilTrue(t *testing.T) {
	flips := 0
	WaitFor(t, time.Second, func() bool {
		flips++
		return flips >= 3
	}, "condition never flipped")

	if flips < 3 {
		t.Errorf("condition evaluated %d times, want at least 3", flips)
	}
}
