package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/probe"
	"github.com/statusdeck/statusdeck/internal/testhelpers"
)

func setupTestDB(t *testing.T) *gorm.DB {
	return testhelpers.SetupTestDB(t)
}

// seedStack creates an organization, a service and an active monitor
// with the service attached, the shape verdicts arrive in.
func seedStack(t *testing.T, db *gorm.DB) (*database.Organization, *database.Service, *database.Monitor) {
	t.Helper()

	org := testhelpers.NewOrganizationBuilder().Create(t, db)
	service := testhelpers.NewServiceBuilder(org.ID).WithName("Checkout").Create(t, db)
	monitor := testhelpers.NewMonitorBuilder(service.ID).
		WithName("checkout-health").
		WithURL("https://checkout.acme.test/health").
		Create(t, db)
	monitor.Service = &service
	return &org, &service, &monitor
}

type publishedEvent struct {
	subject string
	payload interface{}
}

// fakePublisher records events instead of broadcasting them
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(subject string, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, payload: v})
}

func (p *fakePublisher) bySubject(subject string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.subject == subject {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePublisher) incidentKinds() []bus.IncidentEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kinds []bus.IncidentEventKind
	for _, e := range p.events {
		if e.subject == bus.SubjectIncidentEvent {
			kinds = append(kinds, e.payload.(bus.IncidentEvent).Kind)
		}
	}
	return kinds
}

func newTestEngine(t *testing.T, db *gorm.DB, pub *fakePublisher, confirmations int) *Engine {
	t.Helper()
	logger := zap.NewNop()
	incidents := database.NewIncidentStore(db)
	lifecycle := NewLifecycleManager(incidents, pub, confirmations, logger)
	aggregator := NewAggregator(database.NewServiceStore(db), database.NewMonitorStore(db), database.NewResultStore(db), logger)
	return NewEngine(database.NewResultStore(db), incidents, lifecycle, aggregator, pub, logger)
}

func TestEngine_HealthyOutcome(t *testing.T) {
	db := setupTestDB(t)
	_, service, monitor := seedStack(t, db)
	pub := &fakePublisher{}
	eng := newTestEngine(t, db, pub, 3)

	checkedAt := time.Now().Truncate(time.Second)
	outcome := probe.Outcome{Latency: 120 * time.Millisecond, HTTPStatus: 200}
	if err := eng.ProcessOutcome(monitor, outcome, checkedAt); err != nil {
		t.Fatalf("ProcessOutcome() error = %v", err)
	}

	var result database.MonitoringResult
	if err := db.First(&result, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("result not persisted: %v", err)
	}
	if result.Status != database.MonitorStatusUp {
		t.Errorf("result status = %s, want UP", result.Status)
	}
	if result.ResponseTimeMs == nil || *result.ResponseTimeMs != 120 {
		t.Errorf("response_time_ms = %v, want 120", result.ResponseTimeMs)
	}
	if result.HTTPStatusCode == nil || *result.HTTPStatusCode != 200 {
		t.Errorf("http_status_code = %v, want 200", result.HTTPStatusCode)
	}
	if result.Error != nil {
		t.Errorf("error = %v, want nil", *result.Error)
	}

	resultEvents := pub.bySubject(bus.SubjectMonitorResult)
	if len(resultEvents) != 1 {
		t.Fatalf("expected 1 result event, got %d", len(resultEvents))
	}
	event := resultEvents[0].payload.(bus.MonitorResultEvent)
	if event.ServiceName != service.Name || event.MonitorName != monitor.Name {
		t.Errorf("event display fields wrong: %+v", event)
	}

	// Healthy probe on a healthy service: no status event, no incident
	if n := len(pub.bySubject(bus.SubjectServiceStatus)); n != 0 {
		t.Errorf("expected no service status event, got %d", n)
	}
	if n := len(pub.bySubject(bus.SubjectIncidentEvent)); n != 0 {
		t.Errorf("expected no incident event, got %d", n)
	}
}

func TestEngine_HTTPErrorOpensIncidentAndOutage(t *testing.T) {
	db := setupTestDB(t)
	_, service, monitor := seedStack(t, db)
	pub := &fakePublisher{}
	eng := newTestEngine(t, db, pub, 3)

	outcome := probe.Outcome{Latency: 90 * time.Millisecond, HTTPStatus: 503}
	if err := eng.ProcessOutcome(monitor, outcome, time.Now()); err != nil {
		t.Fatalf("ProcessOutcome() error = %v", err)
	}

	var result database.MonitoringResult
	if err := db.First(&result, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("result not persisted: %v", err)
	}
	if result.Status != database.MonitorStatusDown {
		t.Errorf("result status = %s, want DOWN", result.Status)
	}
	if result.Error == nil || *result.Error != "HTTP error 503" {
		t.Errorf("error = %v, want HTTP error 503", result.Error)
	}

	var loadedService database.Service
	if err := db.First(&loadedService, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("failed to load service: %v", err)
	}
	if loadedService.Status != database.ServiceStatusOutage {
		t.Errorf("service status = %s, want OUTAGE", loadedService.Status)
	}

	var incident database.Incident
	if err := db.First(&incident, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("incident not created: %v", err)
	}
	if incident.Severity != database.IncidentSeverityHigh {
		t.Errorf("severity = %s, want HIGH", incident.Severity)
	}
	if !incident.AffectedServiceIDs.Contains(service.ID) {
		t.Error("service not recorded as affected")
	}

	if n := len(pub.bySubject(bus.SubjectServiceStatus)); n != 1 {
		t.Errorf("expected 1 service status event, got %d", n)
	}
	kinds := pub.incidentKinds()
	if len(kinds) != 1 || kinds[0] != bus.IncidentEventCreated {
		t.Errorf("incident events = %v, want [created]", kinds)
	}
}

func TestEngine_TransportErrorRecordsMessage(t *testing.T) {
	db := setupTestDB(t)
	_, _, monitor := seedStack(t, db)
	pub := &fakePublisher{}
	eng := newTestEngine(t, db, pub, 3)

	outcome := probe.Outcome{Latency: 30 * time.Millisecond, Err: errors.New("dial tcp: connection refused")}
	if err := eng.ProcessOutcome(monitor, outcome, time.Now()); err != nil {
		t.Fatalf("ProcessOutcome() error = %v", err)
	}

	var result database.MonitoringResult
	if err := db.First(&result, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("result not persisted: %v", err)
	}
	if result.Error == nil || !strings.Contains(*result.Error, "connection refused") {
		t.Errorf("error = %v, want transport message", result.Error)
	}
	if result.ResponseTimeMs != nil {
		t.Error("response_time_ms should be nil when no response arrived")
	}
	if result.HTTPStatusCode != nil {
		t.Error("http_status_code should be nil when no response arrived")
	}
}

func TestEngine_DegradedOutcome(t *testing.T) {
	db := setupTestDB(t)
	_, service, monitor := seedStack(t, db)
	pub := &fakePublisher{}
	eng := newTestEngine(t, db, pub, 3)

	outcome := probe.Outcome{Latency: 1200 * time.Millisecond, HTTPStatus: 200}
	if err := eng.ProcessOutcome(monitor, outcome, time.Now()); err != nil {
		t.Fatalf("ProcessOutcome() error = %v", err)
	}

	var loadedService database.Service
	if err := db.First(&loadedService, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("failed to load service: %v", err)
	}
	if loadedService.Status != database.ServiceStatusDegraded {
		t.Errorf("service status = %s, want DEGRADED", loadedService.Status)
	}

	var incident database.Incident
	if err := db.First(&incident, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("incident not created: %v", err)
	}
	if incident.Severity != database.IncidentSeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", incident.Severity)
	}
}

func TestEngine_FullRecoveryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	_, service, monitor := seedStack(t, db)
	pub := &fakePublisher{}
	eng := newTestEngine(t, db, pub, 3)

	down := probe.Outcome{Latency: 50 * time.Millisecond, HTTPStatus: 500}
	up := probe.Outcome{Latency: 50 * time.Millisecond, HTTPStatus: 200}

	at := time.Now().Add(-5 * time.Minute)
	for i, outcome := range []probe.Outcome{down, up, up, up} {
		if err := eng.ProcessOutcome(monitor, outcome, at.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("ProcessOutcome() #%d error = %v", i, err)
		}
	}

	var loadedService database.Service
	if err := db.First(&loadedService, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("failed to load service: %v", err)
	}
	if loadedService.Status != database.ServiceStatusOperational {
		t.Errorf("service status = %s, want OPERATIONAL after recovery", loadedService.Status)
	}

	var incident database.Incident
	if err := db.First(&incident, "monitor_id = ?", monitor.ID).Error; err != nil {
		t.Fatalf("failed to load incident: %v", err)
	}
	if incident.Status != database.IncidentStatusResolved {
		t.Errorf("incident status = %s, want RESOLVED", incident.Status)
	}
	if !incident.AutoResolved || incident.ResolvedAt == nil {
		t.Error("expected auto_resolved with resolved_at set")
	}

	kinds := pub.incidentKinds()
	want := []bus.IncidentEventKind{
		bus.IncidentEventCreated,
		bus.IncidentEventMonitoring,
		bus.IncidentEventResolved,
	}
	if len(kinds) != len(want) {
		t.Fatalf("incident events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("incident events = %v, want %v", kinds, want)
		}
	}

	// OUTAGE on the DOWN verdict, OPERATIONAL on the first UP
	statusEvents := pub.bySubject(bus.SubjectServiceStatus)
	if len(statusEvents) != 2 {
		t.Fatalf("expected 2 service status events, got %d", len(statusEvents))
	}
	last := statusEvents[1].payload.(bus.ServiceStatusEvent)
	if last.NewStatus != database.ServiceStatusOperational {
		t.Errorf("final status event = %s, want OPERATIONAL", last.NewStatus)
	}
}
