package testhelpers

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/database"
)

// ========================================
// Organization Builder
// ========================================

// OrganizationBuilder builds Organization fixtures
type OrganizationBuilder struct {
	org database.Organization
}

// NewOrganizationBuilder creates an organization builder with defaults
func NewOrganizationBuilder() *OrganizationBuilder {
	return &OrganizationBuilder{
		org: database.Organization{
			Name:   "Acme",
			Domain: "acme.test",
		},
	}
}

// WithName sets the organization name
func (b *OrganizationBuilder) WithName(name string) *OrganizationBuilder {
	b.org.Name = name
	return b
}

// WithDomain sets the organization domain
func (b *OrganizationBuilder) WithDomain(domain string) *OrganizationBuilder {
	b.org.Domain = domain
	return b
}

// Build returns the constructed organization
func (b *OrganizationBuilder) Build() database.Organization {
	return b.org
}

// Create persists the organization and returns it with its ID assigned
func (b *OrganizationBuilder) Create(t *testing.T, db *gorm.DB) database.Organization {
	t.Helper()
	org := b.org
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("failed to create organization fixture: %v", err)
	}
	return org
}

// ========================================
// Service Builder
// ========================================

// ServiceBuilder builds Service fixtures
type ServiceBuilder struct {
	service database.Service
}

// NewServiceBuilder creates a service builder with defaults
func NewServiceBuilder(organizationID string) *ServiceBuilder {
	return &ServiceBuilder{
		service: database.Service{
			Name:           "API",
			Status:         database.ServiceStatusOperational,
			OrganizationID: organizationID,
		},
	}
}

// WithName sets the service name
func (b *ServiceBuilder) WithName(name string) *ServiceBuilder {
	b.service.Name = name
	return b
}

// WithDescription sets the description
func (b *ServiceBuilder) WithDescription(desc string) *ServiceBuilder {
	b.service.Description = desc
	return b
}

// WithStatus sets the stored status
func (b *ServiceBuilder) WithStatus(status database.ServiceStatus) *ServiceBuilder {
	b.service.Status = status
	return b
}

// Build returns the constructed service
func (b *ServiceBuilder) Build() database.Service {
	return b.service
}

// Create persists the service and returns it with its ID assigned
func (b *ServiceBuilder) Create(t *testing.T, db *gorm.DB) database.Service {
	t.Helper()
	service := b.service
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("failed to create service fixture: %v", err)
	}
	return service
}

// ========================================
// Monitor Builder
// ========================================

// MonitorBuilder builds Monitor fixtures
type MonitorBuilder struct {
	monitor database.Monitor
}

// NewMonitorBuilder creates a monitor builder with defaults
func NewMonitorBuilder(serviceID string) *MonitorBuilder {
	return &MonitorBuilder{
		monitor: database.Monitor{
			Name:                "api-health",
			URL:                 "https://api.acme.test/health",
			Method:              "GET",
			IntervalSeconds:     60,
			Type:                database.MonitorTypeHTTP,
			Active:              true,
			DegradedThresholdMs: 500,
			TimeoutMs:           5000,
			ServiceID:           serviceID,
		},
	}
}

// WithName sets the monitor name
func (b *MonitorBuilder) WithName(name string) *MonitorBuilder {
	b.monitor.Name = name
	return b
}

// WithURL sets the probe target
func (b *MonitorBuilder) WithURL(url string) *MonitorBuilder {
	b.monitor.URL = url
	return b
}

// WithInterval sets the probe cadence in seconds
func (b *MonitorBuilder) WithInterval(seconds int) *MonitorBuilder {
	b.monitor.IntervalSeconds = seconds
	return b
}

// WithDegradedThreshold sets the latency threshold in milliseconds
func (b *MonitorBuilder) WithDegradedThreshold(ms int) *MonitorBuilder {
	b.monitor.DegradedThresholdMs = ms
	return b
}

// Inactive marks the monitor as not scheduled
func (b *MonitorBuilder) Inactive() *MonitorBuilder {
	b.monitor.Active = false
	return b
}

// Build returns the constructed monitor
func (b *MonitorBuilder) Build() database.Monitor {
	return b.monitor
}

// Create persists the monitor and returns it with its ID assigned
func (b *MonitorBuilder) Create(t *testing.T, db *gorm.DB) database.Monitor {
	t.Helper()
	monitor := b.monitor
	if err := db.Create(&monitor).Error; err != nil {
		t.Fatalf("failed to create monitor fixture: %v", err)
	}
	return monitor
}

// ========================================
// Monitoring Result Builder
// ========================================

// ResultBuilder builds MonitoringResult fixtures
type ResultBuilder struct {
	result database.MonitoringResult
}

// NewResultBuilder creates a result builder with defaults: a healthy
// probe observed now
func NewResultBuilder(monitorID string) *ResultBuilder {
	return &ResultBuilder{
		result: database.MonitoringResult{
			MonitorID: monitorID,
			CheckedAt: time.Now(),
			Status:    database.MonitorStatusUp,
		},
	}
}

// At sets the observation time
func (b *ResultBuilder) At(at time.Time) *ResultBuilder {
	b.result.CheckedAt = at
	return b
}

// WithStatus sets the verdict
func (b *ResultBuilder) WithStatus(status database.MonitorStatus) *ResultBuilder {
	b.result.Status = status
	return b
}

// WithLatency sets the response time in milliseconds
func (b *ResultBuilder) WithLatency(ms int) *ResultBuilder {
	b.result.ResponseTimeMs = &ms
	return b
}

// WithHTTPStatus sets the observed HTTP status code
func (b *ResultBuilder) WithHTTPStatus(code int) *ResultBuilder {
	b.result.HTTPStatusCode = &code
	return b
}

// WithError sets the probe error text
func (b *ResultBuilder) WithError(msg string) *ResultBuilder {
	b.result.Error = &msg
	return b
}

// Build returns the constructed result
func (b *ResultBuilder) Build() database.MonitoringResult {
	return b.result
}

// Create persists the result and returns it with its ID assigned
func (b *ResultBuilder) Create(t *testing.T, db *gorm.DB) database.MonitoringResult {
	t.Helper()
	result := b.result
	if err := db.Create(&result).Error; err != nil {
		t.Fatalf("failed to create result fixture: %v", err)
	}
	return result
}

// ========================================
// Incident Builder
// ========================================

// IncidentBuilder builds Incident fixtures
type IncidentBuilder struct {
	incident database.Incident
}

// NewIncidentBuilder creates an incident builder with defaults: a
// manually opened MEDIUM incident
func NewIncidentBuilder(organizationID string) *IncidentBuilder {
	return &IncidentBuilder{
		incident: database.Incident{
			OrganizationID: organizationID,
			Title:          "Checkout is degraded",
			Status:         database.IncidentStatusOpen,
			Severity:       database.IncidentSeverityMedium,
		},
	}
}

// WithTitle sets the title
func (b *IncidentBuilder) WithTitle(title string) *IncidentBuilder {
	b.incident.Title = title
	return b
}

// WithStatus sets the lifecycle status
func (b *IncidentBuilder) WithStatus(status database.IncidentStatus) *IncidentBuilder {
	b.incident.Status = status
	return b
}

// WithSeverity sets the severity
func (b *IncidentBuilder) WithSeverity(severity database.IncidentSeverity) *IncidentBuilder {
	b.incident.Severity = severity
	return b
}

// AutoCreatedFor marks the incident as engine-created for a monitor
func (b *IncidentBuilder) AutoCreatedFor(monitorID, serviceID string) *IncidentBuilder {
	b.incident.AutoCreated = true
	b.incident.MonitorID = &monitorID
	b.incident.ServiceID = &serviceID
	b.incident.AffectedServiceIDs = b.incident.AffectedServiceIDs.Union(serviceID)
	return b
}

// Resolved marks the incident resolved at the given time
func (b *IncidentBuilder) Resolved(at time.Time) *IncidentBuilder {
	b.incident.Status = database.IncidentStatusResolved
	b.incident.ResolvedAt = &at
	return b
}

// Build returns the constructed incident
func (b *IncidentBuilder) Build() database.Incident {
	return b.incident
}

// Create persists the incident and returns it with its ID assigned
func (b *IncidentBuilder) Create(t *testing.T, db *gorm.DB) database.Incident {
	t.Helper()
	incident := b.incident
	if err := db.Create(&incident).Error; err != nil {
		t.Fatalf("failed to create incident fixture: %v", err)
	}
	return incident
}
