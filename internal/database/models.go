package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Header is a single custom HTTP header attached to a monitor's probe requests.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HeaderList is a custom type storing monitor headers as a JSONB column
type HeaderList []Header

// Scan implements the sql.Scanner interface
func (h *HeaderList) Scan(value interface{}) error {
	if value == nil {
		*h = HeaderList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, h)
}

// Value implements the driver.Valuer interface
func (h HeaderList) Value() (driver.Value, error) {
	if h == nil {
		return json.Marshal(HeaderList{})
	}
	return json.Marshal(h)
}

// Map flattens the list into a key/value map for building probe requests.
// Later entries win on duplicate keys.
func (h HeaderList) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		if hdr.Key != "" {
			m[hdr.Key] = hdr.Value
		}
	}
	return m
}

// StringList is a custom type storing a set of string IDs as a JSONB column
type StringList []string

// Scan implements the sql.Scanner interface
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(StringList{})
	}
	return json.Marshal(s)
}

// Contains reports whether id is already in the list.
func (s StringList) Contains(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Union returns the list with id added if it was not present.
func (s StringList) Union(id string) StringList {
	if id == "" || s.Contains(id) {
		return s
	}
	return append(s, id)
}

// UserRole represents a user's role within an organization
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// ServiceStatus represents the derived health status of a service
type ServiceStatus string

const (
	ServiceStatusOperational ServiceStatus = "OPERATIONAL"
	ServiceStatusDegraded    ServiceStatus = "DEGRADED"
	ServiceStatusOutage      ServiceStatus = "OUTAGE"
	ServiceStatusMaintenance ServiceStatus = "MAINTENANCE"
)

// MonitorType represents the probe strategy for a monitor.
// HTTP is the only implemented strategy; the remaining values are
// reserved so the column is a closed set rather than free-form text.
type MonitorType string

const (
	MonitorTypeHTTP MonitorType = "HTTP"
	MonitorTypeTCP  MonitorType = "TCP"
	MonitorTypeDNS  MonitorType = "DNS"
	MonitorTypeICMP MonitorType = "ICMP"
)

// MonitorStatus is the verdict of a single probe
type MonitorStatus string

const (
	MonitorStatusUp       MonitorStatus = "UP"
	MonitorStatusDegraded MonitorStatus = "DEGRADED"
	MonitorStatusDown     MonitorStatus = "DOWN"
)

// Healthy reports whether the verdict counts as a healthy check.
func (s MonitorStatus) Healthy() bool {
	return s == MonitorStatusUp
}

// WorseThan reports whether s is a less healthy verdict than other
// (UP < DEGRADED < DOWN).
func (s MonitorStatus) WorseThan(other MonitorStatus) bool {
	return s.rank() > other.rank()
}

func (s MonitorStatus) rank() int {
	switch s {
	case MonitorStatusDegraded:
		return 1
	case MonitorStatusDown:
		return 2
	default:
		return 0
	}
}

// IncidentStatus represents the lifecycle state of an incident
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "OPEN"
	IncidentStatusMonitoring IncidentStatus = "MONITORING"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
)

// IncidentSeverity represents how badly an incident impacts a service
type IncidentSeverity string

const (
	IncidentSeverityLow      IncidentSeverity = "LOW"
	IncidentSeverityMedium   IncidentSeverity = "MEDIUM"
	IncidentSeverityHigh     IncidentSeverity = "HIGH"
	IncidentSeverityCritical IncidentSeverity = "CRITICAL"
)

// Rank orders severities for escalation comparisons (LOW < MEDIUM < HIGH < CRITICAL).
func (s IncidentSeverity) Rank() int {
	switch s {
	case IncidentSeverityMedium:
		return 1
	case IncidentSeverityHigh:
		return 2
	case IncidentSeverityCritical:
		return 3
	default:
		return 0
	}
}

// GetSeverityEmoji returns an emoji for the incident severity
func GetSeverityEmoji(severity IncidentSeverity) string {
	switch severity {
	case IncidentSeverityCritical:
		return ":red_circle:"
	case IncidentSeverityHigh:
		return ":large_orange_circle:"
	case IncidentSeverityMedium:
		return ":large_yellow_circle:"
	case IncidentSeverityLow:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

// Organization is the tenant boundary; every service, user and incident
// belongs to exactly one organization.
type Organization struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Domain    string    `gorm:"uniqueIndex;size:255;not null" json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Users    []User    `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Services []Service `gorm:"foreignKey:OrganizationID" json:"services,omitempty"`
}

// BeforeCreate assigns a UUID primary key
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// User is a member of an organization. Managed by the seed tool and the
// external account surface; the engine never touches users.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"size:255;not null;uniqueIndex:idx_users_email_org" json:"email"`
	HashedPassword string    `gorm:"type:text;not null" json:"-"`
	Name           string    `gorm:"size:255" json:"name"`
	Role           UserRole  `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	OrganizationID string    `gorm:"size:36;not null;index;uniqueIndex:idx_users_email_org" json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Service is a customer-facing component whose status is derived from its
// monitors. MAINTENANCE is an operator override: while set, the automatic
// recomputation leaves the status alone.
type Service struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	Name           string        `gorm:"size:255;not null" json:"name"`
	Description    string        `gorm:"type:text" json:"description"`
	Status         ServiceStatus `gorm:"type:varchar(20);not null;default:'OPERATIONAL'" json:"status"`
	OrganizationID string        `gorm:"size:36;not null;index" json:"organization_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Monitors     []Monitor     `gorm:"foreignKey:ServiceID" json:"monitors,omitempty"`
}

// BeforeCreate assigns a UUID primary key
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Monitor is one probed endpoint. The engine reads monitors but never
// writes them; edits arrive through the CRUD surface and are picked up
// on the next dispatch cycle.
type Monitor struct {
	ID                  string      `gorm:"primaryKey;size:36" json:"id"`
	Name                string      `gorm:"size:255;not null" json:"name"`
	URL                 string      `gorm:"type:text;not null" json:"url"`
	Method              string      `gorm:"size:10;not null;default:'GET'" json:"method"`
	IntervalSeconds     int         `gorm:"not null;default:60" json:"interval_seconds"`
	Type                MonitorType `gorm:"type:varchar(10);not null;default:'HTTP'" json:"type"`
	Headers             HeaderList  `gorm:"type:jsonb" json:"headers"`
	Active              bool        `gorm:"not null;default:true" json:"active"`
	DegradedThresholdMs int         `gorm:"not null;default:500" json:"degraded_threshold_ms"`
	TimeoutMs           int         `gorm:"not null;default:5000" json:"timeout_ms"`
	ServiceID           string      `gorm:"size:36;not null;index" json:"service_id"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	// Relationships
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

// BeforeCreate assigns a UUID primary key
func (m *Monitor) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Interval returns the probe cadence as a duration.
func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// Timeout returns the per-probe deadline as a duration.
func (m *Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// DegradedThreshold returns the latency threshold as a duration.
func (m *Monitor) DegradedThreshold() time.Duration {
	return time.Duration(m.DegradedThresholdMs) * time.Millisecond
}

// MonitoringResult is the append-only record of a single probe. Rows are
// never mutated and survive monitor deactivation; only the retention
// sweeper removes them, by age.
type MonitoringResult struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	MonitorID      string        `gorm:"size:36;not null;index:idx_results_monitor_checked" json:"monitor_id"`
	CheckedAt      time.Time     `gorm:"not null;index:idx_results_monitor_checked" json:"checked_at"`
	Status         MonitorStatus `gorm:"type:varchar(10);not null" json:"status"`
	ResponseTimeMs *int          `json:"response_time_ms"`
	HTTPStatusCode *int          `json:"http_status_code"`
	Error          *string       `gorm:"type:text" json:"error"`
	CreatedAt      time.Time     `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key
func (r *MonitoringResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Incident tracks an outage or degradation. Auto-created incidents are
// driven by the lifecycle state machine; manually created ones only ever
// receive informational updates from the engine.
type Incident struct {
	ID                 string           `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID     string           `gorm:"size:36;not null;index" json:"organization_id"`
	Title              string           `gorm:"size:255;not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	Status             IncidentStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Severity           IncidentSeverity `gorm:"type:varchar(20);not null;default:'LOW'" json:"severity"`
	AutoCreated        bool             `gorm:"not null;default:false;index" json:"auto_created"`
	AutoResolved       bool             `gorm:"not null;default:false" json:"auto_resolved"`
	MonitorID          *string          `gorm:"size:36;index" json:"monitor_id"`
	ServiceID          *string          `gorm:"size:36" json:"service_id"`
	AffectedServiceIDs StringList       `gorm:"type:jsonb" json:"affected_service_ids"`
	CreatedByUserID    *string          `gorm:"size:36" json:"created_by_user_id"`
	ResolvedAt         *time.Time       `json:"resolved_at"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`

	// Relationships
	Updates []IncidentUpdate `gorm:"foreignKey:IncidentID" json:"updates,omitempty"`
}

// BeforeCreate assigns a UUID primary key
func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the incident is still open or in its
// recovery-confirmation window.
func (i *Incident) IsActive() bool {
	return i.Status == IncidentStatusOpen || i.Status == IncidentStatusMonitoring
}

// IncidentUpdate is an append-only narrative entry on an incident,
// ordered by creation time.
type IncidentUpdate struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	IncidentID string    `gorm:"size:36;not null;index" json:"incident_id"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	CreatedBy  *string   `gorm:"size:36" json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key
func (u *IncidentUpdate) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides for explicit table naming
func (Organization) TableName() string {
	return "organizations"
}

func (User) TableName() string {
	return "users"
}

func (Service) TableName() string {
	return "services"
}

func (Monitor) TableName() string {
	return "monitors"
}

func (MonitoringResult) TableName() string {
	return "monitoring_results"
}

func (Incident) TableName() string {
	return "incidents"
}

func (IncidentUpdate) TableName() string {
	return "incident_updates"
}
