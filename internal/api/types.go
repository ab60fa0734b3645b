package api

import (
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
)

// ========== Service Types ==========

// CreateServiceRequest is the request body for POST /api/services.
type CreateServiceRequest struct {
	Name           string                 `json:"name" validate:"required,min=1,max=255"`
	OrganizationID string                 `json:"organization_id" validate:"required"`
	Status         database.ServiceStatus `json:"status" validate:"omitempty,oneof=OPERATIONAL DEGRADED OUTAGE MAINTENANCE"`
	Description    string                 `json:"description" validate:"omitempty,max=2048"`
}

// UpdateServiceRequest is the request body for PATCH /api/services/{serviceId}.
// Nil fields are left untouched.
type UpdateServiceRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,min=1,max=255"`
	Status      *database.ServiceStatus `json:"status" validate:"omitempty,oneof=OPERATIONAL DEGRADED OUTAGE MAINTENANCE"`
	Description *string                 `json:"description" validate:"omitempty,max=2048"`
}

// ServiceResponse is a service with its organization name attached.
type ServiceResponse struct {
	database.Service
	OrganizationName string `json:"organization_name,omitempty"`
}

// ========== Monitor Types ==========

// CreateMonitorRequest is the request body for POST /api/services/{serviceId}/monitors.
// Omitted knobs fall back to the column defaults (GET, HTTP, 60s interval,
// 500ms degraded threshold, 5s timeout, active).
type CreateMonitorRequest struct {
	Name                string               `json:"name" validate:"required,min=1,max=255"`
	URL                 string               `json:"url" validate:"required,url"`
	Method              string               `json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	IntervalSeconds     int                  `json:"interval_seconds" validate:"omitempty,gte=1,lte=86400"`
	Type                database.MonitorType `json:"type" validate:"omitempty,oneof=HTTP TCP DNS ICMP"`
	Headers             database.HeaderList  `json:"headers"`
	Active              *bool                `json:"active"`
	DegradedThresholdMs int                  `json:"degraded_threshold_ms" validate:"omitempty,gte=0,lte=60000"`
	TimeoutMs           int                  `json:"timeout_ms" validate:"omitempty,gte=100,lte=120000"`
}

// UpdateMonitorRequest is the request body for PATCH /api/services/{serviceId}/monitors/{monitorId}.
type UpdateMonitorRequest struct {
	Name                *string               `json:"name" validate:"omitempty,min=1,max=255"`
	URL                 *string               `json:"url" validate:"omitempty,url"`
	Method              *string               `json:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	IntervalSeconds     *int                  `json:"interval_seconds" validate:"omitempty,gte=1,lte=86400"`
	Type                *database.MonitorType `json:"type" validate:"omitempty,oneof=HTTP TCP DNS ICMP"`
	Headers             *database.HeaderList  `json:"headers"`
	Active              *bool                 `json:"active"`
	DegradedThresholdMs *int                  `json:"degraded_threshold_ms" validate:"omitempty,gte=0,lte=60000"`
	TimeoutMs           *int                  `json:"timeout_ms" validate:"omitempty,gte=100,lte=120000"`
}

// MonitorResponse is a monitor with its service name attached, used by the
// flat organization-wide listings.
type MonitorResponse struct {
	database.Monitor
	ServiceName string `json:"service_name,omitempty"`
}

// LatestResult is the most recent probe outcome of a monitor, compacted for
// dashboard listings.
type LatestResult struct {
	Status         database.MonitorStatus `json:"status"`
	ResponseTimeMs *int                   `json:"response_time_ms"`
	HTTPStatusCode *int                   `json:"http_status_code"`
	CheckedAt      time.Time              `json:"checked_at"`
	Error          *string                `json:"error"`
}

// MonitorWithLatest pairs a monitor with its latest result, if any.
type MonitorWithLatest struct {
	MonitorResponse
	LatestResult *LatestResult `json:"latest_result"`
}

// ========== Monitor Stats Types ==========

// HistoryPoint is one probe verdict on the stats timeline.
type HistoryPoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Status    database.MonitorStatus `json:"status"`
}

// MonitorStats is the response body for
// GET /api/services/{serviceId}/monitors/{monitorId}/stats.
// Percentiles are nil when no result in the window carried a response time.
type MonitorStats struct {
	Uptime       float64        `json:"uptime"`
	Failures     int            `json:"failures"`
	TotalPings   int            `json:"total_pings"`
	LastPing     *time.Time     `json:"last_ping"`
	P50          *float64       `json:"p50"`
	P75          *float64       `json:"p75"`
	P90          *float64       `json:"p90"`
	P95          *float64       `json:"p95"`
	P99          *float64       `json:"p99"`
	HistoryGraph []HistoryPoint `json:"history_graph"`
}

// ========== Incident Types ==========

// CreateIncidentRequest is the request body for POST /api/incidents.
// Incidents created here are manual: the monitoring engine never
// transitions them, it only appends informational notes.
type CreateIncidentRequest struct {
	OrganizationID     string                    `json:"organization_id" validate:"required"`
	Title              string                    `json:"title" validate:"required,min=1,max=255"`
	Description        string                    `json:"description" validate:"omitempty,max=4096"`
	Severity           database.IncidentSeverity `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	AffectedServiceIDs database.StringList       `json:"affected_service_ids"`
	MonitorID          *string                   `json:"monitor_id"`
	CreatedByUserID    *string                   `json:"created_by_user_id"`
}

// UpdateIncidentRequest is the request body for PATCH /api/incidents/{incidentId}.
type UpdateIncidentRequest struct {
	Status      *database.IncidentStatus `json:"status" validate:"omitempty,oneof=OPEN MONITORING RESOLVED"`
	ResolvedAt  *time.Time               `json:"resolved_at"`
	Description *string                  `json:"description" validate:"omitempty,max=4096"`
}

// CreateIncidentUpdateRequest is the request body for
// POST /api/incidents/{incidentId}/updates.
type CreateIncidentUpdateRequest struct {
	Message   string  `json:"message" validate:"required,min=1,max=4096"`
	CreatedBy *string `json:"created_by"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
