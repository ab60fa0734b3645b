package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/database"
)

// Publisher pushes change events onto the bus. Satisfied by *bus.Conn;
// publishing is best effort, so there is no error to handle here.
type Publisher interface {
	Publish(subject string, v interface{})
}

// Handler serves the REST API for services, monitors and incidents.
type Handler struct {
	orgs      *database.OrganizationStore
	services  *database.ServiceStore
	monitors  *database.MonitorStore
	results   *database.ResultStore
	incidents *database.IncidentStore
	publisher Publisher
	logger    *zap.Logger
}

// NewHandler creates an API handler with stores bound to db.
func NewHandler(db *gorm.DB, publisher Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		orgs:      database.NewOrganizationStore(db),
		services:  database.NewServiceStore(db),
		monitors:  database.NewMonitorStore(db),
		results:   database.NewResultStore(db),
		incidents: database.NewIncidentStore(db),
		publisher: publisher,
		logger:    logger,
	}
}

// SetupRoutes registers all API routes on the mux.
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	// ========== Services ==========
	mux.HandleFunc("POST /api/services", h.handleCreateService)
	mux.HandleFunc("GET /api/services", h.handleListServices)
	mux.HandleFunc("GET /api/services/{serviceId}", h.handleGetService)
	mux.HandleFunc("PATCH /api/services/{serviceId}", h.handleUpdateService)
	mux.HandleFunc("DELETE /api/services/{serviceId}", h.handleDeleteService)
	mux.HandleFunc("GET /api/services/{serviceId}/monitors-with-latest", h.handleMonitorsWithLatest)

	// ========== Monitors ==========
	mux.HandleFunc("POST /api/services/{serviceId}/monitors", h.handleCreateMonitor)
	mux.HandleFunc("GET /api/services/{serviceId}/monitors", h.handleListMonitors)
	mux.HandleFunc("GET /api/services/{serviceId}/monitors/{monitorId}", h.handleGetMonitor)
	mux.HandleFunc("PATCH /api/services/{serviceId}/monitors/{monitorId}", h.handleUpdateMonitor)
	mux.HandleFunc("DELETE /api/services/{serviceId}/monitors/{monitorId}", h.handleDeleteMonitor)
	mux.HandleFunc("GET /api/services/{serviceId}/monitors/{monitorId}/results", h.handleListResults)
	mux.HandleFunc("GET /api/services/{serviceId}/monitors/{monitorId}/stats", h.handleMonitorStats)
	mux.HandleFunc("GET /api/monitors", h.handleListOrganizationMonitors)
	mux.HandleFunc("GET /api/monitors/latest-results", h.handleLatestResults)

	// ========== Incidents ==========
	mux.HandleFunc("POST /api/incidents", h.handleCreateIncident)
	mux.HandleFunc("GET /api/incidents", h.handleListIncidents)
	mux.HandleFunc("GET /api/incidents/{incidentId}", h.handleGetIncident)
	mux.HandleFunc("PATCH /api/incidents/{incidentId}", h.handleUpdateIncident)
	mux.HandleFunc("POST /api/incidents/{incidentId}/updates", h.handleCreateIncidentUpdate)

	// ========== Documentation ==========
	mux.HandleFunc("GET /api/openapi.yaml", h.handleOpenAPISpec)
	mux.HandleFunc("GET /docs", h.handleDocs)
}
