package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/api"
	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
)

// ========== Service Handlers ==========

// handleCreateService handles POST /api/services
func (h *Handler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req api.CreateServiceRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	org, err := h.orgs.GetByID(req.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "organization not found")
			return
		}
		h.logger.Error("look up organization", zap.String("organization_id", req.OrganizationID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to create service")
		return
	}

	status := req.Status
	if status == "" {
		status = database.ServiceStatusOperational
	}
	service := &database.Service{
		Name:           req.Name,
		Description:    req.Description,
		Status:         status,
		OrganizationID: org.ID,
	}
	if err := h.services.Create(service); err != nil {
		h.logger.Error("create service", zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to create service")
		return
	}

	service.Organization = org
	api.RespondJSON(w, http.StatusCreated, api.ServiceToResponse(*service))
}

// handleListServices handles GET /api/services?organizationId=...
func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organizationId")
	if orgID == "" {
		api.RespondError(w, http.StatusBadRequest, "organizationId query parameter is required")
		return
	}

	services, err := h.services.ListByOrganization(orgID)
	if err != nil {
		h.logger.Error("list services", zap.String("organization_id", orgID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list services")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.ServicesToResponses(services))
}

// handleGetService handles GET /api/services/{serviceId}
func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	service, ok := h.findService(w, r)
	if !ok {
		return
	}
	api.RespondJSON(w, http.StatusOK, api.ServiceToResponse(*service))
}

// handleUpdateService handles PATCH /api/services/{serviceId}.
// Setting status to MAINTENANCE here freezes the derived status until an
// operator lifts it; the aggregator does not overwrite manual maintenance.
func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	service, ok := h.findService(w, r)
	if !ok {
		return
	}

	var req api.UpdateServiceRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Status != nil {
		service.Status = *req.Status
	}
	if req.Description != nil {
		service.Description = *req.Description
	}

	if err := h.services.Update(service); err != nil {
		h.logger.Error("update service", zap.String("service_id", service.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to update service")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.ServiceToResponse(*service))
}

// handleDeleteService handles DELETE /api/services/{serviceId}. The service's
// monitors and their results go with it.
func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	service, ok := h.findService(w, r)
	if !ok {
		return
	}

	monitors, err := h.monitors.ListByService(service.ID)
	if err != nil {
		h.logger.Error("list monitors for delete", zap.String("service_id", service.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to delete service")
		return
	}

	if err := h.services.Delete(service.ID); err != nil {
		h.logger.Error("delete service", zap.String("service_id", service.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to delete service")
		return
	}

	// The engine drops each monitor from its schedule on receipt.
	for _, m := range monitors {
		h.publishMonitorControl(bus.SubjectMonitorDeleted, m.ID)
	}

	api.RespondNoContent(w)
}

// handleMonitorsWithLatest handles GET /api/services/{serviceId}/monitors-with-latest.
// Dashboard listing: every monitor of the service with its most recent probe
// result attached.
func (h *Handler) handleMonitorsWithLatest(w http.ResponseWriter, r *http.Request) {
	service, ok := h.findService(w, r)
	if !ok {
		return
	}

	monitors, err := h.monitors.ListByService(service.ID)
	if err != nil {
		h.logger.Error("list monitors", zap.String("service_id", service.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list monitors")
		return
	}

	out := make([]api.MonitorWithLatest, 0, len(monitors))
	for _, m := range monitors {
		latest, err := h.results.Latest(m.ID)
		if err != nil {
			h.logger.Error("load latest result", zap.String("monitor_id", m.ID), zap.Error(err))
			api.RespondError(w, http.StatusInternalServerError, "failed to list monitors")
			return
		}
		out = append(out, api.MonitorWithLatest{
			MonitorResponse: api.MonitorToResponse(m),
			LatestResult:    api.ResultToLatest(latest),
		})
	}

	api.RespondJSON(w, http.StatusOK, out)
}

// findService loads the service named in the path, writing the error
// response itself when the service cannot be served.
func (h *Handler) findService(w http.ResponseWriter, r *http.Request) (*database.Service, bool) {
	id := r.PathValue("serviceId")
	service, err := h.services.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "service not found")
			return nil, false
		}
		h.logger.Error("look up service", zap.String("service_id", id), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to load service")
		return nil, false
	}
	return service, true
}
