package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/api"
	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
)

// ========== Incident Handlers ==========

// handleCreateIncident handles POST /api/incidents. Incidents created here
// are always manual: the engine appends informational notes to them but
// never transitions or resolves them.
func (h *Handler) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req api.CreateIncidentRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if _, err := h.orgs.GetByID(req.OrganizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "organization not found")
			return
		}
		h.logger.Error("look up organization", zap.String("organization_id", req.OrganizationID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to create incident")
		return
	}

	incident := &database.Incident{
		OrganizationID:     req.OrganizationID,
		Title:              req.Title,
		Description:        req.Description,
		Status:             database.IncidentStatusOpen,
		Severity:           req.Severity,
		AutoCreated:        false,
		AffectedServiceIDs: req.AffectedServiceIDs,
		CreatedByUserID:    req.CreatedByUserID,
	}

	if req.MonitorID != nil {
		monitor, err := h.monitors.GetByID(*req.MonitorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				api.RespondError(w, http.StatusNotFound, "monitor not found")
				return
			}
			h.logger.Error("look up monitor", zap.String("monitor_id", *req.MonitorID), zap.Error(err))
			api.RespondError(w, http.StatusInternalServerError, "failed to create incident")
			return
		}
		incident.MonitorID = &monitor.ID
		incident.ServiceID = &monitor.ServiceID
		incident.AffectedServiceIDs = incident.AffectedServiceIDs.Union(monitor.ServiceID)
	}

	if err := h.incidents.Create(incident); err != nil {
		h.logger.Error("create incident", zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to create incident")
		return
	}

	h.publishIncidentEvent(incident, bus.IncidentEventCreated)

	api.RespondJSON(w, http.StatusCreated, incident)
}

// handleListIncidents handles GET /api/incidents?organizationId=...
// Optional status filter. Responses are paginated when page or per_page is
// present, otherwise a plain newest-first list capped at 500.
func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organizationId")
	if orgID == "" {
		api.RespondError(w, http.StatusBadRequest, "organizationId query parameter is required")
		return
	}

	var status *database.IncidentStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := database.IncidentStatus(v)
		switch s {
		case database.IncidentStatusOpen, database.IncidentStatusMonitoring, database.IncidentStatusResolved:
			status = &s
		default:
			api.RespondError(w, http.StatusBadRequest, "status must be one of OPEN, MONITORING, RESOLVED")
			return
		}
	}

	query := r.URL.Query()
	paginated := query.Get("page") != "" || query.Get("per_page") != ""

	if !paginated {
		incidents, _, err := h.incidents.List(orgID, status, 500, 0)
		if err != nil {
			h.logger.Error("list incidents", zap.String("organization_id", orgID), zap.Error(err))
			api.RespondError(w, http.StatusInternalServerError, "failed to list incidents")
			return
		}
		api.RespondJSON(w, http.StatusOK, incidents)
		return
	}

	p := api.ParsePagination(r)
	incidents, total, err := h.incidents.List(orgID, status, p.PerPage, p.Offset())
	if err != nil {
		h.logger.Error("list incidents", zap.String("organization_id", orgID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list incidents")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: incidents,
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}

// handleGetIncident handles GET /api/incidents/{incidentId}
func (h *Handler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.findIncident(w, r)
	if !ok {
		return
	}
	api.RespondJSON(w, http.StatusOK, incident)
}

// handleUpdateIncident handles PATCH /api/incidents/{incidentId}. Partial
// update of status, resolved_at and description. Resolving without an
// explicit resolved_at stamps the current time; moving back to an active
// status clears it.
func (h *Handler) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.findIncident(w, r)
	if !ok {
		return
	}

	var req api.UpdateIncidentRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	changes := map[string]interface{}{}
	if req.Status != nil {
		changes["status"] = *req.Status
		if *req.Status == database.IncidentStatusResolved {
			resolvedAt := time.Now().UTC()
			if req.ResolvedAt != nil {
				resolvedAt = *req.ResolvedAt
			}
			changes["resolved_at"] = resolvedAt
		} else {
			changes["resolved_at"] = nil
		}
	} else if req.ResolvedAt != nil {
		changes["resolved_at"] = *req.ResolvedAt
	}
	if req.Description != nil {
		changes["description"] = *req.Description
	}

	if len(changes) == 0 {
		api.RespondJSON(w, http.StatusOK, incident)
		return
	}

	updated, err := h.incidents.UpdateFields(incident.ID, changes)
	if err != nil {
		h.logger.Error("update incident", zap.String("incident_id", incident.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to update incident")
		return
	}

	kind := bus.IncidentEventUpdated
	if req.Status != nil && *req.Status == database.IncidentStatusResolved &&
		incident.Status != database.IncidentStatusResolved {
		kind = bus.IncidentEventResolved
	}
	h.publishIncidentEvent(updated, kind)

	api.RespondJSON(w, http.StatusOK, updated)
}

// handleCreateIncidentUpdate handles POST /api/incidents/{incidentId}/updates
func (h *Handler) handleCreateIncidentUpdate(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.findIncident(w, r)
	if !ok {
		return
	}

	var req api.CreateIncidentUpdateRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	update, err := h.incidents.AppendUpdate(incident.ID, req.Message, req.CreatedBy)
	if err != nil {
		h.logger.Error("append incident update", zap.String("incident_id", incident.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to add incident update")
		return
	}

	api.RespondJSON(w, http.StatusCreated, update)
}

// findIncident loads the incident named in the path, writing the error
// response itself when the incident cannot be served.
func (h *Handler) findIncident(w http.ResponseWriter, r *http.Request) (*database.Incident, bool) {
	id := r.PathValue("incidentId")
	incident, err := h.incidents.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "incident not found")
			return nil, false
		}
		h.logger.Error("look up incident", zap.String("incident_id", id), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to load incident")
		return nil, false
	}
	return incident, true
}

// publishIncidentEvent broadcasts a manual incident change so dashboards
// update without polling.
func (h *Handler) publishIncidentEvent(incident *database.Incident, kind bus.IncidentEventKind) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(bus.SubjectIncidentEvent, bus.IncidentEvent{
		OrganizationID: incident.OrganizationID,
		IncidentID:     incident.ID,
		MonitorID:      incident.MonitorID,
		Kind:           kind,
		Severity:       incident.Severity,
		Status:         incident.Status,
		Title:          incident.Title,
		OpenedAt:       incident.CreatedAt,
		Timestamp:      time.Now().UTC(),
	})
}
