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

const (
	defaultResultLimit = 100
	maxResultLimit     = 500
)

// ========== Monitor Handlers ==========

// handleCreateMonitor handles POST /api/services/{serviceId}/monitors
func (h *Handler) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	service, ok := h.findService(w, r)
	if !ok {
		return
	}

	var req api.CreateMonitorRequest
	fieldErrors, err := api.DecodeValid(r, &req)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	monitor := &database.Monitor{
		Name:                req.Name,
		URL:                 req.URL,
		Method:              "GET",
		IntervalSeconds:     60,
		Type:                database.MonitorTypeHTTP,
		Headers:             req.Headers,
		Active:              true,
		DegradedThresholdMs: 500,
		TimeoutMs:           5000,
		ServiceID:           service.ID,
	}
	if req.Method != "" {
		monitor.Method = req.Method
	}
	if req.IntervalSeconds != 0 {
		monitor.IntervalSeconds = req.IntervalSeconds
	}
	if req.Type != "" {
		monitor.Type = req.Type
	}
	if req.Active != nil {
		monitor.Active = *req.Active
	}
	if req.DegradedThresholdMs != 0 {
		monitor.DegradedThresholdMs = req.DegradedThresholdMs
	}
	if req.TimeoutMs != 0 {
		monitor.TimeoutMs = req.TimeoutMs
	}

	if err := h.monitors.Create(monitor); err != nil {
		h.logger.Error("create monitor", zap.String("service_id", service.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to create monitor")
		return
	}

	h.publishMonitorControl(bus.SubjectMonitorCreated, monitor.ID)

	monitor.Service = service
	api.RespondJSON(w, http.StatusCreated, api.MonitorToResponse(*monitor))
}

// handleListMonitors handles GET /api/services/{serviceId}/monitors
func (h *Handler) handleListMonitors(w http.ResponseWriter, r *http.Request) {
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

	api.RespondJSON(w, http.StatusOK, api.MonitorsToResponses(monitors))
}

// handleGetMonitor handles GET /api/services/{serviceId}/monitors/{monitorId}
func (h *Handler) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.findMonitor(w, r)
	if !ok {
		return
	}
	api.RespondJSON(w, http.StatusOK, api.MonitorToResponse(*monitor))
}

// handleUpdateMonitor handles PATCH /api/services/{serviceId}/monitors/{monitorId}.
// The engine reschedules the monitor when the change event lands, so a
// shortened interval takes effect without waiting out the old one.
func (h *Handler) handleUpdateMonitor(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	var req api.UpdateMonitorRequest
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
		monitor.Name = *req.Name
	}
	if req.URL != nil {
		monitor.URL = *req.URL
	}
	if req.Method != nil {
		monitor.Method = *req.Method
	}
	if req.IntervalSeconds != nil {
		monitor.IntervalSeconds = *req.IntervalSeconds
	}
	if req.Type != nil {
		monitor.Type = *req.Type
	}
	if req.Headers != nil {
		monitor.Headers = *req.Headers
	}
	if req.Active != nil {
		monitor.Active = *req.Active
	}
	if req.DegradedThresholdMs != nil {
		monitor.DegradedThresholdMs = *req.DegradedThresholdMs
	}
	if req.TimeoutMs != nil {
		monitor.TimeoutMs = *req.TimeoutMs
	}

	if err := h.monitors.Update(monitor); err != nil {
		h.logger.Error("update monitor", zap.String("monitor_id", monitor.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to update monitor")
		return
	}

	h.publishMonitorControl(bus.SubjectMonitorUpdated, monitor.ID)

	api.RespondJSON(w, http.StatusOK, api.MonitorToResponse(*monitor))
}

// handleDeleteMonitor handles DELETE /api/services/{serviceId}/monitors/{monitorId}
func (h *Handler) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	if err := h.monitors.Delete(monitor.ID); err != nil {
		h.logger.Error("delete monitor", zap.String("monitor_id", monitor.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to delete monitor")
		return
	}

	h.publishMonitorControl(bus.SubjectMonitorDeleted, monitor.ID)

	api.RespondNoContent(w)
}

// handleListResults handles GET /api/services/{serviceId}/monitors/{monitorId}/results.
// Rows come back newest first; limit defaults to 100 and caps at 500, and
// from/to narrow the window.
func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	from, to, err := api.ParseTimeRange(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := api.ParseLimit(r, defaultResultLimit, maxResultLimit)

	results, err := h.results.ListByMonitor(monitor.ID, limit, from, to)
	if err != nil {
		h.logger.Error("list results", zap.String("monitor_id", monitor.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	api.RespondJSON(w, http.StatusOK, results)
}

// handleMonitorStats handles GET /api/services/{serviceId}/monitors/{monitorId}/stats.
// Uptime, failure counts and latency percentiles over the requested window,
// or over the full history when no window is given.
func (h *Handler) handleMonitorStats(w http.ResponseWriter, r *http.Request) {
	monitor, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	from, to, err := api.ParseTimeRange(r)
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.results.ListRange(monitor.ID, from, to)
	if err != nil {
		h.logger.Error("load results for stats", zap.String("monitor_id", monitor.ID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.ComputeMonitorStats(results))
}

// handleListOrganizationMonitors handles GET /api/monitors?organizationId=...
func (h *Handler) handleListOrganizationMonitors(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organizationId")
	if orgID == "" {
		api.RespondError(w, http.StatusBadRequest, "organizationId query parameter is required")
		return
	}

	monitors, err := h.monitors.ListByOrganization(orgID)
	if err != nil {
		h.logger.Error("list organization monitors", zap.String("organization_id", orgID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list monitors")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.MonitorsToResponses(monitors))
}

// handleLatestResults handles GET /api/monitors/latest-results?organizationId=...
// One row per monitor across the whole organization, each with its most
// recent probe result. Backs the all-services dashboard.
func (h *Handler) handleLatestResults(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organizationId")
	if orgID == "" {
		api.RespondError(w, http.StatusBadRequest, "organizationId query parameter is required")
		return
	}

	monitors, err := h.monitors.ListByOrganization(orgID)
	if err != nil {
		h.logger.Error("list organization monitors", zap.String("organization_id", orgID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to list latest results")
		return
	}

	out := make([]api.MonitorWithLatest, 0, len(monitors))
	for _, m := range monitors {
		latest, err := h.results.Latest(m.ID)
		if err != nil {
			h.logger.Error("load latest result", zap.String("monitor_id", m.ID), zap.Error(err))
			api.RespondError(w, http.StatusInternalServerError, "failed to list latest results")
			return
		}
		out = append(out, api.MonitorWithLatest{
			MonitorResponse: api.MonitorToResponse(m),
			LatestResult:    api.ResultToLatest(latest),
		})
	}

	api.RespondJSON(w, http.StatusOK, out)
}

// findMonitor loads the monitor named in the path, scoped to its service. A
// monitor reached through the wrong service is not found.
func (h *Handler) findMonitor(w http.ResponseWriter, r *http.Request) (*database.Monitor, bool) {
	serviceID := r.PathValue("serviceId")
	monitorID := r.PathValue("monitorId")
	monitor, err := h.monitors.GetForService(serviceID, monitorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "monitor not found")
			return nil, false
		}
		h.logger.Error("look up monitor", zap.String("monitor_id", monitorID), zap.Error(err))
		api.RespondError(w, http.StatusInternalServerError, "failed to load monitor")
		return nil, false
	}
	return monitor, true
}

// publishMonitorControl tells the engine a monitor was created, changed or
// removed so it can reconcile the schedule immediately.
func (h *Handler) publishMonitorControl(subject, monitorID string) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(subject, bus.MonitorControlEvent{MonitorID: monitorID})
}
