package api

import "github.com/statusdeck/statusdeck/internal/database"

// ServiceToResponse converts a database Service to its response shape.
// A preloaded organization is flattened to its name.
func ServiceToResponse(service database.Service) ServiceResponse {
	resp := ServiceResponse{Service: service}
	if service.Organization != nil {
		resp.OrganizationName = service.Organization.Name
		resp.Service.Organization = nil
	}
	resp.Service.Monitors = nil
	return resp
}

// ServicesToResponses converts a slice of services to response shapes.
func ServicesToResponses(services []database.Service) []ServiceResponse {
	out := make([]ServiceResponse, len(services))
	for i, s := range services {
		out[i] = ServiceToResponse(s)
	}
	return out
}

// MonitorToResponse converts a database Monitor to its response shape.
// A preloaded service is flattened to its name.
func MonitorToResponse(monitor database.Monitor) MonitorResponse {
	resp := MonitorResponse{Monitor: monitor}
	if monitor.Service != nil {
		resp.ServiceName = monitor.Service.Name
		resp.Monitor.Service = nil
	}
	return resp
}

// MonitorsToResponses converts a slice of monitors to response shapes.
func MonitorsToResponses(monitors []database.Monitor) []MonitorResponse {
	out := make([]MonitorResponse, len(monitors))
	for i, m := range monitors {
		out[i] = MonitorToResponse(m)
	}
	return out
}

// ResultToLatest compacts a monitoring result for dashboard listings.
// Returns nil for monitors that were never probed.
func ResultToLatest(result *database.MonitoringResult) *LatestResult {
	if result == nil {
		return nil
	}
	return &LatestResult{
		Status:         result.Status,
		ResponseTimeMs: result.ResponseTimeMs,
		HTTPStatusCode: result.HTTPStatusCode,
		CheckedAt:      result.CheckedAt,
		Error:          result.Error,
	}
}
