package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
)

func TestServiceToResponse_FlattensOrganization(t *testing.T) {
	service := database.Service{
		ID:             "svc-1",
		Name:           "Checkout",
		Status:         database.ServiceStatusOperational,
		OrganizationID: "org-1",
		Organization:   &database.Organization{ID: "org-1", Name: "Acme"},
		Monitors:       []database.Monitor{{ID: "mon-1"}},
	}

	resp := ServiceToResponse(service)

	if resp.Name != "Checkout" {
		t.Errorf("name = %q, want %q", resp.Name, "Checkout")
	}
	if resp.OrganizationName != "Acme" {
		t.Errorf("organization_name = %q, want %q", resp.OrganizationName, "Acme")
	}
	if resp.Service.Organization != nil {
		t.Error("embedded organization should be dropped after flattening")
	}
	if resp.Service.Monitors != nil {
		t.Error("embedded monitors should be dropped from service responses")
	}
}

func TestServiceToResponse_WithoutPreload(t *testing.T) {
	resp := ServiceToResponse(database.Service{ID: "svc-1", Name: "Checkout"})

	if resp.OrganizationName != "" {
		t.Errorf("organization_name = %q, want empty", resp.OrganizationName)
	}
}

func TestServiceResponse_JSONShape(t *testing.T) {
	resp := ServiceToResponse(database.Service{
		ID:           "svc-1",
		Name:         "Checkout",
		Organization: &database.Organization{Name: "Acme"},
	})

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if m["organization_name"] != "Acme" {
		t.Errorf("organization_name = %v, want Acme", m["organization_name"])
	}
	if _, ok := m["organization"]; ok {
		t.Error("nested organization should be omitted from JSON")
	}
	if _, ok := m["monitors"]; ok {
		t.Error("monitors should be omitted from JSON")
	}
}

func TestMonitorToResponse_FlattensService(t *testing.T) {
	monitor := database.Monitor{
		ID:        "mon-1",
		Name:      "checkout-health",
		URL:       "https://checkout.acme.test/health",
		ServiceID: "svc-1",
		Service:   &database.Service{ID: "svc-1", Name: "Checkout"},
	}

	resp := MonitorToResponse(monitor)

	if resp.ServiceName != "Checkout" {
		t.Errorf("service_name = %q, want %q", resp.ServiceName, "Checkout")
	}
	if resp.Monitor.Service != nil {
		t.Error("embedded service should be dropped after flattening")
	}
}

func TestMonitorsToResponses_PreservesOrder(t *testing.T) {
	monitors := []database.Monitor{
		{ID: "mon-1", Name: "first"},
		{ID: "mon-2", Name: "second"},
	}

	resps := MonitorsToResponses(monitors)

	if len(resps) != 2 {
		t.Fatalf("len = %d, want 2", len(resps))
	}
	if resps[0].Name != "first" || resps[1].Name != "second" {
		t.Errorf("order = [%q, %q], want [first, second]", resps[0].Name, resps[1].Name)
	}
}

func TestResultToLatest(t *testing.T) {
	if got := ResultToLatest(nil); got != nil {
		t.Errorf("ResultToLatest(nil) = %v, want nil", got)
	}

	latency := 128
	code := 200
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ResultToLatest(&database.MonitoringResult{
		Status:         database.MonitorStatusUp,
		ResponseTimeMs: &latency,
		HTTPStatusCode: &code,
		CheckedAt:      at,
	})

	if got.Status != database.MonitorStatusUp {
		t.Errorf("status = %s, want UP", got.Status)
	}
	if got.ResponseTimeMs == nil || *got.ResponseTimeMs != 128 {
		t.Errorf("response_time_ms = %v, want 128", got.ResponseTimeMs)
	}
	if got.HTTPStatusCode == nil || *got.HTTPStatusCode != 200 {
		t.Errorf("http_status_code = %v, want 200", got.HTTPStatusCode)
	}
	if !got.CheckedAt.Equal(at) {
		t.Errorf("checked_at = %v, want %v", got.CheckedAt, at)
	}
	if got.Error != nil {
		t.Errorf("error = %v, want nil", got.Error)
	}
}
