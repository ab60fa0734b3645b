package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/statusdeck/statusdeck/internal/bus"
	"github.com/statusdeck/statusdeck/internal/database"
)

func TestCreateService(t *testing.T) {
	mux, db, _ := newAPIMux(t)
	org := seedOrg(t, db)

	rec := doJSON(t, mux, http.MethodPost, "/api/services", map[string]interface{}{
		"name":            "Checkout",
		"organization_id": org.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got struct {
		ID               string                 `json:"id"`
		Name             string                 `json:"name"`
		Status           database.ServiceStatus `json:"status"`
		OrganizationName string                 `json:"organization_name"`
	}
	decodeBody(t, rec, &got)
	if got.ID == "" {
		t.Error("expected generated id")
	}
	if got.Name != "Checkout" {
		t.Errorf("name = %q, want Checkout", got.Name)
	}
	if got.Status != database.ServiceStatusOperational {
		t.Errorf("status = %q, want default OPERATIONAL", got.Status)
	}
	if got.OrganizationName != "Acme" {
		t.Errorf("organization_name = %q, want Acme", got.OrganizationName)
	}

	var count int64
	db.Model(&database.Service{}).Count(&count)
	if count != 1 {
		t.Errorf("service rows = %d, want 1", count)
	}
}

func TestCreateService_OrganizationNotFound(t *testing.T) {
	mux, _, _ := newAPIMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/services", map[string]interface{}{
		"name":            "Checkout",
		"organization_id": "no-such-org",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateService_ValidationError(t *testing.T) {
	mux, db, _ := newAPIMux(t)
	org := seedOrg(t, db)

	rec := doJSON(t, mux, http.MethodPost, "/api/services", map[string]interface{}{
		"organization_id": org.ID,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var body struct {
		Error   string            `json:"error"`
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	decodeBody(t, rec, &body)
	if body.Code != "validation_error" {
		t.Errorf("code = %q, want validation_error", body.Code)
	}
	if _, ok := body.Details["name"]; !ok {
		t.Errorf("details = %v, want entry for name", body.Details)
	}
}

func TestListServices_RequiresOrganizationID(t *testing.T) {
	mux, _, _ := newAPIMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/services", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListServices_FiltersByOrganization(t *testing.T) {
	mux, db, _ := newAPIMux(t)
	org := seedOrg(t, db)
	other := &database.Organization{Name: "Other", Domain: "other.test"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("failed to seed second organization: %v", err)
	}
	first := seedSvc(t, db, org.ID, "API")
	second := seedSvc(t, db, org.ID, "Billing")
	seedSvc(t, db, other.ID, "Elsewhere")

	rec := doJSON(t, mux, http.MethodGet, "/api/services?organizationId="+org.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got []struct {
		ID               string `json:"id"`
		OrganizationName string `json:"organization_name"`
	}
	decodeBody(t, rec, &got)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("order = [%s %s], want creation order [%s %s]", got[0].ID, got[1].ID, first.ID, second.ID)
	}
	if got[0].OrganizationName != "Acme" {
		t.Errorf("organization_name = %q, want Acme", got[0].OrganizationName)
	}
}

func TestGetService_NotFound(t *testing.T) {
	mux, _, _ := newAPIMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/services/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateService(t *testing.T) {
	mux, db, _ := newAPIMux(t)
	org := seedOrg(t, db)
	service := seedSvc(t, db, org.ID, "API")

	rec := doJSON(t, mux, http.MethodPatch, "/api/services/"+service.ID, map[string]interface{}{
		"status":      "MAINTENANCE",
		"description": "planned window",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var stored database.Service
	if err := db.First(&stored, "id = ?", service.ID).Error; err != nil {
		t.Fatalf("failed to reload service: %v", err)
	}
	if stored.Status != database.ServiceStatusMaintenance {
		t.Errorf("status = %q, want MAINTENANCE", stored.Status)
	}
	if stored.Description != "planned window" {
		t.Errorf("description = %q, want planned window", stored.Description)
	}
	if stored.Name != "API" {
		t.Errorf("name = %q, want untouched API", stored.Name)
	}
}

func TestDeleteService_CascadesAndNotifiesEngine(t *testing.T) {
	mux, db, pub := newAPIMux(t)
	org := seedOrg(t, db)
	service := seedSvc(t, db, org.ID, "API")
	monitor := seedMon(t, db, service.ID, "api-health")
	seedRes(t, db, monitor.ID, time.Now(), database.MonitorStatusUp, 120)

	rec := doJSON(t, mux, http.MethodDelete, "/api/services/"+service.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	var services, monitors, results int64
	db.Model(&database.Service{}).Count(&services)
	db.Model(&database.Monitor{}).Count(&monitors)
	db.Model(&database.MonitoringResult{}).Count(&results)
	if services != 0 || monitors != 0 || results != 0 {
		t.Errorf("rows after delete = %d/%d/%d, want 0/0/0", services, monitors, results)
	}

	if pub.count(bus.SubjectMonitorDeleted) != 1 {
		t.Fatalf("deleted events = %d, want 1", pub.count(bus.SubjectMonitorDeleted))
	}
	event := pub.last(bus.SubjectMonitorDeleted).(bus.MonitorControlEvent)
	if event.MonitorID != monitor.ID {
		t.Errorf("event monitor id = %q, want %q", event.MonitorID, monitor.ID)
	}
}

func TestMonitorsWithLatest(t *testing.T) {
	mux, db, _ := newAPIMux(t)
	org := seedOrg(t, db)
	service := seedSvc(t, db, org.ID, "API")
	probed := seedMon(t, db, service.ID, "probed")
	fresh := seedMon(t, db, service.ID, "fresh")
	now := time.Now().Truncate(time.Second)
	seedRes(t, db, probed.ID, now.Add(-time.Minute), database.MonitorStatusUp, 80)
	seedRes(t, db, probed.ID, now, database.MonitorStatusDegraded, 900)

	rec := doJSON(t, mux, http.MethodGet, "/api/services/"+service.ID+"/monitors-with-latest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got []struct {
		ID           string `json:"id"`
		ServiceName  string `json:"service_name"`
		LatestResult *struct {
			Status         database.MonitorStatus `json:"status"`
			ResponseTimeMs *int                   `json:"response_time_ms"`
		} `json:"latest_result"`
	}
	decodeBody(t, rec, &got)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	byID := map[string]int{got[0].ID: 0, got[1].ID: 1}
	probedRow := got[byID[probed.ID]]
	freshRow := got[byID[fresh.ID]]

	if probedRow.LatestResult == nil {
		t.Fatal("probed monitor should carry its latest result")
	}
	if probedRow.LatestResult.Status != database.MonitorStatusDegraded {
		t.Errorf("latest status = %q, want the newest DEGRADED probe", probedRow.LatestResult.Status)
	}
	if probedRow.ServiceName != "API" {
		t.Errorf("service_name = %q, want API", probedRow.ServiceName)
	}
	if freshRow.LatestResult != nil {
		t.Errorf("unprobed monitor latest = %+v, want null", freshRow.LatestResult)
	}
}
