package database

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestServiceStore_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrganization(t, db)
	store := NewServiceStore(db)

	service := &Service{
		Name:           "Checkout",
		Description:    "Payment flow",
		Status:         ServiceStatusOperational,
		OrganizationID: org.ID,
	}
	if err := store.Create(service); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	loaded, err := store.GetByID(service.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if loaded.Name != "Checkout" {
		t.Errorf("loaded name = %q, want Checkout", loaded.Name)
	}
	if loaded.Organization == nil || loaded.Organization.Name != "Acme" {
		t.Error("expected organization to be preloaded")
	}
}

func TestServiceStore_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewServiceStore(db)

	_, err := store.GetByID("missing")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestServiceStore_ListByOrganization(t *testing.T) {
	db := setupTestDB(t)
	store := NewServiceStore(db)

	org := seedOrganization(t, db)
	other := &Organization{Name: "Other", Domain: "other.test"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("failed to seed second organization: %v", err)
	}

	seedService(t, db, org.ID)
	seedService(t, db, org.ID)
	seedService(t, db, other.ID)

	services, err := store.ListByOrganization(org.ID)
	if err != nil {
		t.Fatalf("ListByOrganization() error = %v", err)
	}
	if len(services) != 2 {
		t.Errorf("expected 2 services, got %d", len(services))
	}
}

func TestServiceStore_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrganization(t, db)
	service := seedService(t, db, org.ID)
	store := NewServiceStore(db)

	if err := store.UpdateStatus(service.ID, ServiceStatusOutage); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	loaded, err := store.GetByID(service.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if loaded.Status != ServiceStatusOutage {
		t.Errorf("status = %s, want OUTAGE", loaded.Status)
	}
}

func TestServiceStore_Delete_CascadesMonitorsAndResults(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrganization(t, db)
	service := seedService(t, db, org.ID)
	monitor := seedMonitor(t, db, service.ID)
	store := NewServiceStore(db)

	result := &MonitoringResult{
		MonitorID: monitor.ID,
		CheckedAt: time.Now(),
		Status:    MonitorStatusUp,
	}
	if err := db.Create(result).Error; err != nil {
		t.Fatalf("failed to seed result: %v", err)
	}

	if err := store.Delete(service.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var monitorCount, resultCount int64
	db.Model(&Monitor{}).Where("service_id = ?", service.ID).Count(&monitorCount)
	db.Model(&MonitoringResult{}).Where("monitor_id = ?", monitor.ID).Count(&resultCount)
	if monitorCount != 0 {
		t.Errorf("expected monitors deleted, found %d", monitorCount)
	}
	if resultCount != 0 {
		t.Errorf("expected results deleted, found %d", resultCount)
	}

	if _, err := store.GetByID(service.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected service gone, got %v", err)
	}
}
