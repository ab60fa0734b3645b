package database

import (
	"gorm.io/gorm"
)

// MonitorStore manages monitor definitions
type MonitorStore struct {
	db *gorm.DB
}

// NewMonitorStore creates a new MonitorStore
func NewMonitorStore(db *gorm.DB) *MonitorStore {
	return &MonitorStore{db: db}
}

// Create persists a new monitor
func (s *MonitorStore) Create(monitor *Monitor) error {
	return s.db.Create(monitor).Error
}

// GetByID retrieves a monitor by ID
func (s *MonitorStore) GetByID(id string) (*Monitor, error) {
	var monitor Monitor
	if err := s.db.Preload("Service").First(&monitor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &monitor, nil
}

// GetForService retrieves a monitor by ID scoped to a service. A monitor
// that exists under a different service is not found.
func (s *MonitorStore) GetForService(serviceID, monitorID string) (*Monitor, error) {
	var monitor Monitor
	err := s.db.Preload("Service").
		Where("id = ? AND service_id = ?", monitorID, serviceID).
		First(&monitor).Error
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}

// FindByName retrieves a monitor by name within a service. The seed
// tool uses names as its stable identifiers.
func (s *MonitorStore) FindByName(serviceID, name string) (*Monitor, error) {
	var monitor Monitor
	err := s.db.Where("service_id = ? AND name = ?", serviceID, name).
		First(&monitor).Error
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}

// ListByService returns all monitors attached to a service
func (s *MonitorStore) ListByService(serviceID string) ([]Monitor, error) {
	var monitors []Monitor
	err := s.db.Preload("Service").
		Where("service_id = ?", serviceID).
		Order("created_at ASC").
		Find(&monitors).Error
	if err != nil {
		return nil, err
	}
	return monitors, nil
}

// ListActiveByService returns the active monitors of a service
func (s *MonitorStore) ListActiveByService(serviceID string) ([]Monitor, error) {
	var monitors []Monitor
	err := s.db.Where("service_id = ? AND active = ?", serviceID, true).
		Find(&monitors).Error
	if err != nil {
		return nil, err
	}
	return monitors, nil
}

// ListByOrganization returns all monitors across the organization's services
func (s *MonitorStore) ListByOrganization(organizationID string) ([]Monitor, error) {
	var monitors []Monitor
	err := s.db.Preload("Service").
		Joins("JOIN services ON services.id = monitors.service_id").
		Where("services.organization_id = ?", organizationID).
		Order("monitors.created_at ASC").
		Find(&monitors).Error
	if err != nil {
		return nil, err
	}
	return monitors, nil
}

// ListActive returns every active monitor with its service loaded. The
// scheduler reconciles against this set each dispatch cycle.
func (s *MonitorStore) ListActive() ([]Monitor, error) {
	var monitors []Monitor
	err := s.db.Preload("Service").
		Where("active = ?", true).
		Find(&monitors).Error
	if err != nil {
		return nil, err
	}
	return monitors, nil
}

// Update saves changed monitor fields
func (s *MonitorStore) Update(monitor *Monitor) error {
	return s.db.Save(monitor).Error
}

// Delete removes a monitor and its results. Incidents referencing the
// monitor keep their rows as historical record.
func (s *MonitorStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("monitor_id = ?", id).Delete(&MonitoringResult{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Monitor{}, "id = ?", id).Error
	})
}
