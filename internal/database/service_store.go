package database

import (
	"gorm.io/gorm"
)

// ServiceStore manages services and their derived status
type ServiceStore struct {
	db *gorm.DB
}

// NewServiceStore creates a new ServiceStore
func NewServiceStore(db *gorm.DB) *ServiceStore {
	return &ServiceStore{db: db}
}

// Create persists a new service
func (s *ServiceStore) Create(service *Service) error {
	return s.db.Create(service).Error
}

// GetByID retrieves a service by ID
func (s *ServiceStore) GetByID(id string) (*Service, error) {
	var service Service
	if err := s.db.Preload("Organization").First(&service, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// FindByName retrieves a service by name within an organization. The
// seed tool uses names as its stable identifiers.
func (s *ServiceStore) FindByName(organizationID, name string) (*Service, error) {
	var service Service
	err := s.db.Where("organization_id = ? AND name = ?", organizationID, name).
		First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

// ListByOrganization returns all services of an organization
func (s *ServiceStore) ListByOrganization(organizationID string) ([]Service, error) {
	var services []Service
	err := s.db.Preload("Organization").
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

// Update saves changed service fields
func (s *ServiceStore) Update(service *Service) error {
	return s.db.Save(service).Error
}

// UpdateStatus sets only the derived status column
func (s *ServiceStore) UpdateStatus(id string, status ServiceStatus) error {
	return s.db.Model(&Service{}).Where("id = ?", id).Update("status", status).Error
}

// Delete removes a service together with its monitors and their results.
// Incidents are kept; their service references are historical record.
func (s *ServiceStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var monitorIDs []string
		if err := tx.Model(&Monitor{}).Where("service_id = ?", id).Pluck("id", &monitorIDs).Error; err != nil {
			return err
		}
		if len(monitorIDs) > 0 {
			if err := tx.Where("monitor_id IN ?", monitorIDs).Delete(&MonitoringResult{}).Error; err != nil {
				return err
			}
			if err := tx.Where("service_id = ?", id).Delete(&Monitor{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Service{}, "id = ?", id).Error
	})
}
