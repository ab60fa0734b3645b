package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// IncidentStore manages incidents and their update timeline
type IncidentStore struct {
	db *gorm.DB
}

// NewIncidentStore creates a new IncidentStore
func NewIncidentStore(db *gorm.DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// Create persists a manually reported incident
func (s *IncidentStore) Create(incident *Incident) error {
	return s.db.Create(incident).Error
}

// GetByID retrieves an incident with its updates in timeline order
func (s *IncidentStore) GetByID(id string) (*Incident, error) {
	var incident Incident
	err := s.db.Preload("Updates", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&incident, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// List returns incidents of an organization newest-first with their
// timelines, optionally filtered by status, plus the total count for
// pagination.
func (s *IncidentStore) List(organizationID string, status *IncidentStatus, limit, offset int) ([]Incident, int64, error) {
	query := s.db.Model(&Incident{}).Where("organization_id = ?", organizationID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var incidents []Incident
	err := query.Preload("Updates", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&incidents).Error
	if err != nil {
		return nil, 0, err
	}
	return incidents, total, nil
}

// FindOpenAutoForMonitor returns the unresolved auto-created incident
// bound to a monitor, or nil when the monitor has none. The lifecycle
// keeps at most one.
func (s *IncidentStore) FindOpenAutoForMonitor(monitorID string) (*Incident, error) {
	var incident Incident
	err := s.db.Where("monitor_id = ? AND auto_created = ? AND status <> ?",
		monitorID, true, IncidentStatusResolved).
		Order("created_at DESC").
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &incident, nil
}

// FindActiveManualForMonitor returns the unresolved manually created
// incident bound to a monitor, or nil when there is none
func (s *IncidentStore) FindActiveManualForMonitor(monitorID string) (*Incident, error) {
	var incident Incident
	err := s.db.Where("monitor_id = ? AND auto_created = ? AND status <> ?",
		monitorID, false, IncidentStatusResolved).
		Order("created_at DESC").
		First(&incident).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &incident, nil
}

// OpenAuto creates an engine-opened incident together with its first
// timeline entry in one transaction
func (s *IncidentStore) OpenAuto(incident *Incident, note string) error {
	incident.AutoCreated = true
	incident.Status = IncidentStatusOpen
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(incident).Error; err != nil {
			return err
		}
		update := &IncidentUpdate{
			IncidentID: incident.ID,
			Message:    note,
		}
		return tx.Create(update).Error
	})
}

// transition applies field changes and appends a timeline entry in one
// transaction, then returns the reloaded incident.
func (s *IncidentStore) transition(id string, changes map[string]interface{}, note string) (*Incident, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Incident{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		update := &IncidentUpdate{
			IncidentID: id,
			Message:    note,
		}
		return tx.Create(update).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Escalate raises the incident severity
func (s *IncidentStore) Escalate(id string, severity IncidentSeverity, note string) (*Incident, error) {
	return s.transition(id, map[string]interface{}{"severity": severity}, note)
}

// MarkMonitoring moves an open incident into its recovery-confirmation window
func (s *IncidentStore) MarkMonitoring(id string, note string) (*Incident, error) {
	return s.transition(id, map[string]interface{}{"status": IncidentStatusMonitoring}, note)
}

// Reopen moves a monitoring incident back to open with the given severity
func (s *IncidentStore) Reopen(id string, severity IncidentSeverity, note string) (*Incident, error) {
	return s.transition(id, map[string]interface{}{
		"status":   IncidentStatusOpen,
		"severity": severity,
	}, note)
}

// Resolve closes an incident after sustained recovery
func (s *IncidentStore) Resolve(id string, resolvedAt time.Time, note string) (*Incident, error) {
	return s.transition(id, map[string]interface{}{
		"status":        IncidentStatusResolved,
		"auto_resolved": true,
		"resolved_at":   resolvedAt,
	}, note)
}

// UpdateFields applies a manual edit and returns the reloaded incident
func (s *IncidentStore) UpdateFields(id string, changes map[string]interface{}) (*Incident, error) {
	res := s.db.Model(&Incident{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.GetByID(id)
}

// AppendUpdate adds a timeline entry without changing incident state
func (s *IncidentStore) AppendUpdate(incidentID, message string, createdBy *string) (*IncidentUpdate, error) {
	update := &IncidentUpdate{
		IncidentID: incidentID,
		Message:    message,
		CreatedBy:  createdBy,
	}
	if err := s.db.Create(update).Error; err != nil {
		return nil, err
	}
	return update, nil
}

// UnionAffectedService records that a service was impacted by the
// incident. Reports whether the set actually changed.
func (s *IncidentStore) UnionAffectedService(incidentID, serviceID string) (bool, error) {
	changed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var incident Incident
		if err := tx.First(&incident, "id = ?", incidentID).Error; err != nil {
			return err
		}
		if incident.AffectedServiceIDs.Contains(serviceID) {
			return nil
		}
		changed = true
		return tx.Model(&incident).
			Update("affected_service_ids", incident.AffectedServiceIDs.Union(serviceID)).Error
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
