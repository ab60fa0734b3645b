package database

import (
	"errors"

	"gorm.io/gorm"
)

// OrganizationStore manages organizations and their users. Used by the
// seed tool and for request scoping.
type OrganizationStore struct {
	db *gorm.DB
}

// NewOrganizationStore creates a new OrganizationStore
func NewOrganizationStore(db *gorm.DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

// GetByID retrieves an organization by ID
func (s *OrganizationStore) GetByID(id string) (*Organization, error) {
	var org Organization
	if err := s.db.First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrCreateByDomain finds an organization by its domain or creates it
func (s *OrganizationStore) GetOrCreateByDomain(name, domain string) (*Organization, error) {
	var org Organization
	err := s.db.Where("domain = ?", domain).First(&org).Error
	if err == nil {
		if org.Name != name {
			if err := s.db.Model(&org).Update("name", name).Error; err != nil {
				return nil, err
			}
			org.Name = name
		}
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	org = Organization{Name: name, Domain: domain}
	if err := s.db.Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// ReplaceUserByEmail removes any user with the same email in the
// organization and inserts the given one. Seeding is a reset, not a merge.
func (s *OrganizationStore) ReplaceUserByEmail(user *User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ? AND organization_id = ?", user.Email, user.OrganizationID).
			Delete(&User{}).Error
		if err != nil {
			return err
		}
		return tx.Create(user).Error
	})
}

// FindUserByEmail retrieves a user by email within an organization
func (s *OrganizationStore) FindUserByEmail(organizationID, email string) (*User, error) {
	var user User
	err := s.db.Where("organization_id = ? AND email = ?", organizationID, email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
