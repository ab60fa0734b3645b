package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/statusdeck/statusdeck/internal/config"
	"github.com/statusdeck/statusdeck/internal/database"
)

// seedFile mirrors the YAML document: organizations with their members,
// services and monitors. Entries are matched by their natural keys
// (organization domain, user email, service and monitor names), so
// running the tool twice converges instead of duplicating rows.
type seedFile struct {
	Organizations []seedOrganization `yaml:"organizations"`
}

type seedOrganization struct {
	Name     string        `yaml:"name"`
	Domain   string        `yaml:"domain"`
	Users    []seedUser    `yaml:"users"`
	Services []seedService `yaml:"services"`
}

type seedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type seedService struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Monitors    []seedMonitor `yaml:"monitors"`
}

type seedMonitor struct {
	Name                string            `yaml:"name"`
	URL                 string            `yaml:"url"`
	Method              string            `yaml:"method"`
	IntervalSeconds     int               `yaml:"interval_seconds"`
	Type                string            `yaml:"type"`
	Headers             map[string]string `yaml:"headers"`
	Active              *bool             `yaml:"active"`
	DegradedThresholdMs int               `yaml:"degraded_threshold_ms"`
	TimeoutMs           int               `yaml:"timeout_ms"`
}

func main() {
	file := flag.String("file", "seed.yaml", "path to the seed definition")
	flag.Parse()

	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	seed, err := loadSeedFile(*file)
	if err != nil {
		log.Fatalf("Failed to load seed file: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, gormlogger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	if err := apply(db, seed); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	log.Printf("Seed complete: %d organization(s)", len(seed.Organizations))
}

// apply upserts the whole document top-down: organizations, then their
// users, services and monitors.
func apply(db *gorm.DB, seed *seedFile) error {
	orgs := database.NewOrganizationStore(db)
	services := database.NewServiceStore(db)
	monitors := database.NewMonitorStore(db)

	for _, o := range seed.Organizations {
		org, err := orgs.GetOrCreateByDomain(o.Name, o.Domain)
		if err != nil {
			return fmt.Errorf("organization %s: %w", o.Domain, err)
		}
		log.Printf("Organization %s (%s)", org.Name, org.ID)

		for _, u := range o.Users {
			if err := applyUser(orgs, org.ID, u); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
		}
		for _, sv := range o.Services {
			if err := applyService(services, monitors, org.ID, sv); err != nil {
				return fmt.Errorf("service %s: %w", sv.Name, err)
			}
		}
	}
	return nil
}

// applyUser replaces any existing user with the same email so the seed
// password always works after a run.
func applyUser(orgs *database.OrganizationStore, orgID string, u seedUser) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &database.User{
		Email:          u.Email,
		Name:           u.Name,
		HashedPassword: string(hash),
		Role:           parseRole(u.Role),
		OrganizationID: orgID,
	}
	if err := orgs.ReplaceUserByEmail(user); err != nil {
		return err
	}
	log.Printf("  user %s (%s)", user.Email, user.Role)
	return nil
}

// applyService creates the service or refreshes its description. The
// status column is left alone: it belongs to the engine and to operator
// maintenance overrides, not to seeding.
func applyService(services *database.ServiceStore, monitors *database.MonitorStore, orgID string, sv seedService) error {
	service, err := services.FindByName(orgID, sv.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		service = &database.Service{
			Name:           sv.Name,
			Description:    sv.Description,
			Status:         database.ServiceStatusOperational,
			OrganizationID: orgID,
		}
		if err := services.Create(service); err != nil {
			return err
		}
		log.Printf("  service %s created (%s)", service.Name, service.ID)
	case err != nil:
		return err
	default:
		if service.Description != sv.Description {
			service.Description = sv.Description
			if err := services.Update(service); err != nil {
				return err
			}
		}
		log.Printf("  service %s exists (%s)", service.Name, service.ID)
	}

	for _, m := range sv.Monitors {
		if err := applyMonitor(monitors, service.ID, m); err != nil {
			return fmt.Errorf("monitor %s: %w", m.Name, err)
		}
	}
	return nil
}

// applyMonitor creates the monitor or overwrites its probe definition
// with the seeded one.
func applyMonitor(monitors *database.MonitorStore, serviceID string, m seedMonitor) error {
	monitor, err := monitors.FindByName(serviceID, m.Name)
	created := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		monitor = &database.Monitor{Name: m.Name, ServiceID: serviceID}
		created = true
	} else if err != nil {
		return err
	}

	monitor.URL = m.URL
	monitor.Method = defaultString(m.Method, "GET")
	monitor.IntervalSeconds = defaultInt(m.IntervalSeconds, 60)
	monitor.Type = parseMonitorType(m.Type)
	monitor.Headers = headerList(m.Headers)
	monitor.Active = m.Active == nil || *m.Active
	monitor.DegradedThresholdMs = defaultInt(m.DegradedThresholdMs, 500)
	monitor.TimeoutMs = defaultInt(m.TimeoutMs, 5000)

	if created {
		if err := monitors.Create(monitor); err != nil {
			return err
		}
		log.Printf("    monitor %s created (%s)", monitor.Name, monitor.ID)
		return nil
	}
	if err := monitors.Update(monitor); err != nil {
		return err
	}
	log.Printf("    monitor %s updated (%s)", monitor.Name, monitor.ID)
	return nil
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if len(seed.Organizations) == 0 {
		return nil, fmt.Errorf("no organizations defined in %s", path)
	}
	for _, o := range seed.Organizations {
		if o.Name == "" || o.Domain == "" {
			return nil, fmt.Errorf("organization entries need both name and domain")
		}
		for _, u := range o.Users {
			if u.Email == "" || u.Password == "" {
				return nil, fmt.Errorf("user entries in %s need both email and password", o.Domain)
			}
		}
		for _, sv := range o.Services {
			if sv.Name == "" {
				return nil, fmt.Errorf("service entries in %s need a name", o.Domain)
			}
			for _, m := range sv.Monitors {
				if m.Name == "" || m.URL == "" {
					return nil, fmt.Errorf("monitor entries in %s need both name and url", sv.Name)
				}
				if m.Type != "" && !validMonitorType(m.Type) {
					return nil, fmt.Errorf("monitor %s has unknown type %q", m.Name, m.Type)
				}
			}
		}
	}
	return &seed, nil
}

func parseRole(role string) database.UserRole {
	if strings.EqualFold(role, string(database.UserRoleAdmin)) {
		return database.UserRoleAdmin
	}
	return database.UserRoleUser
}

func parseMonitorType(t string) database.MonitorType {
	if t == "" {
		return database.MonitorTypeHTTP
	}
	return database.MonitorType(strings.ToUpper(t))
}

func validMonitorType(t string) bool {
	switch parseMonitorType(t) {
	case database.MonitorTypeHTTP, database.MonitorTypeTCP, database.MonitorTypeDNS, database.MonitorTypeICMP:
		return true
	}
	return false
}

// headerList converts the YAML map into the model's ordered list. Keys
// are sorted so repeated runs store identical JSON.
func headerList(headers map[string]string) database.HeaderList {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make(database.HeaderList, 0, len(keys))
	for _, k := range keys {
		list = append(list, database.Header{Key: k, Value: headers[k]})
	}
	return list
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
