package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/testhelpers"
)

// publishedEvent is one captured bus publish.
type publishedEvent struct {
	subject string
	payload interface{}
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(subject string, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, payload: v})
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.subject == subject {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(subject string) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].subject == subject {
			return p.events[i].payload
		}
	}
	return nil
}

// newAPIMux builds a handler with an in-memory database and returns the
// routed mux alongside the database and the captured publisher.
func newAPIMux(t *testing.T) (*http.ServeMux, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := testhelpers.SetupTestDB(t)

	pub := &recordingPublisher{}
	h := NewHandler(db, pub, zap.NewNop())
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return mux, db, pub
}

// doJSON performs a request against the mux with an optional JSON body.
func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func seedOrg(t *testing.T, db *gorm.DB) *database.Organization {
	t.Helper()
	org := testhelpers.NewOrganizationBuilder().Create(t, db)
	return &org
}

func seedSvc(t *testing.T, db *gorm.DB, orgID, name string) *database.Service {
	t.Helper()
	service := testhelpers.NewServiceBuilder(orgID).WithName(name).Create(t, db)
	return &service
}

func seedMon(t *testing.T, db *gorm.DB, serviceID, name string) *database.Monitor {
	t.Helper()
	monitor := testhelpers.NewMonitorBuilder(serviceID).WithName(name).Create(t, db)
	return &monitor
}

func seedRes(t *testing.T, db *gorm.DB, monitorID string, at time.Time, status database.MonitorStatus, latencyMs int) *database.MonitoringResult {
	t.Helper()
	b := testhelpers.NewResultBuilder(monitorID).At(at).WithStatus(status)
	if latencyMs >= 0 {
		b = b.WithLatency(latencyMs)
	}
	result := b.Create(t, db)
	return &result
}

func seedInc(t *testing.T, db *gorm.DB, orgID, title string, status database.IncidentStatus) *database.Incident {
	t.Helper()
	incident := testhelpers.NewIncidentBuilder(orgID).
		WithTitle(title).
		WithStatus(status).
		Create(t, db)
	return &incident
}
