package handlers

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/statusdeck/statusdeck/internal/api"
)

// BusChecker reports whether the event bus connection is up. Satisfied
// by *bus.Conn.
type BusChecker interface {
	Connected() bool
}

// HealthHandler serves the readiness endpoint with dependency checks.
type HealthHandler struct {
	db        *gorm.DB
	bus       BusChecker
	logger    *zap.Logger
	startedAt time.Time
}

// NewHealthHandler creates a health handler. bus may be nil when the
// process runs without an event bus.
func NewHealthHandler(db *gorm.DB, bus BusChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		bus:       bus,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// SetupRoutes registers the health route on the mux.
func (h *HealthHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", h.handleHealth)
}

type checkDetail struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type systemInfo struct {
	CPUPercent    *float64 `json:"cpu_percent"`
	MemoryPercent *float64 `json:"memory_percent"`
}

type healthResponse struct {
	Service       string                 `json:"service"`
	Status        string                 `json:"status"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Checks        map[string]checkDetail `json:"checks"`
	System        systemInfo             `json:"system"`
}

// handleHealth reports overall health plus per-dependency detail. The
// endpoint itself answers 200 even when a dependency is down; the body
// carries the degraded verdict.
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]checkDetail{
		"database": h.checkDatabase(r),
		"bus":      h.checkBus(),
	}

	overall := "ok"
	for _, c := range checks {
		if c.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	resp := healthResponse{
		Service:       "statusdeck-api",
		Status:        overall,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Checks:        checks,
		System:        h.systemUsage(),
	}
	api.RespondJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) checkDatabase(r *http.Request) checkDetail {
	sqlDB, err := h.db.DB()
	if err != nil {
		return checkDetail{Status: "error", Error: err.Error()}
	}
	if err := sqlDB.PingContext(r.Context()); err != nil {
		return checkDetail{Status: "error", Error: err.Error()}
	}
	return checkDetail{Status: "ok"}
}

func (h *HealthHandler) checkBus() checkDetail {
	if h.bus == nil {
		return checkDetail{Status: "error", Error: "bus not configured"}
	}
	if !h.bus.Connected() {
		return checkDetail{Status: "error", Error: "not connected"}
	}
	return checkDetail{Status: "ok"}
}

// systemUsage samples process-host CPU and memory. Failures leave the
// fields null rather than failing the health check.
func (h *HealthHandler) systemUsage() systemInfo {
	var info systemInfo
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info.CPUPercent = &percents[0]
	} else if err != nil {
		h.logger.Debug("read cpu usage", zap.Error(err))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryPercent = &vm.UsedPercent
	} else {
		h.logger.Debug("read memory usage", zap.Error(err))
	}
	return info
}
