package engine

import (
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/probe"
)

// Classify turns a raw probe outcome into a monitor verdict.
//
// Any transport failure is DOWN. A received response outside the
// 2xx/3xx range is DOWN. A healthy response slower than the monitor's
// degraded threshold is DEGRADED. Everything else is UP.
func Classify(outcome probe.Outcome, degradedThreshold time.Duration) database.MonitorStatus {
	if outcome.Err != nil {
		return database.MonitorStatusDown
	}
	if outcome.HTTPStatus < 200 || outcome.HTTPStatus >= 400 {
		return database.MonitorStatusDown
	}
	if degradedThreshold > 0 && outcome.Latency > degradedThreshold {
		return database.MonitorStatusDegraded
	}
	return database.MonitorStatusUp
}
