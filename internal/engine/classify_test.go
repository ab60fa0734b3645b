package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/probe"
)

func TestClassify(t *testing.T) {
	threshold := 500 * time.Millisecond

	tests := []struct {
		name    string
		outcome probe.Outcome
		want    database.MonitorStatus
	}{
		{
			name:    "fast 200 is up",
			outcome: probe.Outcome{Latency: 80 * time.Millisecond, HTTPStatus: 200},
			want:    database.MonitorStatusUp,
		},
		{
			name:    "204 is up",
			outcome: probe.Outcome{Latency: 10 * time.Millisecond, HTTPStatus: 204},
			want:    database.MonitorStatusUp,
		},
		{
			name:    "redirect answer is up",
			outcome: probe.Outcome{Latency: 40 * time.Millisecond, HTTPStatus: 301},
			want:    database.MonitorStatusUp,
		},
		{
			name:    "slow 200 is degraded",
			outcome: probe.Outcome{Latency: 900 * time.Millisecond, HTTPStatus: 200},
			want:    database.MonitorStatusDegraded,
		},
		{
			name:    "latency exactly at threshold is up",
			outcome: probe.Outcome{Latency: threshold, HTTPStatus: 200},
			want:    database.MonitorStatusUp,
		},
		{
			name:    "404 is down",
			outcome: probe.Outcome{Latency: 20 * time.Millisecond, HTTPStatus: 404},
			want:    database.MonitorStatusDown,
		},
		{
			name:    "500 is down",
			outcome: probe.Outcome{Latency: 20 * time.Millisecond, HTTPStatus: 500},
			want:    database.MonitorStatusDown,
		},
		{
			name:    "1xx is down",
			outcome: probe.Outcome{Latency: 20 * time.Millisecond, HTTPStatus: 102},
			want:    database.MonitorStatusDown,
		},
		{
			name:    "slow 500 is down, not degraded",
			outcome: probe.Outcome{Latency: 2 * time.Second, HTTPStatus: 500},
			want:    database.MonitorStatusDown,
		},
		{
			name:    "transport error is down",
			outcome: probe.Outcome{Latency: 10 * time.Millisecond, Err: errors.New("connection refused")},
			want:    database.MonitorStatusDown,
		},
		{
			name:    "timeout is down",
			outcome: probe.Outcome{Latency: 5 * time.Second, Err: errors.New("context deadline exceeded")},
			want:    database.MonitorStatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.outcome, threshold); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_ZeroThresholdDisablesDegraded(t *testing.T) {
	outcome := probe.Outcome{Latency: 30 * time.Second, HTTPStatus: 200}
	if got := Classify(outcome, 0); got != database.MonitorStatusUp {
		t.Errorf("Classify() with zero threshold = %s, want UP", got)
	}
}
