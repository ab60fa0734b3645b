package probe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind selects the probe strategy for a monitor. The set is closed;
// only HTTP has an implementation today.
type Kind string

const (
	KindHTTP Kind = "HTTP"
	KindTCP  Kind = "TCP"
	KindDNS  Kind = "DNS"
	KindICMP Kind = "ICMP"
)

// ErrUnsupportedKind is returned when no prober implements a kind
var ErrUnsupportedKind = errors.New("unsupported probe kind")

// Target describes a single endpoint to probe
type Target struct {
	URL     string
	Method  string
	Headers map[string]string
	Timeout time.Duration
}

// Outcome is the raw transport result of one probe attempt. HTTPStatus
// is zero when no response arrived; Err then carries the failure.
type Outcome struct {
	Latency    time.Duration
	HTTPStatus int
	Err        error
}

// Prober executes a single probe attempt against a target
type Prober interface {
	Probe(ctx context.Context, target Target) Outcome
}

// For returns the prober implementing the given kind
func For(kind Kind) (Prober, error) {
	switch kind {
	case KindHTTP:
		return NewHTTPProber(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}
