package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// maxDrainBytes bounds how much of a response body is read before close
// so keep-alive connections can be reused without buffering large pages.
const maxDrainBytes = 4096

// HTTPProber probes HTTP and HTTPS endpoints. Redirects are not
// followed: a 3xx answer from the target is the probed response itself,
// not a hop on the way to one.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates an HTTPProber with a shared transport
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe issues one request and measures it. The target timeout caps the
// whole attempt including connect and first byte.
func (p *HTTPProber) Probe(ctx context.Context, target Target) Outcome {
	method := target.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target.URL, nil)
	if err != nil {
		return Outcome{Err: fmt.Errorf("invalid probe request: %w", err)}
	}
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Outcome{Latency: latency, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return Outcome{Latency: latency, HTTPStatus: resp.StatusCode}
}
