package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProber_SuccessfulProbe(t *testing.T) {
	var gotMethod, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHTTPProber()
	outcome := prober.Probe(context.Background(), Target{
		URL:     server.URL,
		Method:  "HEAD",
		Headers: map[string]string{"X-Probe-Token": "secret"},
		Timeout: 2 * time.Second,
	})

	if outcome.Err != nil {
		t.Fatalf("unexpected probe error: %v", outcome.Err)
	}
	if outcome.HTTPStatus != http.StatusOK {
		t.Errorf("status = %d, want 200", outcome.HTTPStatus)
	}
	if outcome.Latency <= 0 {
		t.Error("expected positive latency")
	}
	if gotMethod != "HEAD" {
		t.Errorf("method = %q, want HEAD", gotMethod)
	}
	if gotHeader != "secret" {
		t.Errorf("header not forwarded, got %q", gotHeader)
	}
}

func TestHTTPProber_DefaultsToGET(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer server.Close()

	prober := NewHTTPProber()
	outcome := prober.Probe(context.Background(), Target{URL: server.URL})
	if outcome.Err != nil {
		t.Fatalf("unexpected probe error: %v", outcome.Err)
	}
	if gotMethod != "GET" {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

func TestHTTPProber_ServerErrorIsAnOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	prober := NewHTTPProber()
	outcome := prober.Probe(context.Background(), Target{URL: server.URL, Timeout: 2 * time.Second})

	// A 500 is a received response, not a transport error
	if outcome.Err != nil {
		t.Fatalf("unexpected probe error: %v", outcome.Err)
	}
	if outcome.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", outcome.HTTPStatus)
	}
}

func TestHTTPProber_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer server.Close()

	prober := NewHTTPProber()
	outcome := prober.Probe(context.Background(), Target{URL: server.URL, Timeout: 2 * time.Second})

	if outcome.Err != nil {
		t.Fatalf("unexpected probe error: %v", outcome.Err)
	}
	if outcome.HTTPStatus != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301 (redirect must not be followed)", outcome.HTTPStatus)
	}
}

func TestHTTPProber_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	prober := NewHTTPProber()
	outcome := prober.Probe(context.Background(), Target{URL: url, Timeout: 2 * time.Second})

	if outcome.Err == nil {
		t.Fatal("expected transport error for closed server")
	}
	if outcome.HTTPStatus != 0 {
		t.Errorf("status = %d, want 0 when no response arrived", outcome.HTTPStatus)
	}
}

func TestHTTPProber_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		server.Close()
	}()

	prober := NewHTTPProber()
	start := time.Now()
	outcome := prober.Probe(context.Background(), Target{URL: server.URL, Timeout: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if outcome.Err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed > 2*time.Second {
		t.Errorf("probe did not respect timeout, took %s", elapsed)
	}
}

func TestFor_UnsupportedKind(t *testing.T) {
	if _, err := For(KindHTTP); err != nil {
		t.Fatalf("For(HTTP) error = %v", err)
	}

	for _, kind := range []Kind{KindTCP, KindDNS, KindICMP, Kind("SMTP")} {
		_, err := For(kind)
		if !errors.Is(err, ErrUnsupportedKind) {
			t.Errorf("For(%s) error = %v, want ErrUnsupportedKind", kind, err)
		}
	}
}
