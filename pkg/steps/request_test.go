package steps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/flowrun/flowrun/pkg/flow"
)

// newLocalRequest builds a request step that accepts loopback URLs, which
// the SSRF guard would otherwise reject for httptest servers.
func newLocalRequest(t *testing.T, cfg flow.Config) *Request {
	t.Helper()
	s, err := NewRequest(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.validateURL = func(string) error { return nil }
	return s
}

func TestNewRequest_Validation(t *testing.T) {
	if _, err := NewRequest(flow.Config{"method": "TRACE"}); err == nil {
		t.Error("expected error for invalid method")
	}
	if _, err := NewRequest(flow.Config{"timeout": float64(0)}); err == nil {
		t.Error("expected error for timeout below 1")
	}
	if _, err := NewRequest(flow.Config{"timeout": float64(500)}); err == nil {
		t.Error("expected error for timeout above 300")
	}
	if _, err := NewRequest(flow.Config{"method": "post"}); err != nil {
		t.Errorf("method should be case-insensitive: %v", err)
	}
}

func TestRequest_SuccessJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	s := newLocalRequest(t, flow.Config{"url": srv.URL})

	st := flow.NewState()
	res, err := s.Run(context.Background(), st, flow.Config{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.FiredPorts, []string{PortSuccess}) {
		t.Errorf("expected success port, got %v", res.FiredPorts)
	}
	body, ok := st.Get("response", nil).(map[string]any)
	if !ok || body["ok"] != true {
		t.Errorf("expected parsed JSON body, got %v", st.Get("response", nil))
	}
	if st.Get("status_code", nil) != 200 {
		t.Errorf("status_code mismatch: %v", st.Get("status_code", nil))
	}
	headers, ok := st.Get("response_headers", nil).(map[string]any)
	if !ok || headers["Content-Type"] != "application/json" {
		t.Errorf("response_headers mismatch: %v", headers)
	}
}

func TestRequest_TextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	s := newLocalRequest(t, flow.Config{"url": srv.URL})
	st := flow.NewState()
	s.Run(context.Background(), st, flow.Config{"url": srv.URL})

	if st.Get("response", nil) != "plain text" {
		t.Errorf("expected raw text body, got %v", st.Get("response", nil))
	}
}

func TestRequest_ErrorPortOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	s := newLocalRequest(t, flow.Config{"url": srv.URL})
	st := flow.NewState()
	res, err := s.Run(context.Background(), st, flow.Config{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 4xx is a completed request: success status, error port.
	if res.Status != flow.StatusSuccess {
		t.Errorf("expected success status, got %s", res.Status)
	}
	if !reflect.DeepEqual(res.FiredPorts, []string{PortError}) {
		t.Errorf("expected error port, got %v", res.FiredPorts)
	}
	if st.Get("status_code", nil) != 404 {
		t.Errorf("status_code mismatch: %v", st.Get("status_code", nil))
	}
}

func TestRequest_BodyAndHeaders(t *testing.T) {
	var gotBody string
	var gotContentType, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotContentType = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := newLocalRequest(t, flow.Config{"url": srv.URL, "method": "POST"})
	st := flow.NewState()
	cfg := flow.Config{
		"url":     srv.URL,
		"method":  "POST",
		"body":    `{"k":"v"}`,
		"headers": map[string]any{"X-Custom": "yes"},
	}
	res, err := s.Run(context.Background(), st, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody != `{"k":"v"}` {
		t.Errorf("body not sent, got %q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected default Content-Type, got %q", gotContentType)
	}
	if gotCustom != "yes" {
		t.Errorf("custom header not sent, got %q", gotCustom)
	}
	if !reflect.DeepEqual(res.FiredPorts, []string{PortSuccess}) {
		t.Errorf("201 should fire success, got %v", res.FiredPorts)
	}
}

func TestRequest_BodyIgnoredForGET(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
	}))
	defer srv.Close()

	s := newLocalRequest(t, flow.Config{"url": srv.URL})
	s.Run(context.Background(), flow.NewState(), flow.Config{"url": srv.URL, "body": "ignored"})

	if gotBody != "" {
		t.Errorf("GET must not carry a body, got %q", gotBody)
	}
}

func TestRequest_BlockedURL(t *testing.T) {
	s, _ := NewRequest(flow.Config{})
	st := flow.NewState()

	for _, raw := range []string{
		"http://localhost/admin",
		"http://192.168.1.1/",
		"ftp://example.com/file",
		"http://service.internal/",
	} {
		res, err := s.Run(context.Background(), st, flow.Config{"url": raw})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != flow.StatusError || res.Err.Code != CodeInvalidURL {
			t.Errorf("%s: expected INVALID_URL failure, got %+v", raw, res)
		}
		if !reflect.DeepEqual(res.FiredPorts, []string{PortError}) {
			t.Errorf("%s: expected error port, got %v", raw, res.FiredPorts)
		}
	}
}

func TestRequest_ConnectionRefused(t *testing.T) {
	// Reserved TEST-NET-1 address; nothing listens there.
	s := newLocalRequest(t, flow.Config{})
	cfg := flow.Config{"url": "http://192.0.2.1:9/", "timeout": float64(1)}

	res, err := s.Run(context.Background(), flow.NewState(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != flow.StatusError {
		t.Fatalf("expected error result, got %+v", res)
	}
	if res.Err.Code != CodeRequestError && res.Err.Code != CodeTimeout {
		t.Errorf("expected REQUEST_ERROR or TIMEOUT, got %s", res.Err.Code)
	}
}
