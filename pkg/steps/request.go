package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowrun/flowrun/pkg/flow"
	"github.com/flowrun/flowrun/pkg/httpclient"
	"github.com/flowrun/flowrun/pkg/security"
)

// Request ports.
const (
	PortSuccess = "success"
	PortError   = "error"
)

// Request error codes.
const (
	CodeTimeout      = "TIMEOUT"
	CodeRequestError = "REQUEST_ERROR"
	CodeInvalidURL   = "INVALID_URL"
)

// Request timeout bounds in seconds.
const (
	requestDefaultTimeout = 30
	requestMaxTimeout     = 300
)

var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

var validMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Request makes HTTP requests to external services.
//
// Responses are parsed as JSON when possible, kept as text otherwise, and
// written to state under response, status_code and response_headers. The
// success port fires for responses below 400, the error port for 4xx/5xx
// and for transport failures.
type Request struct {
	flow.Base

	// validateURL guards against SSRF. Overridable for tests.
	validateURL func(string) error
}

// NewRequest creates a request step. Config keys: url (interpolated), method
// (GET, POST, PUT, PATCH, DELETE; default GET), headers (map of interpolated
// strings), body (interpolated, sent for POST/PUT/PATCH), timeout (seconds,
// 1 to 300, default 30).
func NewRequest(cfg flow.Config) (*Request, error) {
	method := strings.ToUpper(cfg.StringOr("method", http.MethodGet))
	if !validMethods[method] {
		return nil, fmt.Errorf("invalid method: %s", method)
	}
	timeout := cfg.IntOr("timeout", requestDefaultTimeout)
	if timeout < 1 || timeout > requestMaxTimeout {
		return nil, fmt.Errorf("timeout must be between 1 and %d seconds, got %d", requestMaxTimeout, timeout)
	}
	return &Request{Base: flow.NewBase(cfg), validateURL: security.ValidateSafeURL}, nil
}

func (s *Request) Type() flow.StepType { return flow.StepRequest }

func (s *Request) Ports() []string { return []string{PortSuccess, PortError} }

func (s *Request) Schema() flow.Schema {
	return flow.Schema{
		{Name: "url", Type: flow.FieldString, Interpolated: true},
		{Name: "body", Type: flow.FieldString, Interpolated: true},
		// headers is a plain map; its string leaves resolve without coercion.
	}
}

func (s *Request) Outputs() []flow.Output {
	return []flow.Output{
		{Key: "response", Type: flow.TypeAny, Description: "Response body"},
		{Key: "status_code", Type: flow.TypeNumber, Description: "HTTP status code"},
		{Key: "response_headers", Type: flow.TypeObject, Description: "Response headers"},
	}
}

func (s *Request) Run(ctx context.Context, st *flow.State, cfg flow.Config) (*flow.StepResult, error) {
	rawURL := cfg.StringOr("url", "")
	if err := s.validateURL(rawURL); err != nil {
		return flow.Failure(s.ID(), err.Error(), CodeInvalidURL, []string{PortError}), nil
	}

	method := strings.ToUpper(cfg.StringOr("method", http.MethodGet))
	headers := cfg.MapOr("headers", nil)
	body := cfg.StringOr("body", "")

	var reqBody io.Reader
	if body != "" && bodyMethods[method] {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return flow.Failure(s.ID(), fmt.Sprintf("Request failed: %v", err), CodeRequestError, []string{PortError}), nil
	}
	for k, v := range headers {
		req.Header.Set(k, flow.Stringify(v))
	}
	if reqBody != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout: time.Duration(cfg.IntOr("timeout", requestDefaultTimeout)) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return flow.Failure(s.ID(), "Request timed out", CodeTimeout, []string{PortError}), nil
		}
		return flow.Failure(s.ID(), fmt.Sprintf("Request failed: %v", err), CodeRequestError, []string{PortError}), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return flow.Failure(s.ID(), fmt.Sprintf("Request failed: %v", err), CodeRequestError, []string{PortError}), nil
	}

	// JSON when it parses, raw text otherwise.
	var responseBody any
	if err := json.Unmarshal(raw, &responseBody); err != nil {
		responseBody = string(raw)
	}

	responseHeaders := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		responseHeaders[k] = resp.Header.Get(k)
	}

	if err := st.Set("response", responseBody); err != nil {
		return nil, err
	}
	if err := st.Set("status_code", resp.StatusCode); err != nil {
		return nil, err
	}
	if err := st.Set("response_headers", responseHeaders); err != nil {
		return nil, err
	}

	port := PortSuccess
	if resp.StatusCode >= 400 {
		port = PortError
	}

	return flow.Success(s.ID(), []string{port}, map[string]any{
		"response":         responseBody,
		"status_code":      resp.StatusCode,
		"response_headers": responseHeaders,
	}), nil
}

// isTimeout reports whether a transport error is a timeout, including
// context deadline expiry surfaced through the client.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
