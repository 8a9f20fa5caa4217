package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// =============================================================================
// ServiceClient Tests
// =============================================================================

func TestNewServiceClient(t *testing.T) {
	client := NewServiceClient(ServiceClientConfig{
		BaseURL:    "http://localhost:8080/",
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	})

	if client == nil {
		t.Fatal("NewServiceClient() returned nil")
	}
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %s, want http://localhost:8080", client.baseURL)
	}
	if client.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", client.maxRetries)
	}
}

func TestNewServiceClient_Defaults(t *testing.T) {
	client := NewServiceClient(ServiceClientConfig{
		BaseURL: "http://localhost:8080",
	})

	if client.maxRetries != 2 {
		t.Errorf("default maxRetries = %d, want 2", client.maxRetries)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Errorf("default timeout = %s, want 10s", client.httpClient.Timeout)
	}
}

func TestServiceClient_GetForwardsCookiesAndTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			t.Errorf("expected forwarded session cookie, got %v", err)
		}
		if got := r.Header.Get(TraceIDHeader); got != "trace-42" {
			t.Errorf("trace header = %q, want trace-42", got)
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewServiceClient(ServiceClientConfig{BaseURL: server.URL})
	ctx := logger.WithTraceID(context.Background(), "trace-42")

	resp, err := client.Get(ctx, "/test", WithCookies([]*http.Cookie{{Name: "session", Value: "abc"}}))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var out map[string]string
	if err := DecodeResponse(resp, &out); err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if out["status"] != "ok" {
		t.Fatalf("status = %q, want ok", out["status"])
	}
}

func TestServiceClient_RetriesGatewayErrorsOnGet(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewServiceClient(ServiceClientConfig{BaseURL: server.URL, MaxRetries: 2, Backoff: time.Millisecond})
	resp, err := client.Get(context.Background(), "/flaky")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestServiceClient_DoesNotRetryPost(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewServiceClient(ServiceClientConfig{BaseURL: server.URL, MaxRetries: 3, Backoff: time.Millisecond})
	resp, err := client.Post(context.Background(), "/write", map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestDecodeResponse_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewServiceClient(ServiceClientConfig{BaseURL: server.URL})
	resp, err := client.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	err = DecodeResponse(resp, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusForbidden || !strings.Contains(statusErr.Body, "nope") {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestReadAllStrict(t *testing.T) {
	if _, err := ReadAllStrict(strings.NewReader("0123456789"), 5); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	data, err := ReadAllStrict(strings.NewReader("abc"), 5)
	if err != nil || string(data) != "abc" {
		t.Fatalf("ReadAllStrict() = %q, %v", data, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	body := func(s string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(s))
	}

	if err := DecodeJSON(body(`{"name":"a"}`).Body, &dst); err != nil || dst.Name != "a" {
		t.Fatalf("DecodeJSON() = %v, name %q", err, dst.Name)
	}
	if err := DecodeJSON(body(`{"other":1}`).Body, &dst); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if err := DecodeJSON(body(``).Body, &dst); err == nil {
		t.Fatalf("expected empty body error")
	}
	if err := DecodeJSON(body(`{"name":"a"}{}`).Body, &dst); err == nil {
		t.Fatalf("expected trailing data error")
	}
}
