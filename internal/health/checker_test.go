package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(ctx context.Context) error {
	return s.err
}

func TestRunChecks(t *testing.T) {
	h := NewChecker(Config{ServiceName: "modbuscli", ServiceVersion: "test"})
	h.AddCheck("device", stubChecker{})

	resp := h.RunChecks(context.Background())
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Checks["device"].Status != "healthy" {
		t.Errorf("device check = %q, want healthy", resp.Checks["device"].Status)
	}
}

func TestRunChecksUnhealthy(t *testing.T) {
	h := NewChecker(Config{ServiceName: "modbuscli"})
	h.AddCheck("device", stubChecker{})
	h.AddCheck("broker", stubChecker{err: errors.New("connection refused")})

	resp := h.RunChecks(context.Background())
	if resp.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy", resp.Status)
	}
	if resp.Checks["device"].Status != "healthy" {
		t.Errorf("device check = %q, want healthy", resp.Checks["device"].Status)
	}
	if resp.Checks["broker"].Error != "connection refused" {
		t.Errorf("broker error = %q", resp.Checks["broker"].Error)
	}
}

func TestHandler(t *testing.T) {
	h := NewChecker(Config{ServiceName: "modbuscli", ServiceVersion: "1.0"})
	h.AddCheck("device", stubChecker{})

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 200 {
		t.Errorf("status code = %d, want 200", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Service != "modbuscli" {
		t.Errorf("Service = %q", resp.Service)
	}
}

func TestHandlerUnhealthyStatusCode(t *testing.T) {
	h := NewChecker(Config{ServiceName: "modbuscli"})
	h.AddCheck("device", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 503 {
		t.Errorf("status code = %d, want 503", rec.Code)
	}
}
