package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "healthy" || status.Service != "voice-typer" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestReadinessHandler_AllHealthy(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }

	rec := httptest.NewRecorder()
	ReadinessHandler(NamedCheck{Name: "keyboard", Check: ok})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestReadinessHandler_Unhealthy(t *testing.T) {
	ok := func(ctx context.Context) (bool, error) { return true, nil }
	broken := func(ctx context.Context) (bool, error) { return false, errors.New("recognizer in error state") }

	rec := httptest.NewRecorder()
	handler := ReadinessHandler(
		NamedCheck{Name: "keyboard", Check: ok},
		NamedCheck{Name: "recognizer", Check: broken},
		NamedCheck{Name: "skipped"},
	)
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if status.Status != "not_ready" {
		t.Errorf("Expected not_ready, got %s", status.Status)
	}
	dep := status.Dependencies["recognizer"]
	if dep.Status != "unhealthy" || dep.Message != "recognizer in error state" {
		t.Errorf("Unexpected dependency status: %+v", dep)
	}
	if _, ok := status.Dependencies["skipped"]; ok {
		t.Error("Expected nil checks to be skipped")
	}
}
