package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpapi "github.com/appforge/appforge-backend/internal/api/http"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func serveHealth(t *testing.T, h *httpapi.HealthHandler, method string) (*httptest.ResponseRecorder, httpapi.HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	h.RegisterRoutes(router)

	req, err := http.NewRequest(method, "/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var response httpapi.HealthResponse
	if method == http.MethodGet {
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Errorf("failed to unmarshal response: %v", err)
		}
	}
	return rr, response
}

func TestHealthCheck(t *testing.T) {
	rr, response := serveHealth(t, httpapi.NewHealthHandler("test-service", "1.0.0", "memory", nil), http.MethodGet)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	if response.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %s", response.Status)
	}
	if response.Service != "test-service" {
		t.Errorf("expected service 'test-service', got %s", response.Service)
	}
	if response.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %s", response.Version)
	}
	if response.Store != "memory" || response.StoreUp != "up" {
		t.Errorf("expected memory store up, got %s %s", response.Store, response.StoreUp)
	}
}

func TestHealthCheckStoreDown(t *testing.T) {
	h := httpapi.NewHealthHandler("test-service", "1.0.0", "redis", stubPinger{err: errors.New("dial tcp: refused")})
	rr, response := serveHealth(t, h, http.MethodGet)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusServiceUnavailable)
	}
	if response.Status != "degraded" || response.StoreUp != "down" {
		t.Errorf("expected degraded/down, got %s/%s", response.Status, response.StoreUp)
	}
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	rr, _ := serveHealth(t, httpapi.NewHealthHandler("test-service", "1.0.0", "memory", nil), http.MethodPost)

	if status := rr.Code; status != http.StatusMethodNotAllowed {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusMethodNotAllowed)
	}
}
