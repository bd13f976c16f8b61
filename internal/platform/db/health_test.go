package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func runHealth(t *testing.T, h echo.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/store", nil)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestHealthHandler_Memory(t *testing.T) {
	rec, body := runHealth(t, HealthHandler("memory", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["driver"] != "memory" || body["status"] != "healthy" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec, body := runHealth(t, HealthHandler("redis", fakePinger{}))
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("expected healthy 200, got %d %v", rec.Code, body)
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	rec, body := runHealth(t, HealthHandler("postgres", fakePinger{err: errors.New("connection refused")}))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if body["error"] != "connection refused" {
		t.Errorf("expected error in body, got %v", body)
	}
}

func TestPoolStats_JSONTags(t *testing.T) {
	data, err := json.Marshal(PoolStats{TotalConns: 3, Healthy: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(data, &m)
	for _, k := range []string{"total_conns", "idle_conns", "acquired_conns", "max_conns", "healthy"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing json key %s", k)
		}
	}
}

func TestPingFunc(t *testing.T) {
	called := false
	var p Pinger = PingFunc(func(context.Context) error {
		called = true
		return nil
	})
	if err := p.Ping(context.Background()); err != nil || !called {
		t.Errorf("expected PingFunc to be invoked, called=%v err=%v", called, err)
	}
}
