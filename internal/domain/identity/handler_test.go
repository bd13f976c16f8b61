package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/auth"
)

var testKey = []byte("identity-handler-test-key")

func newTestHandler() (*Handler, *echo.Echo) {
	svc, staff, _ := newTestServices()
	return NewHandler(svc, staff), echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_RegisterPatient(t *testing.T) {
	h, e := newTestHandler()
	body := `{"first_name":"Ada","last_name":"Lovelace","date_of_birth":"1985-12-10",
		"insurance":[{"provider":"Acme","policy_number":"P-1","is_primary":true,"balance":250}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.RegisterPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.MRN == "" || len(p.Insurance) != 1 || *p.Insurance[0].Balance != 250 {
		t.Errorf("unexpected response %+v", p)
	}
}

func TestHandler_RegisterPatient_BadRequest(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"first_name":"Ada"}`), httptest.NewRecorder())

	err := h.RegisterPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler()
	p := validPatient()
	h.svc.RegisterPatient(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_Errors(t *testing.T) {
	h, e := newTestHandler()
	tests := []struct {
		id   string
		code int
	}{
		{"not-a-uuid", http.StatusBadRequest},
		{uuid.New().String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(tt.id)
		err := h.GetPatient(c)
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != tt.code {
			t.Errorf("id %s: expected %d, got %v", tt.id, tt.code, err)
		}
	}
}

func TestHandler_ListPatients_ByMRN(t *testing.T) {
	h, e := newTestHandler()
	p := validPatient()
	p.MRN = "MRN-20240101-AAAA"
	h.svc.RegisterPatient(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?mrn=mrn-20240101-aaaa", nil), rec)
	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected 1 match, got %d", resp.Total)
	}
}

func TestHandler_AddInsurance(t *testing.T) {
	h, e := newTestHandler()
	p := validPatient()
	h.svc.RegisterPatient(context.Background(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"provider":"Acme","policy_number":"X","is_primary":true}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.AddInsurance(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateStaff_HidesHash(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"username":"bo","name":"Bo","password":"supersecret","roles":["billing"]}`), rec)

	if err := h.CreateStaff(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks password data: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login(t *testing.T) {
	_, staff, _ := newTestServices()
	ctx := context.Background()
	staff.CreateStaff(ctx, &Staff{Username: "doc", Name: "Dr. Who", Roles: []string{auth.RoleDoctor}}, "tardis-blue")
	h := NewAuthHandler(staff, testKey, time.Hour)
	e := echo.New()
	h.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"doc","password":"tardis-blue"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := auth.ParseToken(testKey, resp.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleDoctor {
		t.Errorf("unexpected roles %v", claims.Roles)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"doc","password":"nope-nope"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", rec.Code)
	}
}

func TestHandler_RegisterRoutes_RoleGuard(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients/"+uuid.New().String(), nil)
	req = req.WithContext(auth.WithUser(req.Context(), "r1", []string{auth.RoleReceptionist}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for receptionist delete, got %d", rec.Code)
	}
}
