package billing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/auth"
)

func serve(e *echo.Echo, method, path, body string, roles ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithUser(req.Context(), "cashier-1", roles))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_InvoiceFlow(t *testing.T) {
	f := newFixture(balance(200))
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	body := fmt.Sprintf(`{"patient_id":%q,"services":[{"description":"Consultation","quantity":1,"unit_price":100},{"description":"X-ray","quantity":1,"unit_price":300}]}`, f.patientID)

	if rec := serve(e, http.MethodPost, "/api/v1/invoices", body, auth.RoleReceptionist); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for receptionist, got %d", rec.Code)
	}
	rec := serve(e, http.MethodPost, "/api/v1/invoices", body, auth.RoleBilling)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID      string `json:"id"`
		Display struct {
			InsuranceCoverage string `json:"insurance_coverage"`
			AmountDue         string `json:"amount_due"`
		} `json:"display"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Display.InsuranceCoverage != "200.00" || created.Display.AmountDue != "200.00" {
		t.Errorf("unexpected display amounts %+v", created.Display)
	}

	rec = serve(e, http.MethodPost, "/api/v1/invoices/"+created.ID+"/payments", `{"amount":200,"method":"card"}`, auth.RoleBilling)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"PAID"`) {
		t.Errorf("expected invoice to be PAID: %s", rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/api/v1/invoices/"+created.ID+"/payments", "", auth.RoleReceptionist)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected payments response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Quote(t *testing.T) {
	f := newFixture(nil)
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	body := fmt.Sprintf(`{"patient_id":%q,"services":[{"description":"Dressing","quantity":2,"unit_price":12.5}]}`, f.patientID)

	rec := serve(e, http.MethodPost, "/api/v1/invoices/quote", body, auth.RoleReceptionist)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"patient_responsibility":25`) {
		t.Errorf("unexpected quote %s", rec.Body.String())
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices", "", auth.RoleBilling); !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("expected quote not to be stored: %s", rec.Body.String())
	}
}

func TestHandler_ListInvoices_BadFilter(t *testing.T) {
	f := newFixture(nil)
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))

	if rec := serve(e, http.MethodGet, "/api/v1/invoices?status=lost", "", auth.RoleBilling); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/payments?patient_id=nope", "", auth.RoleBilling); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad patient id, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices/not-a-uuid", "", auth.RoleAdmin); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}
