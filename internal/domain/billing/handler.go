package billing

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleBilling, auth.RoleReceptionist))
	read.GET("/invoices", h.ListInvoices)
	read.GET("/invoices/:id", h.GetInvoice)
	read.GET("/invoices/:id/payments", h.ListInvoicePayments)
	read.GET("/payments", h.ListPayments)
	read.POST("/invoices/quote", h.Quote)

	write := api.Group("", auth.RequireRole(auth.RoleBilling))
	write.POST("/invoices", h.CreateInvoice)
	write.PUT("/invoices/:id", h.UpdateInvoice)
	write.POST("/invoices/:id/cancel", h.CancelInvoice)
	write.POST("/invoices/:id/payments", h.RecordPayment)
}

// amounts carries display strings for the money fields of an invoice.
type amounts struct {
	Subtotal              string `json:"subtotal"`
	Total                 string `json:"total"`
	InsuranceCoverage     string `json:"insurance_coverage"`
	PatientResponsibility string `json:"patient_responsibility"`
	AmountPaid            string `json:"amount_paid"`
	AmountDue             string `json:"amount_due"`
}

type invoiceResponse struct {
	*Invoice
	AmountDue float64 `json:"amount_due"`
	Display   amounts `json:"display"`
}

func present(inv *Invoice) invoiceResponse {
	return invoiceResponse{
		Invoice:   inv,
		AmountDue: inv.AmountDue(),
		Display: amounts{
			Subtotal:              FormatAmount(inv.Subtotal),
			Total:                 FormatAmount(inv.Total),
			InsuranceCoverage:     FormatAmount(inv.InsuranceCoverage),
			PatientResponsibility: FormatAmount(inv.PatientResponsibility),
			AmountPaid:            FormatAmount(inv.AmountPaid()),
			AmountDue:             FormatAmount(inv.AmountDue()),
		},
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func queryID(c echo.Context, name string) (uuid.UUID, error) {
	v := c.QueryParam(name)
	if v == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Invoice Handlers --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var in InvoiceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), &in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, present(inv))
}

func (h *Handler) Quote(c echo.Context) error {
	var in InvoiceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.Quote(c.Request().Context(), &in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, present(inv))
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, present(inv))
}

func (h *Handler) ListInvoices(c echo.Context) error {
	pg := pagination.FromContext(c)
	patientID, err := queryID(c, "patient_id")
	if err != nil {
		return err
	}
	f := Filter{PatientID: patientID, Status: Status(strings.ToUpper(c.QueryParam("status")))}
	items, total, err := h.svc.ListInvoices(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	out := make([]invoiceResponse, len(items))
	for i, inv := range items {
		out[i] = present(inv)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

type updateInvoiceRequest struct {
	Services []LineItem `json:"services"`
	Notes    *string    `json:"notes"`
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req updateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.UpdateInvoice(c.Request().Context(), id, req.Services, req.Notes)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, present(inv))
}

func (h *Handler) CancelInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.CancelInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, present(inv))
}

// -- Payment Handlers --

type paymentRequest struct {
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	method := PaymentMethod(strings.ToUpper(string(req.Method)))
	inv, pay, err := h.svc.RecordPayment(c.Request().Context(), id, req.Amount, method, req.Reference)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"payment": pay,
		"invoice": present(inv),
	})
}

func (h *Handler) ListInvoicePayments(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  inv.Payments,
		"total": len(inv.Payments),
	})
}

func (h *Handler) ListPayments(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f PaymentFilter
	var err error
	if f.PatientID, err = queryID(c, "patient_id"); err != nil {
		return err
	}
	if f.InvoiceID, err = queryID(c, "invoice_id"); err != nil {
		return err
	}
	f.Method = PaymentMethod(strings.ToUpper(c.QueryParam("method")))
	items, total, err := h.svc.ListPayments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
