package clinical

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
	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/treatment-records", h.CreateTreatmentRecord)
	doctor.PUT("/treatment-records/:id", h.UpdateTreatmentRecord)
	doctor.POST("/diagnostic-tests", h.OrderTest)

	care := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
	care.GET("/treatment-records", h.ListTreatmentRecords)
	care.GET("/treatment-records/:id", h.GetTreatmentRecord)
	care.GET("/diagnostic-tests", h.ListTests)
	care.GET("/diagnostic-tests/:id", h.GetTest)
	care.PUT("/diagnostic-tests/:id/status", h.UpdateTestStatus)
	care.POST("/diagnostic-tests/:id/result", h.RecordResult)
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

// -- Treatment Record Handlers --

func (h *Handler) CreateTreatmentRecord(c echo.Context) error {
	var r TreatmentRecord
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTreatmentRecord(c.Request().Context(), &r); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetTreatmentRecord(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetTreatmentRecord(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListTreatmentRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f RecordFilter
	var err error
	if f.PatientID, err = queryID(c, "patient_id"); err != nil {
		return err
	}
	if f.PractitionerID, err = queryID(c, "practitioner_id"); err != nil {
		return err
	}
	if f.AppointmentID, err = queryID(c, "appointment_id"); err != nil {
		return err
	}
	items, total, err := h.svc.ListTreatmentRecords(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTreatmentRecord(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var r TreatmentRecord
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateTreatmentRecord(c.Request().Context(), &r); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// -- Diagnostic Test Handlers --

func (h *Handler) OrderTest(c echo.Context) error {
	var t DiagnosticTest
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.OrderTest(c.Request().Context(), &t); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTests(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := TestFilter{
		Status:   TestStatus(strings.ToUpper(c.QueryParam("status"))),
		Category: TestCategory(strings.ToUpper(c.QueryParam("category"))),
	}
	var err error
	if f.PatientID, err = queryID(c, "patient_id"); err != nil {
		return err
	}
	items, total, err := h.svc.ListTests(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status TestStatus `json:"status"`
}

func (h *Handler) UpdateTestStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.UpdateTestStatus(c.Request().Context(), id, TestStatus(strings.ToUpper(string(req.Status))))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, t)
}

type resultRequest struct {
	Result string `json:"result"`
}

func (h *Handler) RecordResult(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req resultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.RecordResult(c.Request().Context(), id, req.Result)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, t)
}
