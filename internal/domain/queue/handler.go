package queue

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RoleDoctor, auth.RoleBilling))
	read.GET("/queue", h.List)

	desk := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse))
	desk.POST("/queue", h.Add)
	desk.POST("/queue/check-in", h.CheckIn)
	desk.DELETE("/queue/:appointment_id", h.Remove)

	care := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor))
	care.PUT("/queue/:appointment_id/priority", h.UpdatePriority)
	care.POST("/queue/next", h.CallNext)
	care.POST("/queue/:appointment_id/complete", h.Complete)
}

type queueRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Priority      Priority  `json:"priority"`
}

type priorityRequest struct {
	Priority Priority `json:"priority"`
}

type callNextRequest struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
}

func appointmentParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("appointment_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_id")
	}
	return id, nil
}

func (r *queueRequest) bind(c echo.Context) error {
	if err := c.Bind(r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if r.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}
	r.Priority = Priority(strings.ToUpper(string(r.Priority)))
	return nil
}

func (h *Handler) List(c echo.Context) error {
	entries, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": entries, "total": len(entries)})
}

func (h *Handler) Add(c echo.Context) error {
	var req queueRequest
	if err := req.bind(c); err != nil {
		return err
	}
	it, err := h.svc.Add(c.Request().Context(), req.AppointmentID, req.Priority)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req queueRequest
	if err := req.bind(c); err != nil {
		return err
	}
	it, err := h.svc.CheckIn(c.Request().Context(), req.AppointmentID, req.Priority)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) UpdatePriority(c echo.Context) error {
	id, err := appointmentParam(c)
	if err != nil {
		return err
	}
	var req priorityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.UpdatePriority(c.Request().Context(), id, Priority(strings.ToUpper(string(req.Priority))))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) Remove(c echo.Context) error {
	id, err := appointmentParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CallNext(c echo.Context) error {
	var req callNextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PractitionerID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "practitioner_id is required")
	}
	it, err := h.svc.CallNext(c.Request().Context(), req.PractitionerID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := appointmentParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Complete(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
