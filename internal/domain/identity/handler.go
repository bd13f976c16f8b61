package identity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/pkg/pagination"
)

type Handler struct {
	svc   *Service
	staff *StaffService
}

func NewHandler(svc *Service, staff *StaffService) *Handler {
	return &Handler{svc: svc, staff: staff}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every clinical and front-desk role
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RoleDoctor, auth.RoleBilling))
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/patients/:id/insurance", h.ListInsurance)
	read.GET("/practitioners", h.ListPractitioners)
	read.GET("/practitioners/:id", h.GetPractitioner)

	// Registration – front desk and billing keep demographics and coverage current
	write := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleBilling))
	write.POST("/patients", h.RegisterPatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.POST("/patients/:id/insurance", h.AddInsurance)
	write.PUT("/patients/:id/insurance/:insurance_id", h.UpdateInsurance)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/patients/:id", h.DeletePatient)
	admin.POST("/practitioners", h.CreatePractitioner)
	admin.PUT("/practitioners/:id", h.UpdatePractitioner)
	admin.GET("/staff", h.ListStaff)
	admin.POST("/staff", h.CreateStaff)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Patient Handlers --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	if mrn := c.QueryParam("mrn"); mrn != "" {
		p, err := h.svc.GetPatientByMRN(c.Request().Context(), mrn)
		if err != nil {
			if apperr.IsNotFound(err) {
				return c.JSON(http.StatusOK, pagination.NewResponse([]*Patient{}, 0, pg.Limit, pg.Offset))
			}
			return apperr.HTTPError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse([]*Patient{p}, 1, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListInsurance(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p.Insurance)
}

func (h *Handler) AddInsurance(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var ins Insurance
	if err := c.Bind(&ins); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddInsurance(c.Request().Context(), id, &ins); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, ins)
}

func (h *Handler) UpdateInsurance(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	insID, err := parseID(c, "insurance_id")
	if err != nil {
		return err
	}
	var ins Insurance
	if err := c.Bind(&ins); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ins.ID = insID
	if err := h.svc.UpdateInsurance(c.Request().Context(), id, &ins); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, ins)
}

// -- Practitioner Handlers --

type practitionerResponse struct {
	*Practitioner
	DisplayName string `json:"display_name"`
}

func (h *Handler) CreatePractitioner(c echo.Context) error {
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, practitionerResponse{&p, p.DisplayName()})
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, practitionerResponse{p, p.DisplayName()})
}

func (h *Handler) UpdatePractitioner(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePractitioner(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, practitionerResponse{&p, p.DisplayName()})
}

func (h *Handler) ListPractitioners(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	items, total, err := h.svc.ListPractitioners(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	out := make([]practitionerResponse, len(items))
	for i, p := range items {
		out[i] = practitionerResponse{p, p.DisplayName()}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

// -- Staff Handlers --

type createStaffRequest struct {
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Password       string     `json:"password"`
	Roles          []string   `json:"roles"`
	PractitionerID *uuid.UUID `json:"practitioner_id,omitempty"`
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var req createStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st := Staff{Username: req.Username, Name: req.Name, Roles: req.Roles, PractitionerID: req.PractitionerID}
	if err := h.staff.CreateStaff(c.Request().Context(), &st, req.Password); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, st.View())
}

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.staff.ListStaff(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	views := make([]StaffView, len(items))
	for i, st := range items {
		views[i] = st.View()
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

// AuthHandler serves POST /auth/login.
type AuthHandler struct {
	staff      *StaffService
	signingKey []byte
	ttl        time.Duration
}

func NewAuthHandler(staff *StaffService, signingKey []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{staff: staff, signingKey: signingKey, ttl: ttl}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      StaffView `json:"user"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	st, err := h.staff.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	token, expires, err := auth.IssueToken(h.signingKey, st.ID.String(), st.Name, st.Roles, h.ttl)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: st.View()})
}
