package registry

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/platform/auth"
	"github.com/lifeline/lifeline/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Registration and listings are desk operations.
	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/patients", h.RegisterPatient)
	adminGroup.POST("/doctors", h.RegisterDoctor)
	adminGroup.GET("/patients", h.ListPatients)

	readGroup := api.Group("", auth.RequireRole("admin", "patient", "doctor"))
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/:id/record", h.GetPatientRecord)
	readGroup.GET("/doctors", h.ListDoctors)
	readGroup.GET("/doctors/:id", h.GetDoctor)

	profileGroup := api.Group("", auth.RequireRole("admin", "patient"))
	profileGroup.PUT("/patients/:id/profile", h.UpdateProfile)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in NewPatientInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.svc.RegisterPatient(c.Request().Context(), in)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrDuplicateID):
		return echo.NewHTTPError(http.StatusConflict, "a patient with this name and age is already registered")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var in NewDoctorInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.RegisterDoctor(c.Request().Context(), in)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrDuplicateID):
		return echo.NewHTTPError(http.StatusConflict, "a doctor with this name and age is already registered")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// GetPatientRecord returns the master record plus the raw ledger text.
func (h *Handler) GetPatientRecord(c echo.Context) error {
	p, lines, err := h.svc.PatientDetails(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient": p,
		"record":  lines,
	})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	var (
		items interface{}
		total int
	)
	if c.QueryParam("sort") == "age" {
		patients, err := h.svc.SortPatientsByAge(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		total = len(patients)
		items = pageOf(patients, pg.Limit, pg.Offset)
	} else {
		summaries, err := h.svc.ListPatients(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		total = len(summaries)
		items = pageOf(summaries, pg.Limit, pg.Offset)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if spec := c.QueryParam("specialization"); spec != "" {
		filtered := doctors[:0:0]
		for _, d := range doctors {
			if d.Specialization == spec {
				filtered = append(filtered, d)
			}
		}
		doctors = filtered
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pageOf(doctors, pg.Limit, pg.Offset), len(doctors), pg.Limit, pg.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrDoctorNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

type updateProfileRequest struct {
	Contact string `json:"contact"`
	Address string `json:"address"`
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := h.svc.UpdateProfile(c.Request().Context(), c.Param("id"), req.Contact, req.Address)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// pageOf slices a fully materialized list; the flat files have no
// query-side limits.
func pageOf[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
