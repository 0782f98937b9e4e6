package appointments

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/domain/ledger"
	"github.com/lifeline/lifeline/internal/domain/registry"
	"github.com/lifeline/lifeline/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	bookGroup := api.Group("", auth.RequireRole("admin", "patient"))
	bookGroup.GET("/appointments/diseases", h.ListDiseases)
	bookGroup.POST("/appointments", h.Book)
	bookGroup.GET("/patients/:id/history", h.GetHistory)
	bookGroup.GET("/patients/:id/prescriptions", h.ListPrescriptions)

	doctorGroup := api.Group("", auth.RequireRole("doctor"))
	doctorGroup.GET("/doctors/:id/worklist", h.GetWorklist)
	doctorGroup.POST("/patients/:id/prescriptions", h.AddPrescription)
}

func (h *Handler) ListDiseases(c echo.Context) error {
	return c.JSON(http.StatusOK, Diseases())
}

type bookRequest struct {
	PatientID string   `json:"patient_id"`
	Diseases  []string `json:"diseases"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	booking, err := h.svc.Book(c.Request().Context(), req.PatientID, req.Diseases)
	switch {
	case errors.Is(err, ErrNoDiseases):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, booking)
}

func (h *Handler) GetHistory(c echo.Context) error {
	hist, err := h.svc.History(c.Param("id"))
	if errors.Is(err, ledger.ErrNoHistory) {
		return echo.NewHTTPError(http.StatusNotFound, "no record on file")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	prescriptions, err := h.svc.PrescriptionsFor(c.Param("id"))
	if errors.Is(err, ledger.ErrNoHistory) {
		return echo.NewHTTPError(http.StatusNotFound, "no record on file")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, prescriptions)
}

func (h *Handler) GetWorklist(c echo.Context) error {
	entries, err := h.svc.Worklist(c.Request().Context(), c.Param("id"))
	if errors.Is(err, registry.ErrDoctorNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

type prescriptionRequest struct {
	Text string `json:"text"`
}

// AddPrescription writes for the doctor identified by the session, not a
// request field.
func (h *Handler) AddPrescription(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doctorID := auth.ActorIDFromContext(c.Request().Context())
	p, err := h.svc.AddPrescription(c.Request().Context(), doctorID, c.Param("id"), req.Text)
	var verr *registry.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ledger.ErrNoHistory):
		return echo.NewHTTPError(http.StatusNotFound, "no record on file")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}
