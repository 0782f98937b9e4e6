package billing

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Statements and payments are visible to the desk and to the patient
	// themselves.
	group := api.Group("", auth.RequireRole("admin", "patient"))
	group.GET("/billing/:id/statement", h.GetStatement)
	group.POST("/billing/:id/payments", h.Pay)
	group.POST("/billing/:id/discharge", h.Discharge)
}

func (h *Handler) GetStatement(c echo.Context) error {
	pid := c.Param("id")
	if pid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing patient id")
	}
	return c.JSON(http.StatusOK, h.svc.ComputeBalance(pid))
}

type payRequest struct {
	Method string `json:"method"`
}

func (h *Handler) Pay(c echo.Context) error {
	pid := c.Param("id")
	if pid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing patient id")
	}
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.svc.Settle(pid, req.Method)
	switch {
	case errors.Is(err, ErrInvalidPayMethod):
		return echo.NewHTTPError(http.StatusBadRequest, "payment method must be Card or UPI")
	case errors.Is(err, ErrNothingDue) || errors.Is(err, ErrCreditBalance):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, receipt)
}

func (h *Handler) Discharge(c echo.Context) error {
	pid := c.Param("id")
	if pid == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing patient id")
	}
	bedID, err := h.svc.DischargeWithoutDues(pid)
	switch {
	case errors.Is(err, ErrNotAdmitted):
		return echo.NewHTTPError(http.StatusNotFound, "patient occupies no bed")
	case err != nil:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"patient_id":      pid,
		"discharged_from": bedID,
	})
}
