package insights

import (
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
	api.GET("/insights", h.GetOverview, auth.RequireRole("admin"))
}

func (h *Handler) GetOverview(c echo.Context) error {
	ov, err := h.svc.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ov)
}
