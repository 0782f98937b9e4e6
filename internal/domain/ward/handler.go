package ward

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifeline/lifeline/internal/platform/auth"
)

type Handler struct {
	beds  *Beds
	queue *Queue
}

func NewHandler(beds *Beds, queue *Queue) *Handler {
	return &Handler{beds: beds, queue: queue}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Bed and queue management is a desk concern.
	group := api.Group("", auth.RequireRole("admin"))
	group.GET("/beds", h.ListBeds)
	group.POST("/beds/allocations", h.Allocate)
	group.DELETE("/beds/allocations/:patientId", h.Discharge)
	group.GET("/queue", h.GetQueue)
	group.POST("/queue", h.Enqueue)
	group.POST("/queue/next", h.CallNext)
}

func (h *Handler) ListBeds(c echo.Context) error {
	return c.JSON(http.StatusOK, h.beds.Status())
}

type allocateRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) Allocate(c echo.Context) error {
	var req allocateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing patient id")
	}
	bedID, err := h.beds.Allocate(req.PatientID)
	switch {
	case errors.Is(err, ErrAlreadyAllocated):
		return echo.NewHTTPError(http.StatusConflict, "patient already has a bed allocated")
	case errors.Is(err, ErrNoBedsAvailable):
		return echo.NewHTTPError(http.StatusConflict, "all beds are currently full")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"patient_id": req.PatientID,
		"bed_id":     bedID,
	})
}

func (h *Handler) Discharge(c echo.Context) error {
	bedID, err := h.beds.Discharge(c.Param("patientId"))
	switch {
	case errors.Is(err, ErrNotAdmitted):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found in any bed")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"patient_id": c.Param("patientId"),
		"bed_id":     bedID,
	})
}

func (h *Handler) GetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.queue.Snapshot())
}

type enqueueRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing patient id")
	}
	h.queue.Enqueue(req.PatientID)
	return c.JSON(http.StatusCreated, map[string]int{"position": h.queue.Len()})
}

func (h *Handler) CallNext(c echo.Context) error {
	patientID, ok := h.queue.CallNext()
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{"empty": true})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"empty":      false,
		"patient_id": patientID,
	})
}
