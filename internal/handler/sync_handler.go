package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
)

// SyncHandler exposes the admin Stripe reconciliation job.
type SyncHandler struct {
	sync service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(sync service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// ForcedSyncRequest narrows a sync run to a start date and batch size.
type ForcedSyncRequest struct {
	StartDate string `json:"startDate" validate:"required"` // YYYY-MM-DD
	Limit     int64  `json:"limit" validate:"omitempty,min=1,max=100"`
}

// Run godoc
// @Summary Reconcile recent Stripe sessions against local orders
// @Tags admin
// @Produce json
// @Success 200 {object} service.SyncReport
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/stripe-sync [get]
func (h *SyncHandler) Run(c echo.Context) error {
	since := time.Now().Add(-service.DefaultSyncWindow)
	report, err := h.sync.Sync(c.Request().Context(), since, service.DefaultSyncLimit)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, report)
}

// RunForced godoc
// @Summary Reconcile Stripe sessions from a given start date
// @Tags admin
// @Accept json
// @Produce json
// @Param request body ForcedSyncRequest true "Sync window"
// @Success 200 {object} service.SyncReport
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/stripe-sync [post]
func (h *SyncHandler) RunForced(c echo.Context) error {
	var req ForcedSyncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	since, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "startDate must be YYYY-MM-DD")
	}
	limit := req.Limit
	if limit == 0 {
		limit = service.DefaultSyncLimit
	}

	report, err := h.sync.Sync(c.Request().Context(), since, limit)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, report)
}
