package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
)

// TemplateHandler serves the template catalog.
type TemplateHandler struct {
	templates service.TemplateService
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(templates service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List godoc
// @Summary List active website templates
// @Tags templates
// @Produce json
// @Success 200 {array} model.Template
// @Failure 500 {object} errors.ErrorResponse
// @Router /templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	templates, err := h.templates.ListActive(c.Request().Context())
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, templates)
}
