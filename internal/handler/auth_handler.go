package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
)

// AuthHandler handles password authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 423 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	setSessionCookie(c, h.cfg, result.SessionToken, result.ExpiresAt)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        toUserPayload(result.User),
		"redirectUrl": result.RedirectURL,
	})
}
