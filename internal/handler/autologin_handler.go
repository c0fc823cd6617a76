package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
)

// sessionCookieName carries the signed session JWT.
const sessionCookieName = "session_token"

// AutoLoginHandler handles auto-login token retrieval, consumption, and the
// fallback recovery path.
type AutoLoginHandler struct {
	autoLogin service.AutoLoginService
	fallback  service.FallbackService
	cfg       *config.Config
}

// NewAutoLoginHandler creates a new auto-login handler.
func NewAutoLoginHandler(autoLogin service.AutoLoginService, fallback service.FallbackService, cfg *config.Config) *AutoLoginHandler {
	return &AutoLoginHandler{autoLogin: autoLogin, fallback: fallback, cfg: cfg}
}

// ConsumeRequest redeems a token for a session credential.
type ConsumeRequest struct {
	Token     string `json:"token" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
}

// FallbackRequest asks for recovery of a session whose token never appeared.
type FallbackRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// userPayload is the minimal identity returned to the client.
type userPayload struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Name                   string `json:"name"`
	Role                   string `json:"role"`
	HasCompletedOnboarding bool   `json:"hasCompletedOnboarding"`
}

func toUserPayload(u *model.User) userPayload {
	return userPayload{
		ID:                     u.ID.String(),
		Email:                  u.Email,
		Name:                   u.Name,
		Role:                   string(u.Role),
		HasCompletedOnboarding: u.HasCompletedOnboarding,
	}
}

// Retrieve godoc
// @Summary Look up the auto-login token for a checkout session (peek, non-consuming)
// @Tags auth
// @Produce json
// @Param session_id query string true "Stripe checkout session id"
// @Param attempt query int false "Client retry attempt, echoed in diagnostics"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /auth/auto-login [get]
func (h *AutoLoginHandler) Retrieve(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	attempt, _ := strconv.Atoi(c.QueryParam("attempt"))

	peek, err := h.autoLogin.Peek(c.Request().Context(), sessionID)
	if err != nil {
		return h.peekError(c, err, attempt)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     peek.Token,
		"user":      toUserPayload(peek.User),
		"expiresAt": peek.ExpiresAt.Format(time.RFC3339),
	})
}

// peekError answers 404 with diagnostics: only "no token ever created" is
// worth retrying, a used or expired token never becomes usable again.
func (h *AutoLoginHandler) peekError(c echo.Context, err error, attempt int) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	shouldRetry := errors.Is(err, apperrors.ErrTokenNotFound)
	return c.JSON(httpErr.StatusCode, map[string]interface{}{
		"success":      false,
		"error":        httpErr.Message,
		"code":         httpErr.Code,
		"shouldRetry":  shouldRetry,
		"retryAttempt": attempt,
	})
}

// Consume godoc
// @Summary Redeem an auto-login token for a session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConsumeRequest true "Token and session id"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/auto-login [post]
func (h *AutoLoginHandler) Consume(c echo.Context) error {
	var req ConsumeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.autoLogin.Consume(c.Request().Context(), req.Token, req.SessionID)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	setSessionCookie(c, h.cfg, result.SessionToken, result.ExpiresAt)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"user":         toUserPayload(result.User),
		"redirectUrl":  result.RedirectURL,
		"sessionToken": result.SessionToken,
	})
}

// Fallback godoc
// @Summary Recover access for a paid session whose token never appeared
// @Tags auth
// @Accept json
// @Produce json
// @Param request body FallbackRequest true "Session id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/auto-login/fallback [post]
func (h *AutoLoginHandler) Fallback(c echo.Context) error {
	var req FallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.fallback.Recover(c.Request().Context(), req.SessionID)
	if err != nil {
		return h.fallbackError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     result.Token,
		"source":    result.Source,
		"user":      toUserPayload(result.User),
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
	})
}

// FallbackCheck godoc
// @Summary Probe whether fallback recovery is feasible, without side effects
// @Tags auth
// @Produce json
// @Param session_id query string true "Stripe checkout session id"
// @Success 200 {object} service.FallbackCheck
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/auto-login/fallback [get]
func (h *AutoLoginHandler) FallbackCheck(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	check, err := h.fallback.Check(c.Request().Context(), sessionID)
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, check)
}

// fallbackError renders structured support escalation info when the failure
// needs human follow-up.
func (h *AutoLoginHandler) fallbackError(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	body := map[string]interface{}{
		"success": false,
		"error":   httpErr.Message,
		"code":    httpErr.Code,
	}
	if esc, ok := isEscalation(err); ok {
		body["supportInfo"] = esc.Support
	}
	return c.JSON(httpErr.StatusCode, body)
}

// isEscalation extracts escalation details when present.
func isEscalation(err error) (*service.EscalationError, bool) {
	var esc *service.EscalationError
	if errors.As(err, &esc) {
		return esc, true
	}
	return nil, false
}

// setSessionCookie installs the signed session JWT as an HTTP-only cookie.
func setSessionCookie(c echo.Context, cfg *config.Config, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
