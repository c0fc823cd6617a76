package router

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	"github.com/xokuso/peluquerias-app-sub003/internal/handler"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/ratelimit"
)

// Auto-login lookups are abuse-mitigated, not hard-bounded: one request per
// second sustained with a small burst comfortably covers the client's
// five-attempt polling loop.
const (
	autoLoginRPS     = 1.0
	autoLoginBurst   = 10
	rateLimitCleanup = 3 * time.Minute
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	webhookHandler *handler.WebhookHandler,
	autoLoginHandler *handler.AutoLoginHandler,
	authHandler *handler.AuthHandler,
	templateHandler *handler.TemplateHandler,
	syncHandler *handler.SyncHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Webhook routes: no auth middleware, the signature is the authentication.
	api.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)
	api.GET("/webhooks/stripe", webhookHandler.WebhookHealth)

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.GET("/templates", templateHandler.List)

	// Auto-login surface, rate limited per client IP.
	limited := api.Group("", ratelimit.Middleware(
		ratelimit.NewStore(autoLoginRPS, autoLoginBurst, rateLimitCleanup),
	))
	limited.GET("/auth/auto-login", autoLoginHandler.Retrieve)
	limited.POST("/auth/auto-login", autoLoginHandler.Consume)
	limited.POST("/auth/auto-login/fallback", autoLoginHandler.Fallback)
	limited.GET("/auth/auto-login/fallback", autoLoginHandler.FallbackCheck)

	// Admin routes (require an ADMIN session token).
	admin := api.Group("/admin", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "cookie:session_token,header:" + echo.HeaderAuthorization,
	}), requireAdmin)

	admin.GET("/stripe-sync", syncHandler.Run)
	admin.POST("/stripe-sync", syncHandler.RunForced)
}

// requireAdmin rejects authenticated sessions that are not ADMIN role.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != string(model.RoleAdmin) {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
