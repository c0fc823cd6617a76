package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

// webhookBodyLimit bounds webhook payloads to 1MiB.
const webhookBodyLimit = 1 << 20

// WebhookHandler handles Stripe webhook deliveries.
type WebhookHandler struct {
	stripe       stripeclient.Client
	provisioning service.ProvisioningService
	cfg          *config.Config
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(stripe stripeclient.Client, provisioning service.ProvisioningService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{stripe: stripe, provisioning: provisioning, cfg: cfg}
}

// HandleStripeWebhook godoc
// @Summary Ingest a Stripe webhook event
// @Tags webhooks
// @Accept json
// @Produce json
// @Param stripe-signature header string true "Stripe signature"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, webhookBodyLimit)

	// Signature verification needs the byte-exact payload; never bind/parse
	// the body before verifying.
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: "failed to read request body",
			Code:  "INVALID_BODY",
		})
	}

	event, err := h.stripe.VerifyWebhook(payload, req.Header.Get("stripe-signature"))
	if err != nil {
		httpErr := apperrors.MapErrorToHTTP(apperrors.ErrInvalidSignature)
		return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	result, err := h.provisioning.ProcessEvent(req.Context(), event)
	if err != nil {
		// Non-2xx makes Stripe redeliver; processing is idempotent on unique
		// keys so the replay is safe.
		log.Printf("webhook: processing event %s failed: %v", event.ID, err)
		return c.JSON(http.StatusInternalServerError, apperrors.ErrorResponse{
			Error: "failed to process webhook event",
			Code:  "PROCESSING_FAILED",
		})
	}

	status := "processed"
	if result.Duplicate {
		status = "duplicate"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
		"status":   status,
	})
}

// WebhookHealth godoc
// @Summary Report webhook endpoint configuration status
// @Tags webhooks
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /webhooks/stripe [get]
func (h *WebhookHandler) WebhookHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":                    "ok",
		"webhook_secret_configured": h.cfg.StripeWebhookSecret != "",
		"stripe_key_configured":     h.cfg.StripeSecretKey != "",
	})
}
