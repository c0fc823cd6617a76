// Package stripeclient wraps the Stripe SDK behind a narrow interface so
// services depend on the few calls this system makes and tests can substitute
// a mock. Stripe remains the source of truth for payment state; nothing here
// caches or reinterprets it.
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
)

// PaymentStatusPaid is Stripe's payment_status value for a settled session.
const PaymentStatusPaid = "paid"

// EventPaymentIntentSucceeded is the webhook event type the provisioning
// pipeline acts on.
const EventPaymentIntentSucceeded = "payment_intent.succeeded"

// CheckoutSession is the subset of Stripe's checkout session this system uses.
type CheckoutSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	Status          string
	AmountTotal     int64 // smallest currency unit (cents)
	Currency        string
	CustomerEmail   string
	CustomerName    string
	Metadata        map[string]string
	Created         time.Time
}

// Event is a verified webhook delivery.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// PaymentIntent is the payload of a payment_intent.* event.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}

// Client defines the Stripe operations the service depends on.
type Client interface {
	// VerifyWebhook checks the signature against the raw payload and returns
	// the parsed event, or apperrors.ErrInvalidSignature.
	VerifyWebhook(payload []byte, sigHeader string) (*Event, error)

	// GetCheckoutSession retrieves a single session by id.
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)

	// ListCompletedCheckoutSessions lists sessions with status "complete"
	// created at or after since, bounded by limit.
	ListCompletedCheckoutSessions(ctx context.Context, since time.Time, limit int64) ([]*CheckoutSession, error)
}

// ParsePaymentIntent decodes a payment intent event payload.
func ParsePaymentIntent(data json.RawMessage) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := json.Unmarshal(data, &pi); err != nil {
		return nil, fmt.Errorf("parse payment intent: %w", err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("parse payment intent: missing id")
	}
	return &pi, nil
}

// APIClient talks to the real Stripe API.
type APIClient struct {
	api           *client.API
	webhookSecret string
}

// Ensure APIClient implements Client.
var _ Client = (*APIClient)(nil)

// NewAPIClient builds a client with the given secret key and webhook signing
// secret.
func NewAPIClient(secretKey, webhookSecret string) *APIClient {
	return &APIClient{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

// VerifyWebhook verifies the signature byte-exact against the raw body.
func (c *APIClient) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
	}
	return &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Data: event.Data.Raw,
	}, nil
}

// GetCheckoutSession retrieves a session from Stripe.
func (c *APIClient) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSessionNotFound, err)
	}
	return fromStripeSession(sess), nil
}

// ListCompletedCheckoutSessions pages through completed sessions since the
// given time, up to limit.
func (c *APIClient) ListCompletedCheckoutSessions(ctx context.Context, since time.Time, limit int64) ([]*CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		Status: stripe.String("complete"),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: since.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)

	var out []*CheckoutSession
	iter := c.api.CheckoutSessions.List(params)
	for iter.Next() {
		out = append(out, fromStripeSession(iter.CheckoutSession()))
		if int64(len(out)) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list checkout sessions: %w", err)
	}
	return out, nil
}

// fromStripeSession normalizes customer identity: structured customer details
// win over the raw email field, metadata is the last resort.
func fromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
		Status:        string(s.Status),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
		Created:       time.Unix(s.Created, 0),
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
		out.CustomerName = s.CustomerDetails.Name
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = s.CustomerEmail
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = s.Metadata["customer_email"]
	}
	if out.CustomerName == "" {
		out.CustomerName = s.Metadata["customer_name"]
	}
	return out
}
