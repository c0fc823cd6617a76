package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/xokuso/peluquerias-app-sub003/internal/cache"
	"github.com/xokuso/peluquerias-app-sub003/internal/mail"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
	"github.com/xokuso/peluquerias-app-sub003/internal/retry"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

const (
	bcryptCost      = 10
	webhookProvider = "stripe"

	// metadataSourceSimplified tags payment intents from the one-page
	// checkout flow, which provisions user and order from the webhook alone.
	metadataSourceSimplified = "simplified-checkout"

	// webhookDedupTTL bounds the Redis fast-path markers. The DB unique
	// index stays authoritative long after these expire.
	webhookDedupTTL = 72 * time.Hour
)

// emailRetryPolicy bounds the confirmation email to 3 attempts with 2s/4s
// backoff between them.
var emailRetryPolicy = retry.NewPolicy(3, retry.Exponential(2*time.Second))

// ProcessResult reports what a webhook delivery did.
type ProcessResult struct {
	Duplicate bool
	Handled   bool
}

// ProvisioningService ingests verified Stripe events and provisions local
// state. Every write is keyed on a unique external identifier (email,
// payment intent id, event id) so Stripe's at-least-once redelivery never
// duplicates records.
type ProvisioningService interface {
	ProcessEvent(ctx context.Context, event *stripeclient.Event) (*ProcessResult, error)
}

type provisioningService struct {
	userRepo         repository.UserRepository
	orderRepo        repository.OrderRepository
	templateRepo     repository.TemplateRepository
	webhookEventRepo repository.WebhookEventRepository
	notificationRepo repository.NotificationRepository
	autoLogin        AutoLoginService
	sender           mail.Sender
	cache            *cache.Client
	retryPolicy      retry.Policy
}

// NewProvisioningService creates a new provisioning service.
func NewProvisioningService(
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	templateRepo repository.TemplateRepository,
	webhookEventRepo repository.WebhookEventRepository,
	notificationRepo repository.NotificationRepository,
	autoLogin AutoLoginService,
	sender mail.Sender,
	cacheClient *cache.Client,
) ProvisioningService {
	return &provisioningService{
		userRepo:         userRepo,
		orderRepo:        orderRepo,
		templateRepo:     templateRepo,
		webhookEventRepo: webhookEventRepo,
		notificationRepo: notificationRepo,
		autoLogin:        autoLogin,
		sender:           sender,
		cache:            cacheClient,
		retryPolicy:      emailRetryPolicy,
	}
}

func (s *provisioningService) ProcessEvent(ctx context.Context, event *stripeclient.Event) (*ProcessResult, error) {
	// Fast-path dedup marker. Redis being down degrades to the DB check.
	fresh, _ := s.cache.SetNX(ctx, "webhook:event:"+event.ID, []byte("1"), webhookDedupTTL)
	if !fresh {
		return &ProcessResult{Duplicate: true}, nil
	}

	created, err := s.webhookEventRepo.InsertIfNew(ctx, &model.WebhookEvent{
		Provider:        webhookProvider,
		ProviderEventID: event.ID,
		EventType:       event.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		return &ProcessResult{Duplicate: true}, nil
	}

	var procErr error
	result := &ProcessResult{}
	switch event.Type {
	case stripeclient.EventPaymentIntentSucceeded:
		result.Handled = true
		procErr = s.handlePaymentIntentSucceeded(ctx, event)
	default:
		// Forward compatibility: acknowledge unknown event types.
		log.Printf("webhook: ignoring unhandled event type %s (%s)", event.Type, event.ID)
	}

	errMsg := ""
	if procErr != nil {
		errMsg = procErr.Error()
	}
	if markErr := s.webhookEventRepo.MarkProcessed(ctx, webhookProvider, event.ID, errMsg); markErr != nil {
		log.Printf("webhook: mark event %s processed: %v", event.ID, markErr)
	}
	if procErr != nil {
		// Let Stripe redeliver. The failure recorded just above makes the
		// event row reclaimable by the next delivery, and dropping the Redis
		// marker lets that delivery reach the database check.
		s.clearDedupMarkers(ctx, event.ID)
		return nil, procErr
	}
	return result, nil
}

// clearDedupMarkers reopens the event for redelivery after a processing
// failure.
func (s *provisioningService) clearDedupMarkers(ctx context.Context, eventID string) {
	_ = s.cache.Delete(ctx, "webhook:event:"+eventID)
}

func (s *provisioningService) handlePaymentIntentSucceeded(ctx context.Context, event *stripeclient.Event) error {
	pi, err := stripeclient.ParsePaymentIntent(event.Data)
	if err != nil {
		return err
	}

	if pi.Metadata["source"] == metadataSourceSimplified {
		return s.provisionSimplifiedCheckout(ctx, pi)
	}

	// Standard flow: the checkout session completion handles provisioning;
	// the payment intent only triggers the confirmation email when it is
	// tagged with the salon details.
	email := firstNonEmpty(pi.ReceiptEmail, pi.Metadata["customer_email"])
	salon := pi.Metadata["salon_name"]
	if email == "" || salon == "" {
		log.Printf("webhook: payment intent %s without email/salon metadata, nothing to do", pi.ID)
		return nil
	}
	s.sendConfirmationEmail(ctx, email, salon, pi.ID)
	return nil
}

// provisionSimplifiedCheckout resolves or creates the paying user and their
// order. Replays are detected by payment intent id.
func (s *provisioningService) provisionSimplifiedCheckout(ctx context.Context, pi *stripeclient.PaymentIntent) error {
	existing, err := s.orderRepo.FindByPaymentIntentID(ctx, pi.ID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return fmt.Errorf("lookup order by payment intent: %w", err)
	}
	if existing != nil && existing.UserID != nil {
		log.Printf("webhook: payment intent %s already provisioned, skipping", pi.ID)
		return nil
	}

	email := firstNonEmpty(pi.ReceiptEmail, pi.Metadata["customer_email"])
	if email == "" {
		log.Printf("webhook: payment intent %s has no customer email, cannot provision", pi.ID)
		return nil
	}
	name := firstNonEmpty(pi.Metadata["customer_name"], nameFromEmail(email))

	tempPassword, err := randomPassword()
	if err != nil {
		return fmt.Errorf("generate temp password: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash temp password: %w", err)
	}

	user, err := s.userRepo.FindByEmailOrCreate(ctx, &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashed),
		Role:         model.RoleClient,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", email, err)
	}

	template, err := s.resolveTemplate(ctx, pi.Metadata["template"])
	if err != nil {
		return err
	}

	total := centsToDecimal(pi.Amount)
	if existing != nil {
		existing.UserID = &user.ID
		existing.Status = model.OrderStatusProcessing
		existing.Total = total
		if err := s.orderRepo.Update(ctx, existing); err != nil {
			return fmt.Errorf("attach user to order: %w", err)
		}
	} else {
		intentID := pi.ID
		order := &model.Order{
			PaymentIntentID: &intentID,
			Status:          model.OrderStatusProcessing,
			Total:           total,
			Currency:        firstNonEmpty(pi.Currency, "eur"),
			UserID:          &user.ID,
			TemplateID:      template.ID,
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
	}

	// Let the success page log the user straight in when the checkout
	// session id was stamped into the intent metadata.
	if sessionID := pi.Metadata["checkout_session_id"]; sessionID != "" {
		if _, err := s.autoLogin.Issue(ctx, user, sessionID, false); err != nil {
			return fmt.Errorf("issue auto-login token: %w", err)
		}
	}

	return nil
}

// sendConfirmationEmail makes a bounded number of attempts and escalates
// persistent failure to a notification; it never fails the webhook.
func (s *provisioningService) sendConfirmationEmail(ctx context.Context, email, salon, paymentIntentID string) {
	msg := &mail.Message{
		To:      email,
		Subject: "Tu web para " + salon + " está en marcha",
		Body: "¡Gracias por tu compra! Hemos recibido el pago para la web de " + salon + ".\n" +
			"En breve recibirás acceso al panel para completar la configuración.",
	}

	err := s.retryPolicy.Do(ctx, func(ctx context.Context) error {
		return s.sender.Send(ctx, msg)
	})
	if err == nil {
		return
	}

	log.Printf("webhook: confirmation email to %s failed after retries: %v", email, err)
	admin, adminErr := s.userRepo.FindFirstByRole(ctx, model.RoleAdmin)
	if adminErr != nil {
		log.Printf("webhook: no admin to notify about failed email: %v", adminErr)
		return
	}
	notification := &model.Notification{
		UserID:  admin.ID,
		Type:    model.NotificationEmailFailed,
		Title:   "Confirmation email failed",
		Message: fmt.Sprintf("Confirmation email to %s for payment %s failed after retries: %v", email, paymentIntentID, err),
	}
	if nErr := s.notificationRepo.Create(ctx, notification); nErr != nil {
		log.Printf("webhook: create email-failure notification: %v", nErr)
	}
}

// resolveTemplate falls back to the default catalog entry when the metadata
// slug is absent or unknown.
func (s *provisioningService) resolveTemplate(ctx context.Context, slug string) (*model.Template, error) {
	if slug != "" {
		if t, err := s.templateRepo.FindBySlug(ctx, slug); err == nil {
			return t, nil
		} else if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("lookup template %q: %w", slug, err)
		}
	}
	t, err := s.templateRepo.FindBySlug(ctx, model.DefaultTemplateSlug)
	if err != nil {
		return nil, fmt.Errorf("lookup default template: %w", err)
	}
	return t, nil
}

// centsToDecimal converts Stripe's smallest-unit amount to currency units.
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// nameFromEmail derives a display name for accounts created without one.
func nameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// randomPassword returns a throwaway credential for webhook-created accounts;
// users are expected to set their own via the portal.
func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
