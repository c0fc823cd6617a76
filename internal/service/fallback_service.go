package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

// Token source values returned to the client.
const (
	TokenSourceExisting = "existing"
	TokenSourceFallback = "fallback"
)

// SupportInfo carries structured escalation details so support can act on a
// failed recovery without digging through logs.
type SupportInfo struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email,omitempty"`
	Issue     string `json:"issue"`
}

// EscalationError wraps a domain error with support escalation details.
type EscalationError struct {
	Err     error
	Support SupportInfo
}

func (e *EscalationError) Error() string { return e.Err.Error() }

func (e *EscalationError) Unwrap() error { return e.Err }

// FallbackResult is the outcome of a recovery attempt.
type FallbackResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
	Source    string
}

// FallbackCheck is the outcome of a side-effect-free feasibility probe.
type FallbackCheck struct {
	TokenExists bool `json:"token_exists"`
	SessionPaid bool `json:"session_paid"`
	UserExists  bool `json:"user_exists"`
	Feasible    bool `json:"feasible"`
}

// FallbackService is the safety net for webhook loss: it verifies payment
// directly against Stripe and issues the auto-login token the webhook never
// created. It never grants access without independently verified payment
// proof, and it never blocks access on side effects that can fail.
type FallbackService interface {
	Recover(ctx context.Context, sessionID string) (*FallbackResult, error)
	Check(ctx context.Context, sessionID string) (*FallbackCheck, error)
}

type fallbackService struct {
	stripe           stripeclient.Client
	userRepo         repository.UserRepository
	orderRepo        repository.OrderRepository
	templateRepo     repository.TemplateRepository
	notificationRepo repository.NotificationRepository
	autoLogin        AutoLoginService
	now              func() time.Time
}

// NewFallbackService creates a new fallback reconciler.
func NewFallbackService(
	stripe stripeclient.Client,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	templateRepo repository.TemplateRepository,
	notificationRepo repository.NotificationRepository,
	autoLogin AutoLoginService,
) FallbackService {
	return &fallbackService{
		stripe:           stripe,
		userRepo:         userRepo,
		orderRepo:        orderRepo,
		templateRepo:     templateRepo,
		notificationRepo: notificationRepo,
		autoLogin:        autoLogin,
		now:              time.Now,
	}
}

func (s *fallbackService) Recover(ctx context.Context, sessionID string) (*FallbackResult, error) {
	// The webhook may have landed between the client's last poll and this
	// call; hand back the token it created instead of minting another.
	if peek, err := s.autoLogin.Peek(ctx, sessionID); err == nil {
		return &FallbackResult{
			Token:     peek.Token,
			ExpiresAt: peek.ExpiresAt,
			User:      peek.User,
			Source:    TokenSourceExisting,
		}, nil
	}

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PaymentStatus != stripeclient.PaymentStatusPaid {
		return nil, apperrors.ErrSessionUnpaid
	}
	if sess.CustomerEmail == "" || sess.CustomerName == "" {
		return nil, &EscalationError{
			Err: apperrors.ErrMissingMetadata,
			Support: SupportInfo{
				SessionID: sessionID,
				Email:     sess.CustomerEmail,
				Issue:     "paid session missing customer metadata; webhook never tagged it",
			},
		}
	}

	user, err := s.userRepo.FindByEmail(ctx, sess.CustomerEmail)
	if err == gorm.ErrRecordNotFound {
		// Creating a user here, without the full webhook context, risks
		// inconsistent state. Surface it instead.
		return nil, &EscalationError{
			Err: apperrors.ErrUserMissing,
			Support: SupportInfo{
				SessionID: sessionID,
				Email:     sess.CustomerEmail,
				Issue:     "payment verified but no user was provisioned; webhook failed entirely",
			},
		}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", sess.CustomerEmail, err)
	}

	// Create the missing audit record; the login must still succeed without it.
	if err := s.ensureOrder(ctx, sess, user); err != nil {
		log.Printf("fallback: create order for session %s: %v", sessionID, err)
	}

	token, err := s.autoLogin.Issue(ctx, user, sessionID, true)
	if err != nil {
		return nil, err
	}

	s.notifyRecovered(ctx, user)

	return &FallbackResult{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		User:      user,
		Source:    TokenSourceFallback,
	}, nil
}

func (s *fallbackService) Check(ctx context.Context, sessionID string) (*FallbackCheck, error) {
	check := &FallbackCheck{}

	if _, err := s.autoLogin.Peek(ctx, sessionID); err == nil {
		check.TokenExists = true
		check.Feasible = true
		return check, nil
	}

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	check.SessionPaid = sess.PaymentStatus == stripeclient.PaymentStatusPaid

	if sess.CustomerEmail != "" {
		if _, err := s.userRepo.FindByEmail(ctx, sess.CustomerEmail); err == nil {
			check.UserExists = true
		}
	}

	check.Feasible = check.SessionPaid && check.UserExists && sess.CustomerName != ""
	return check, nil
}

func (s *fallbackService) ensureOrder(ctx context.Context, sess *stripeclient.CheckoutSession, user *model.User) error {
	_, err := s.orderRepo.FindByStripeSessionID(ctx, sess.ID)
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	template, err := s.templateRepo.FindBySlug(ctx, model.DefaultTemplateSlug)
	if err != nil {
		return fmt.Errorf("lookup default template: %w", err)
	}

	sessID := sess.ID
	order := &model.Order{
		StripeSessionID:    &sessID,
		Status:             model.OrderStatusProcessing,
		Total:              centsToDecimal(sess.AmountTotal),
		Currency:           firstNonEmpty(sess.Currency, "eur"),
		UserID:             &user.ID,
		TemplateID:         template.ID,
		CreatedViaFallback: true,
	}
	return s.orderRepo.Create(ctx, order)
}

// notifyRecovered tells the user their access was restored automatically.
// Best effort.
func (s *fallbackService) notifyRecovered(ctx context.Context, user *model.User) {
	notification := &model.Notification{
		UserID:  user.ID,
		Type:    model.NotificationAccessRecovered,
		Title:   "Acceso recuperado",
		Message: "Hubo un retraso procesando tu pago, pero tu acceso se ha restablecido automáticamente.",
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("fallback: create recovery notification for %s: %v", user.ID, err)
	}
}
