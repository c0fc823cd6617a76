package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

// DefaultSyncWindow is how far back the read-reconcile pass looks when the
// operator does not give a start date.
const DefaultSyncWindow = 30 * 24 * time.Hour

// DefaultSyncLimit bounds the number of sessions fetched per run.
const DefaultSyncLimit = 100

// amountTolerance is half a cent in currency units; anything beyond it is
// drift worth correcting.
var amountTolerance = decimal.New(5, -3) // 0.005

// SyncAction names what the job did with one session.
type SyncAction string

const (
	SyncActionOK      SyncAction = "ok"
	SyncActionCreated SyncAction = "created"
	SyncActionUpdated SyncAction = "updated"
	SyncActionSkipped SyncAction = "skipped"
	SyncActionError   SyncAction = "error"
)

// SyncDetail is one per-session entry in the operator log.
type SyncDetail struct {
	SessionID string     `json:"session_id"`
	Action    SyncAction `json:"action"`
	Reason    string     `json:"reason,omitempty"`
	OldTotal  string     `json:"old_total,omitempty"`
	NewTotal  string     `json:"new_total,omitempty"`
}

// SyncReport accumulates counters and the detail log for one run.
type SyncReport struct {
	SessionsChecked int          `json:"sessions_checked"`
	AnomaliesFound  int          `json:"anomalies_found"`
	RecordsCreated  int          `json:"records_created"`
	RecordsUpdated  int          `json:"records_updated"`
	Errors          int          `json:"errors"`
	Details         []SyncDetail `json:"details"`
}

// SyncService reconciles Stripe's completed checkout sessions against local
// orders, repairing drift caused by lost webhooks. Stripe is always the
// source of truth for monetary amounts.
type SyncService interface {
	Sync(ctx context.Context, since time.Time, limit int64) (*SyncReport, error)
}

type syncService struct {
	stripe       stripeclient.Client
	userRepo     repository.UserRepository
	orderRepo    repository.OrderRepository
	paymentRepo  repository.PaymentRepository
	templateRepo repository.TemplateRepository
}

// NewSyncService creates a new sync service.
func NewSyncService(
	stripe stripeclient.Client,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	templateRepo repository.TemplateRepository,
) SyncService {
	return &syncService{
		stripe:       stripe,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		templateRepo: templateRepo,
	}
}

func (s *syncService) Sync(ctx context.Context, since time.Time, limit int64) (*SyncReport, error) {
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	sessions, err := s.stripe.ListCompletedCheckoutSessions(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}

	report := &SyncReport{}
	for _, sess := range sessions {
		report.SessionsChecked++
		detail, err := s.syncSession(ctx, sess)
		if err != nil {
			// One bad session must not abort the batch.
			report.Errors++
			report.Details = append(report.Details, SyncDetail{
				SessionID: sess.ID,
				Action:    SyncActionError,
				Reason:    err.Error(),
			})
			log.Printf("stripe-sync: session %s: %v", sess.ID, err)
			continue
		}
		if detail.Action != SyncActionOK {
			report.AnomaliesFound++
		}
		switch detail.Action {
		case SyncActionCreated:
			report.RecordsCreated++
		case SyncActionUpdated:
			report.RecordsUpdated++
		}
		report.Details = append(report.Details, detail)
	}
	return report, nil
}

func (s *syncService) syncSession(ctx context.Context, sess *stripeclient.CheckoutSession) (SyncDetail, error) {
	order, err := s.orderRepo.FindByStripeSessionID(ctx, sess.ID)
	if err == gorm.ErrRecordNotFound {
		return s.repairMissingOrder(ctx, sess)
	}
	if err != nil {
		return SyncDetail{}, fmt.Errorf("lookup order: %w", err)
	}

	authoritative := centsToDecimal(sess.AmountTotal)
	if order.Total.Sub(authoritative).Abs().GreaterThan(amountTolerance) {
		old := order.Total
		if err := s.orderRepo.UpdateTotal(ctx, order.ID, authoritative); err != nil {
			return SyncDetail{}, fmt.Errorf("correct total: %w", err)
		}
		log.Printf("stripe-sync: corrected order %s total %s -> %s", order.ID, old, authoritative)
		return SyncDetail{
			SessionID: sess.ID,
			Action:    SyncActionUpdated,
			Reason:    "total diverged from stripe amount_total",
			OldTotal:  old.String(),
			NewTotal:  authoritative.String(),
		}, nil
	}

	return SyncDetail{SessionID: sess.ID, Action: SyncActionOK}, nil
}

// repairMissingOrder synthesizes the user, order, and payment a lost webhook
// should have created, backdated to the session's real creation time so
// time-series reporting stays accurate.
func (s *syncService) repairMissingOrder(ctx context.Context, sess *stripeclient.CheckoutSession) (SyncDetail, error) {
	if sess.CustomerEmail == "" || sess.CustomerName == "" {
		return SyncDetail{
			SessionID: sess.ID,
			Action:    SyncActionSkipped,
			Reason:    "insufficient customer metadata to synthesize records",
		}, nil
	}

	password, err := randomPassword()
	if err != nil {
		return SyncDetail{}, fmt.Errorf("generate password: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return SyncDetail{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.FindByEmailOrCreate(ctx, &model.User{
		Email:        sess.CustomerEmail,
		Name:         sess.CustomerName,
		PasswordHash: string(hashed),
		Role:         model.RoleClient,
		IsActive:     true,
	})
	if err != nil {
		return SyncDetail{}, fmt.Errorf("resolve user: %w", err)
	}

	template, err := s.templateRepo.FindBySlug(ctx, model.DefaultTemplateSlug)
	if err != nil {
		return SyncDetail{}, fmt.Errorf("lookup default template: %w", err)
	}

	sessID := sess.ID
	total := centsToDecimal(sess.AmountTotal)
	order := &model.Order{
		StripeSessionID: &sessID,
		Status:          model.OrderStatusProcessing,
		Total:           total,
		Currency:        firstNonEmpty(sess.Currency, "eur"),
		UserID:          &user.ID,
		TemplateID:      template.ID,
		CreatedAt:       sess.Created,
	}
	// Link the payment intent so a late webhook replay finds this order
	// instead of provisioning a second one.
	if sess.PaymentIntentID != "" {
		intentID := sess.PaymentIntentID
		order.PaymentIntentID = &intentID
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return SyncDetail{}, fmt.Errorf("create order: %w", err)
	}

	payment := &model.Payment{
		OrderID:         order.ID,
		StripePaymentID: sess.PaymentIntentID,
		Amount:          total,
		Currency:        order.Currency,
		Status:          "succeeded",
		CreatedAt:       sess.Created,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return SyncDetail{}, fmt.Errorf("create payment: %w", err)
	}

	return SyncDetail{
		SessionID: sess.ID,
		Action:    SyncActionCreated,
		Reason:    "no local order for completed session",
		NewTotal:  total.String(),
	}, nil
}
