package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

type fallbackMocks struct {
	stripe           *MockStripeClient
	userRepo         *MockUserRepository
	orderRepo        *MockOrderRepository
	templateRepo     *MockTemplateRepository
	notificationRepo *MockNotificationRepository
	autoLogin        *MockAutoLoginService
}

func newFallbackService() (FallbackService, *fallbackMocks) {
	m := &fallbackMocks{
		stripe:           new(MockStripeClient),
		userRepo:         new(MockUserRepository),
		orderRepo:        new(MockOrderRepository),
		templateRepo:     new(MockTemplateRepository),
		notificationRepo: new(MockNotificationRepository),
		autoLogin:        new(MockAutoLoginService),
	}
	svc := NewFallbackService(m.stripe, m.userRepo, m.orderRepo, m.templateRepo, m.notificationRepo, m.autoLogin)
	return svc, m
}

func paidSession(id, email, name string) *stripeclient.CheckoutSession {
	return &stripeclient.CheckoutSession{
		ID:            id,
		PaymentStatus: stripeclient.PaymentStatusPaid,
		Status:        "complete",
		AmountTotal:   29900,
		Currency:      "eur",
		CustomerEmail: email,
		CustomerName:  name,
		Created:       time.Now().Add(-time.Hour),
	}
}

func TestFallbackService_Recover_ExistingTokenShortCircuits(t *testing.T) {
	svc, m := newFallbackService()
	user := &model.User{ID: uuid.New(), Email: "ana@example.com"}
	expiresAt := time.Now().Add(10 * time.Minute)

	m.autoLogin.On("Peek", mock.Anything, "cs_1").
		Return(&PeekResult{Token: "tok-live", ExpiresAt: expiresAt, User: user}, nil)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.NoError(t, err)
	assert.Equal(t, TokenSourceExisting, result.Source)
	assert.Equal(t, "tok-live", result.Token)
	// The webhook did its job; no Stripe call and no new token.
	m.stripe.AssertNotCalled(t, "GetCheckoutSession", mock.Anything, mock.Anything)
	m.autoLogin.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackService_Recover_UnpaidSessionRefused(t *testing.T) {
	svc, m := newFallbackService()
	m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
	sess := paidSession("cs_1", "ana@example.com", "Ana")
	sess.PaymentStatus = "unpaid"
	m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").Return(sess, nil)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.ErrorIs(t, err, apperrors.ErrSessionUnpaid)
	assert.Nil(t, result)
	m.autoLogin.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackService_Recover_MissingMetadataEscalates(t *testing.T) {
	svc, m := newFallbackService()
	m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
	m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", "ana@example.com", ""), nil)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.ErrorIs(t, err, apperrors.ErrMissingMetadata)
	assert.Nil(t, result)

	var esc *EscalationError
	assert.True(t, errors.As(err, &esc))
	assert.Equal(t, "cs_1", esc.Support.SessionID)
	assert.Equal(t, "ana@example.com", esc.Support.Email)
}

func TestFallbackService_Recover_MissingUserEscalatesInsteadOfCreating(t *testing.T) {
	svc, m := newFallbackService()
	m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
	m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", "ghost@example.com", "Ghost"), nil)
	m.userRepo.On("FindByEmail", mock.Anything, "ghost@example.com").
		Return(nil, gorm.ErrRecordNotFound)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.ErrorIs(t, err, apperrors.ErrUserMissing)
	assert.Nil(t, result)
	m.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.userRepo.AssertNotCalled(t, "FindByEmailOrCreate", mock.Anything, mock.Anything)
	m.autoLogin.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackService_Recover_IssuesFallbackToken(t *testing.T) {
	svc, m := newFallbackService()
	user := &model.User{ID: uuid.New(), Email: "ana@example.com"}
	templateID := uuid.New()
	expiresAt := time.Now().Add(15 * time.Minute)

	m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
	m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", "ana@example.com", "Ana"), nil)
	m.userRepo.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
	m.orderRepo.On("FindByStripeSessionID", mock.Anything, "cs_1").Return(nil, gorm.ErrRecordNotFound)
	m.templateRepo.On("FindBySlug", mock.Anything, model.DefaultTemplateSlug).
		Return(&model.Template{ID: templateID, Slug: model.DefaultTemplateSlug}, nil)
	m.orderRepo.On("Create", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.CreatedViaFallback &&
			o.StripeSessionID != nil && *o.StripeSessionID == "cs_1" &&
			o.UserID != nil && *o.UserID == user.ID
	})).Return(nil)
	m.autoLogin.On("Issue", mock.Anything, user, "cs_1", true).
		Return(&model.AutoLoginToken{Token: "tok-fb", ExpiresAt: expiresAt}, nil)
	m.notificationRepo.On("Create", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
		return n.UserID == user.ID && n.Type == model.NotificationAccessRecovered
	})).Return(nil)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.NoError(t, err)
	assert.Equal(t, TokenSourceFallback, result.Source)
	assert.Equal(t, "tok-fb", result.Token)
	m.orderRepo.AssertExpectations(t)
	m.notificationRepo.AssertExpectations(t)
}

func TestFallbackService_Recover_OrderFailureDoesNotBlockLogin(t *testing.T) {
	svc, m := newFallbackService()
	user := &model.User{ID: uuid.New(), Email: "ana@example.com"}

	m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
	m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
		Return(paidSession("cs_1", "ana@example.com", "Ana"), nil)
	m.userRepo.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)
	m.orderRepo.On("FindByStripeSessionID", mock.Anything, "cs_1").
		Return(nil, errors.New("db down"))
	m.autoLogin.On("Issue", mock.Anything, user, "cs_1", true).
		Return(&model.AutoLoginToken{Token: "tok-fb"}, nil)
	m.notificationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.Recover(context.Background(), "cs_1")

	assert.NoError(t, err)
	assert.Equal(t, TokenSourceFallback, result.Source)
}

func TestFallbackService_Check(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *fallbackMocks)
		want  FallbackCheck
	}{
		{
			name: "token already exists",
			setup: func(m *fallbackMocks) {
				m.autoLogin.On("Peek", mock.Anything, "cs_1").
					Return(&PeekResult{Token: "tok"}, nil)
			},
			want: FallbackCheck{TokenExists: true, Feasible: true},
		},
		{
			name: "paid session with known user is feasible",
			setup: func(m *fallbackMocks) {
				m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
				m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
					Return(paidSession("cs_1", "ana@example.com", "Ana"), nil)
				m.userRepo.On("FindByEmail", mock.Anything, "ana@example.com").
					Return(&model.User{ID: uuid.New()}, nil)
			},
			want: FallbackCheck{SessionPaid: true, UserExists: true, Feasible: true},
		},
		{
			name: "unpaid session is not feasible",
			setup: func(m *fallbackMocks) {
				m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
				sess := paidSession("cs_1", "ana@example.com", "Ana")
				sess.PaymentStatus = "unpaid"
				m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").Return(sess, nil)
				m.userRepo.On("FindByEmail", mock.Anything, "ana@example.com").
					Return(&model.User{ID: uuid.New()}, nil)
			},
			want: FallbackCheck{UserExists: true},
		},
		{
			name: "paid session without user is not feasible",
			setup: func(m *fallbackMocks) {
				m.autoLogin.On("Peek", mock.Anything, "cs_1").Return(nil, apperrors.ErrTokenNotFound)
				m.stripe.On("GetCheckoutSession", mock.Anything, "cs_1").
					Return(paidSession("cs_1", "ghost@example.com", "Ghost"), nil)
				m.userRepo.On("FindByEmail", mock.Anything, "ghost@example.com").
					Return(nil, gorm.ErrRecordNotFound)
			},
			want: FallbackCheck{SessionPaid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newFallbackService()
			tt.setup(m)

			check, err := svc.Check(context.Background(), "cs_1")

			assert.NoError(t, err)
			assert.Equal(t, tt.want, *check)
		})
	}
}
