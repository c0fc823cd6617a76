package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmailOrCreate(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindFirstByRole(ctx context.Context, role model.UserRole) (*model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	args := m.Called(ctx, id, total)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of repository.PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Payment), args.Error(1)
}

// MockTemplateRepository is a mock implementation of repository.TemplateRepository.
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, template *model.Template) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) FindBySlug(ctx context.Context, slug string) (*model.Template, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) ListActive(ctx context.Context) ([]model.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Template), args.Error(1)
}

// MockTokenRepository is a mock implementation of repository.TokenRepository.
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Create(ctx context.Context, token *model.AutoLoginToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) FindUsableBySessionID(ctx context.Context, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	args := m.Called(ctx, sessionID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoLoginToken), args.Error(1)
}

func (m *MockTokenRepository) FindLatestBySessionID(ctx context.Context, sessionID string) (*model.AutoLoginToken, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoLoginToken), args.Error(1)
}

func (m *MockTokenRepository) Consume(ctx context.Context, token, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	args := m.Called(ctx, token, sessionID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoLoginToken), args.Error(1)
}

// MockNotificationRepository is a mock implementation of repository.NotificationRepository.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

// MockWebhookEventRepository is a mock implementation of repository.WebhookEventRepository.
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) InsertIfNew(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID string, processingError string) error {
	args := m.Called(ctx, provider, eventID, processingError)
	return args.Error(0)
}

// MockStripeClient is a mock implementation of stripeclient.Client.
type MockStripeClient struct {
	mock.Mock
}

func (m *MockStripeClient) VerifyWebhook(payload []byte, sigHeader string) (*stripeclient.Event, error) {
	args := m.Called(payload, sigHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.Event), args.Error(1)
}

func (m *MockStripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripeclient.CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.CheckoutSession), args.Error(1)
}

func (m *MockStripeClient) ListCompletedCheckoutSessions(ctx context.Context, since time.Time, limit int64) ([]*stripeclient.CheckoutSession, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*stripeclient.CheckoutSession), args.Error(1)
}

// MockAutoLoginService is a mock implementation of AutoLoginService.
type MockAutoLoginService struct {
	mock.Mock
}

func (m *MockAutoLoginService) Issue(ctx context.Context, user *model.User, sessionID string, viaFallback bool) (*model.AutoLoginToken, error) {
	args := m.Called(ctx, user, sessionID, viaFallback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AutoLoginToken), args.Error(1)
}

func (m *MockAutoLoginService) Peek(ctx context.Context, sessionID string) (*PeekResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PeekResult), args.Error(1)
}

func (m *MockAutoLoginService) Consume(ctx context.Context, token, sessionID string) (*ConsumeResult, error) {
	args := m.Called(ctx, token, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConsumeResult), args.Error(1)
}

// fakeWebhookEventRepo is an in-memory WebhookEventRepository with the same
// insert-or-reclaim semantics as the SQL implementation: a delivery that
// recorded a processing failure is handed back to the next redelivery.
type fakeWebhookEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.WebhookEvent
}

var _ repository.WebhookEventRepository = (*fakeWebhookEventRepo)(nil)

func newFakeWebhookEventRepo() *fakeWebhookEventRepo {
	return &fakeWebhookEventRepo{events: make(map[string]*model.WebhookEvent)}
}

func (f *fakeWebhookEventRepo) key(provider, eventID string) string {
	return provider + "/" + eventID
}

func (f *fakeWebhookEventRepo) InsertIfNew(_ context.Context, event *model.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.events[f.key(event.Provider, event.ProviderEventID)]
	if !ok {
		cp := *event
		f.events[f.key(event.Provider, event.ProviderEventID)] = &cp
		return true, nil
	}
	if existing.ProcessingError != "" {
		existing.ProcessedAt = nil
		existing.ProcessingError = ""
		return true, nil
	}
	return false, nil
}

func (f *fakeWebhookEventRepo) MarkProcessed(_ context.Context, provider, eventID string, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[f.key(provider, eventID)]; ok {
		now := time.Now()
		event.ProcessedAt = &now
		event.ProcessingError = processingError
	}
	return nil
}

// fakeTokenRepo is an in-memory TokenRepository whose Consume has the same
// compare-and-swap semantics as the SQL conditional UPDATE. It backs the
// concurrency test for the single-use invariant.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.AutoLoginToken
}

var _ repository.TokenRepository = (*fakeTokenRepo)(nil)

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.AutoLoginToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *model.AutoLoginToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeTokenRepo) FindUsableBySessionID(_ context.Context, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.SessionID == sessionID && t.Usable(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTokenRepo) FindLatestBySessionID(_ context.Context, sessionID string) (*model.AutoLoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.SessionID == sessionID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTokenRepo) Consume(_ context.Context, token, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok || t.SessionID != sessionID || !t.Usable(now) {
		return nil, apperrors.ErrInvalidToken
	}
	t.Used = true
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}
