package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error)
	FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error)
	// UpdateTotal corrects the order amount to Stripe's authoritative value.
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByStripeSessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("total", total).Error
}
