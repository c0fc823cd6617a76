package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the provisioning status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// SetupStep marks the client's progress through the post-purchase wizard.
type SetupStep string

const (
	SetupStepDomainSelection SetupStep = "DOMAIN_SELECTION"
	SetupStepBusinessInfo    SetupStep = "BUSINESS_INFO"
	SetupStepDesignReview    SetupStep = "DESIGN_REVIEW"
	SetupStepContent         SetupStep = "CONTENT"
	SetupStepLaunch          SetupStep = "LAUNCH"
	SetupStepCompleted       SetupStep = "COMPLETED"
)

// Order is one checkout's provisioning record. At most one order exists per
// Stripe session id and per payment intent id; both are enforced with unique
// indexes so webhook redelivery cannot duplicate records.
type Order struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	StripeSessionID *string   `json:"stripe_session_id,omitempty" gorm:"uniqueIndex;size:255"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty" gorm:"uniqueIndex;size:255"`

	Status    OrderStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	SetupStep SetupStep   `json:"setup_step" gorm:"type:varchar(30);not null;default:'DOMAIN_SELECTION'"`

	Total    decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null;default:0"`
	Currency string          `json:"currency" gorm:"size:3;not null;default:'eur'"`

	// UserID is nullable until the paying user has been resolved.
	UserID     *uuid.UUID `json:"user_id,omitempty" gorm:"type:char(36);index"`
	TemplateID uuid.UUID  `json:"template_id" gorm:"type:char(36);not null;index"`

	// CreatedViaFallback tags orders synthesized outside the webhook path.
	CreatedViaFallback bool `json:"created_via_fallback" gorm:"default:false"`

	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User     *User    `json:"-" gorm:"foreignKey:UserID"`
	Template Template `json:"-" gorm:"foreignKey:TemplateID"`
}

// BeforeCreate sets UUID before creating the record.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
