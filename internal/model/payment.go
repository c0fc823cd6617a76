package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is an append-only ledger entry tied to an order, recording what
// Stripe actually charged. Amounts here always mirror Stripe, never the
// catalog price.
type Payment struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	OrderID         uuid.UUID       `json:"order_id" gorm:"type:char(36);not null;index"`
	StripePaymentID string          `json:"stripe_payment_id" gorm:"size:255;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null;default:'eur'"`
	Method          string          `json:"method" gorm:"size:50;not null;default:'card'"`
	Status          string          `json:"status" gorm:"size:20;not null;default:'succeeded'"`
	CreatedAt       time.Time       `json:"created_at"`

	// Relations
	Order Order `json:"-" gorm:"foreignKey:OrderID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
