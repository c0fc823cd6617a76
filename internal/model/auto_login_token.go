package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoLoginTokenTTL is how long a freshly issued token stays consumable.
const AutoLoginTokenTTL = 15 * time.Minute

// AutoLoginToken is a single-use credential binding a Stripe checkout session
// to a user so the client can establish a session without a password step.
// Consumed and expired tokens are never deleted; they stay as an audit trail.
type AutoLoginToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Token     string    `json:"token" gorm:"uniqueIndex;size:64;not null"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index"`
	Email     string    `json:"email" gorm:"size:255;not null"`
	SessionID string    `json:"session_id" gorm:"size:255;not null;index"`

	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	Used      bool       `json:"used" gorm:"default:false;index"`
	UsedAt    *time.Time `json:"used_at,omitempty"`

	// Provenance for later audit of webhook reliability.
	CreatedViaFallback    bool `json:"created_via_fallback" gorm:"default:false"`
	OriginalWebhookMissed bool `json:"original_webhook_missed" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (t *AutoLoginToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Usable reports whether the token can still be consumed at the given time.
func (t *AutoLoginToken) Usable(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}
