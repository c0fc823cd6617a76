package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole distinguishes back-office admins from paying clients.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleClient UserRole = "CLIENT"
)

// User represents an account in the system. Users are created by signup,
// by the webhook after a successful payment, or by the sync job.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255"` // empty for OAuth accounts
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'CLIENT';index"`
	IsActive     bool      `json:"is_active" gorm:"default:true;index"`

	HasCompletedOnboarding bool       `json:"has_completed_onboarding" gorm:"default:false"`
	LastLogin              *time.Time `json:"last_login,omitempty"`

	// Brute-force lockout state, mutated only by the login path.
	LoginAttempts int        `json:"-" gorm:"default:0"`
	LockUntil     *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsLocked reports whether the account is currently locked out.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
