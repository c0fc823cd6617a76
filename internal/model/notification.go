package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType classifies user-facing notifications.
type NotificationType string

const (
	NotificationAccessRecovered NotificationType = "ACCESS_RECOVERED"
	NotificationEmailFailed     NotificationType = "EMAIL_FAILED"
)

// Notification is a message shown in the client portal. Writes are always
// best-effort; a failed insert never fails the surrounding operation.
type Notification struct {
	ID      uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	UserID  uuid.UUID        `json:"user_id" gorm:"type:char(36);not null;index"`
	Type    NotificationType `json:"type" gorm:"type:varchar(30);not null;index"`
	Title   string           `json:"title" gorm:"size:255;not null"`
	Message string           `json:"message" gorm:"type:text"`
	Read    bool             `json:"read" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
