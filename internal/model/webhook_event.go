package model

import (
	"time"
)

// WebhookEvent stores provider webhook deliveries with deduplication metadata.
// The (provider, provider_event_id) unique index is the durable idempotency
// guard: reprocessing the same delivery becomes a no-op insert conflict.
type WebhookEvent struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Provider        string     `json:"provider" gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string     `json:"provider_event_id" gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string     `json:"event_type" gorm:"type:varchar(100);not null;index"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
