package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

// WebhookEventRepository defines webhook delivery audit persistence.
type WebhookEventRepository interface {
	// InsertIfNew records the delivery, reporting false when the same
	// (provider, event id) pair was already processed. This is the durable
	// idempotency check for redelivered events. A prior delivery that
	// recorded a processing failure is reclaimed and reported as new, so
	// the provider's redelivery gets to retry the work.
	InsertIfNew(ctx context.Context, event *model.WebhookEvent) (bool, error)
	// MarkProcessed records the processing outcome for the delivery.
	MarkProcessed(ctx context.Context, provider, eventID string, processingError string) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) InsertIfNew(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// The (provider, event id) pair exists. Reclaim it when the earlier
	// delivery failed; the processing_error guard runs inside the UPDATE so
	// concurrent redeliveries resolve to a single winner.
	claim := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ? AND processing_error <> ''",
			event.Provider, event.ProviderEventID).
		Updates(map[string]interface{}{"processed_at": nil, "processing_error": ""})
	if claim.Error != nil {
		return false, claim.Error
	}
	return claim.RowsAffected > 0, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, provider, eventID string, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Updates(map[string]interface{}{"processed_at": now, "processing_error": processingError}).Error
}
