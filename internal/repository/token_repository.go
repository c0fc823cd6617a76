package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

// TokenRepository defines auto-login token persistence operations.
type TokenRepository interface {
	Create(ctx context.Context, token *model.AutoLoginToken) error
	// FindUsableBySessionID returns the newest unused, unexpired token for a
	// checkout session without consuming it (peek semantics).
	FindUsableBySessionID(ctx context.Context, sessionID string, now time.Time) (*model.AutoLoginToken, error)
	// FindLatestBySessionID returns the newest token regardless of state,
	// for diagnostics when no usable token exists.
	FindLatestBySessionID(ctx context.Context, sessionID string) (*model.AutoLoginToken, error)
	// Consume atomically marks the token used. The used=false guard runs
	// inside the UPDATE itself, so two concurrent consumers can never both
	// win; the loser gets apperrors.ErrInvalidToken.
	Consume(ctx context.Context, token, sessionID string, now time.Time) (*model.AutoLoginToken, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.AutoLoginToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindUsableBySessionID(ctx context.Context, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	var token model.AutoLoginToken
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND used = ? AND expires_at > ?", sessionID, false, now).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) FindLatestBySessionID(ctx context.Context, sessionID string) (*model.AutoLoginToken, error) {
	var token model.AutoLoginToken
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) Consume(ctx context.Context, token, sessionID string, now time.Time) (*model.AutoLoginToken, error) {
	res := r.db.WithContext(ctx).Model(&model.AutoLoginToken{}).
		Where("token = ? AND session_id = ? AND used = ? AND expires_at > ?", token, sessionID, false, now).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInvalidToken
	}

	var consumed model.AutoLoginToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&consumed).Error; err != nil {
		return nil, err
	}
	return &consumed, nil
}
