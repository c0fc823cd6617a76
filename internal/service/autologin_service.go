package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/xokuso/peluquerias-app-sub003/internal/auth"
	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
)

const (
	// RedirectOnboarding is where freshly provisioned users land.
	RedirectOnboarding = "/onboarding"
	// RedirectDashboard is where returning users land.
	RedirectDashboard = "/dashboard"
)

// PeekResult is the outcome of a non-consuming token lookup.
type PeekResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// ConsumeResult is the outcome of a successful token consumption.
type ConsumeResult struct {
	SessionToken string
	ExpiresAt    time.Time
	User         *model.User
	RedirectURL  string
}

// AutoLoginService issues and redeems single-use auto-login tokens bound to
// Stripe checkout sessions.
type AutoLoginService interface {
	// Issue creates a fresh token for the session. viaFallback tags the
	// token's provenance for later audit.
	Issue(ctx context.Context, user *model.User, sessionID string, viaFallback bool) (*model.AutoLoginToken, error)

	// Peek looks up a usable token without consuming it. Absence is reported
	// through sentinel errors that distinguish "never created" (retry makes
	// sense) from "used" and "expired" (it does not).
	Peek(ctx context.Context, sessionID string) (*PeekResult, error)

	// Consume redeems the token/session pair for a signed session credential.
	// Exactly one concurrent caller can succeed for a given token.
	Consume(ctx context.Context, token, sessionID string) (*ConsumeResult, error)
}

type autoLoginService struct {
	tokenRepo  repository.TokenRepository
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	now        func() time.Time
}

// NewAutoLoginService creates a new auto-login service.
func NewAutoLoginService(
	tokenRepo repository.TokenRepository,
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
) AutoLoginService {
	return &autoLoginService{
		tokenRepo:  tokenRepo,
		userRepo:   userRepo,
		jwtService: jwtService,
		now:        time.Now,
	}
}

func (s *autoLoginService) Issue(ctx context.Context, user *model.User, sessionID string, viaFallback bool) (*model.AutoLoginToken, error) {
	raw, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	token := &model.AutoLoginToken{
		Token:                 raw,
		UserID:                user.ID,
		Email:                 user.Email,
		SessionID:             sessionID,
		ExpiresAt:             s.now().Add(model.AutoLoginTokenTTL),
		CreatedViaFallback:    viaFallback,
		OriginalWebhookMissed: viaFallback,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("create auto-login token: %w", err)
	}
	return token, nil
}

func (s *autoLoginService) Peek(ctx context.Context, sessionID string) (*PeekResult, error) {
	token, err := s.tokenRepo.FindUsableBySessionID(ctx, sessionID, s.now())
	if err == nil {
		user, userErr := s.userRepo.FindByID(ctx, token.UserID)
		if userErr != nil {
			return nil, fmt.Errorf("load token user: %w", userErr)
		}
		return &PeekResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("find usable token: %w", err)
	}

	// No usable token. Distinguish "webhook never fired" from "token burned".
	latest, latestErr := s.tokenRepo.FindLatestBySessionID(ctx, sessionID)
	if latestErr == gorm.ErrRecordNotFound {
		return nil, apperrors.ErrTokenNotFound
	}
	if latestErr != nil {
		return nil, fmt.Errorf("find latest token: %w", latestErr)
	}
	if latest.Used {
		return nil, apperrors.ErrTokenConsumed
	}
	return nil, apperrors.ErrTokenExpired
}

func (s *autoLoginService) Consume(ctx context.Context, token, sessionID string) (*ConsumeResult, error) {
	// A missing signing secret is a deployment fault; refuse before burning
	// the single-use token.
	if !s.jwtService.Ready() {
		return nil, apperrors.ErrSigningSecretMissing
	}

	consumed, err := s.tokenRepo.Consume(ctx, token, sessionID, s.now())
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, consumed.UserID)
	if err != nil {
		return nil, fmt.Errorf("load consumed token user: %w", err)
	}

	sessionToken, expiresAt, err := s.jwtService.GenerateSessionToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		log.Printf("auto-login: update last login for %s: %v", user.ID, err)
	}

	return &ConsumeResult{
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		User:         user,
		RedirectURL:  redirectFor(user),
	}, nil
}

// redirectFor picks the post-login landing page from onboarding state.
func redirectFor(user *model.User) string {
	if user.HasCompletedOnboarding {
		return RedirectDashboard
	}
	return RedirectOnboarding
}

// generateToken returns 32 bytes of hex-encoded entropy.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
