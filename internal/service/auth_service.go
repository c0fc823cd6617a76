package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xokuso/peluquerias-app-sub003/internal/auth"
	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
)

const (
	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

// LoginResult carries the session credential and redirect target.
type LoginResult struct {
	SessionToken string
	ExpiresAt    time.Time
	User         *model.User
	RedirectURL  string
}

// AuthService handles password authentication with brute-force lockout.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		now:        time.Now,
	}
}

// Login authenticates a user. Five consecutive failures lock the account for
// fifteen minutes; a success resets the counter.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, apperrors.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		user.LoginAttempts++
		if user.LoginAttempts >= maxLoginAttempts {
			lockUntil := now.Add(lockDuration)
			user.LockUntil = &lockUntil
			user.LoginAttempts = 0
		}
		if updateErr := s.userRepo.Update(ctx, user); updateErr != nil {
			log.Printf("login: record failed attempt for %s: %v", email, updateErr)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		log.Printf("login: reset lockout state for %s: %v", email, err)
	}

	sessionToken, expiresAt, err := s.jwtService.GenerateSessionToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	return &LoginResult{
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		User:         user,
		RedirectURL:  redirectFor(user),
	}, nil
}
