package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "github.com/xokuso/peluquerias-app-sub003/internal/errors"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

// SessionTokenExpiry is the duration for which session tokens are valid.
const SessionTokenExpiry = 7 * 24 * time.Hour

// Claims represents the session JWT claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles session token generation and validation.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service with the given secret. An empty
// secret is allowed at construction; signing rejects it so a misconfigured
// deployment fails loudly instead of issuing weak credentials.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// Ready reports whether a signing secret is configured.
func (s *JWTService) Ready() bool {
	return len(s.secret) > 0
}

// GenerateSessionToken generates a signed 7-day session token for the user.
func (s *JWTService) GenerateSessionToken(userID uuid.UUID, email string, role model.UserRole) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, apperrors.ErrSigningSecretMissing
	}

	expiresAt := time.Now().Add(SessionTokenExpiry)
	claims := &Claims{
		UserID: userID.String(),
		Email:  email,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a session token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
