package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// SessionClaims identify a logged-in clinic handler.
type SessionClaims struct {
	HandlerID   uuid.UUID `json:"handler_id"`
	ClinicID    uuid.UUID `json:"clinic_id"`
	HandlerName string    `json:"handler_name"`
	IsAdmin     bool      `json:"is_admin"`
	jwt.RegisteredClaims
}

// SessionService mints and validates handler session tokens.
type SessionService interface {
	Generate(handlerID, clinicID uuid.UUID, name string, isAdmin bool) (string, time.Time, error)
	Validate(token string) (*SessionClaims, error)
}

type jwtSessionService struct {
	secret []byte
	expiry time.Duration
}

func NewSessionService(secret string, expiry time.Duration) SessionService {
	return &jwtSessionService{secret: []byte(secret), expiry: expiry}
}

func (s *jwtSessionService) Generate(handlerID, clinicID uuid.UUID, name string, isAdmin bool) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)
	claims := SessionClaims{
		HandlerID:   handlerID,
		ClinicID:    clinicID,
		HandlerName: name,
		IsAdmin:     isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   handlerID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtSessionService) Validate(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
