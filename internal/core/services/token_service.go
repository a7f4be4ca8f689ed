package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"callview/internal/core/domain"
)

// TokenService mints and validates the call-join tokens the state feed
// presents when dialing the calling service.
type TokenService interface {
	GenerateJoinToken(userID domain.UserID, callID domain.CallID, displayName string) (string, error)
	ValidateJoinToken(tokenString string) (*JoinClaims, error)
}

type JoinClaims struct {
	UserID      domain.UserID `json:"user_id"`
	CallID      domain.CallID `json:"call_id"`
	DisplayName string        `json:"display_name"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) TokenService {
	return &tokenService{secret: []byte(secret), ttl: ttl}
}

func (s *tokenService) GenerateJoinToken(userID domain.UserID, callID domain.CallID, displayName string) (string, error) {
	claims := &JoinClaims{
		UserID:      userID,
		CallID:      callID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) ValidateJoinToken(tokenString string) (*JoinClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JoinClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JoinClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, domain.ErrInvalidToken
}
