// Package jwttoken issues and validates the HS256 bearer tokens API clients
// present to the verification endpoints.
package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"verity/internal/platform/middleware"
	dErrors "verity/pkg/domain-errors"
)

// Claims are the registered claims plus the calling client's identifier.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Service signs and validates access tokens.
type Service struct {
	signingKey []byte
	tokenTTL   time.Duration
}

// NewService creates a token service. TTL <= 0 defaults to one hour.
func NewService(signingKey string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{signingKey: []byte(signingKey), tokenTTL: tokenTTL}
}

// GenerateToken issues a token for an API client. Used by provisioning
// tooling; the server itself only validates.
func (s *Service) GenerateToken(clientID string) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token. Satisfies
// middleware.JWTValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	clientID := claims.ClientID
	if clientID == "" {
		clientID = claims.Subject
	}
	return &middleware.JWTClaims{ClientID: clientID}, nil
}
