// Package auth issues and validates the bearer tokens the IDE frontend
// presents to the bridge.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the JWT claims for a bridge session.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// TokenConfig holds signing material and policy for bridge tokens.
type TokenConfig struct {
	Issuer       string
	TTL          time.Duration
	SigningKey   ed25519.PrivateKey
	VerifyingKey ed25519.PublicKey
}

// NewTokenConfig generates a fresh EdDSA keypair. The bridge is local
// and short-lived, so keys live only for the process.
func NewTokenConfig(issuer string, ttl time.Duration) (*TokenConfig, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("auth: generate key: %w", err)
	}
	return &TokenConfig{
		Issuer:       issuer,
		TTL:          ttl,
		SigningKey:   priv,
		VerifyingKey: pub,
	}, nil
}

// GenerateToken creates a token for the given frontend client ID.
func GenerateToken(clientID string, config *TokenConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.Issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(config.SigningKey)
}

// ValidateToken verifies a token and returns its claims.
func ValidateToken(tokenString string, config *TokenConfig) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}
		return config.VerifyingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
