// Package auth verifies caller identity tokens issued by the external
// identity provider. Tokens are Ed25519-signed JWTs whose subject is the
// caller's user ID; the backend only needs the provider's public key.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenVerifier validates identity tokens and extracts the caller identity.
type TokenVerifier struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey // only set for ephemeral dev pairs and tests
	logger     *zap.Logger
}

// NewTokenVerifier creates a TokenVerifier from a PEM public key file.
// If the path is empty, an ephemeral key pair is generated so that tokens can
// be issued locally; this is not suitable for production.
func NewTokenVerifier(publicKeyPath string, logger *zap.Logger) (*TokenVerifier, error) {
	if publicKeyPath == "" {
		logger.Warn("no identity provider public key configured, generating ephemeral key pair (not for production)")
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key pair: %w", err)
		}
		return &TokenVerifier{publicKey: pub, privateKey: priv, logger: logger}, nil
	}

	pemBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not Ed25519")
	}

	return &TokenVerifier{publicKey: pub, logger: logger}, nil
}

// VerifyToken checks the token signature and expiry and returns the caller's
// user ID.
func (v *TokenVerifier) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}

// IssueToken signs a token for the given user ID. It requires the private key
// half, so it only works with ephemeral pairs; production tokens come from
// the identity provider.
func (v *TokenVerifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	if v.privateKey == nil {
		return "", fmt.Errorf("no private key available for issuing tokens")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(v.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
