// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying play tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a play token stays valid (0 => no exp claim).
	tokenTTL time.Duration
)

var ErrNotInitialized = errors.New("auth keys not initialized")

// Init generates a fresh ed25519 key pair at runtime. Tokens issued before a
// restart stop verifying after it.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	tokenTTL = ttl
	return nil
}

// InitFromPath reads raw ed25519 private/public keys from file.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	if len(privateKeyData) != ed25519.PrivateKeySize {
		return fmt.Errorf("private key file %s: want %d bytes, got %d", privatePath, ed25519.PrivateKeySize, len(privateKeyData))
	}
	if len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("public key file %s: want %d bytes, got %d", publicPath, ed25519.PublicKeySize, len(publicKeyData))
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenTTL = ttl
	return nil
}

// Setup loads the key pair from disk when both paths are given, so tokens survive
// a restart, and falls back to a fresh runtime key pair otherwise.
func Setup(privatePath, publicPath string, ttl time.Duration) error {
	if privatePath != "" && publicPath != "" {
		return InitFromPath(privatePath, publicPath, ttl)
	}
	if privatePath != "" || publicPath != "" {
		return errors.New("both play token key paths must be set")
	}
	return Init(ttl)
}

// CreatePlayToken signs a JWT with "sub" = sessionID.
func CreatePlayToken(sessionID uuid.UUID) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	claims := jwt.MapClaims{
		"sub": sessionID.String(),
		"iat": time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticatePlayToken verifies a play token and returns the session it was issued for.
func AuthenticatePlayToken(tokenString string) (uuid.UUID, error) {
	if publicKey == nil {
		return uuid.Nil, ErrNotInitialized
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("missing sub in jwt")
	}
	sessionID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id in token: %w", err)
	}
	return sessionID, nil
}
