// Package webrouter_exchange seals small JSON payloads into opaque tokens that can be
// handed to clients, typically as cookie values, and verified when they come back.
// Tokens are self-contained: no server-side session storage is needed.
//
// Tokens are XChaCha20-Poly1305 ciphertexts with a random 24-byte nonce, encoded with
// unpadded URL-safe base64 so they fit in a cookie value without quoting. Tampered,
// truncated or foreign tokens fail authentication and are rejected.
//
// Usage Example:
//
//	sealer, err := webrouter_exchange.NewSealer(key) // key is 32 bytes
//	token, err := sealer.Seal(AuthPayload{AccountId: 123, Expiration: time.Now().Add(time.Hour)})
//
//	var payload AuthPayload
//	if err := sealer.Open(token, &payload); err != nil {
//	    // reject
//	}
package webrouter_exchange

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required secret length in bytes.
const KeySize = chacha20poly1305.KeySize

// ErrInvalidToken is returned by Open for anything that does not authenticate.
var ErrInvalidToken = errors.New("invalid token")

// AuthPayload is a ready-made session payload: who the client is and until when the
// token is good.
type AuthPayload struct {
	AccountId  int64     `json:"account_id"`
	Expiration time.Time `json:"expiration"`
}

// Expired reports whether the payload is past its expiration at now.
func (p AuthPayload) Expired(now time.Time) bool {
	return !p.Expiration.After(now)
}

// Sealer encrypts and authenticates payloads with a fixed secret. It is safe for
// concurrent use.
type Sealer struct {
	key []byte
}

// NewSealer creates a Sealer from a KeySize-byte secret.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Sealer{key: k}, nil
}

// KeyFromEnvironment reads the secret from the SIGNING_KEY environment variable.
func KeyFromEnvironment() ([]byte, bool) {
	key, exists := os.LookupEnv("SIGNING_KEY")
	if !exists || key == "" {
		return nil, false
	}
	return []byte(key), true
}

// Seal marshals data to JSON and encrypts it into a token.
func (s *Sealer) Seal(data any) (string, error) {
	contents, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(contents)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, contents, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open authenticates and decrypts token, then unmarshals the payload into dst.
func (s *Sealer) Open(token string, dst any) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrInvalidToken
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return ErrInvalidToken
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	contents, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrInvalidToken
	}
	if err := json.Unmarshal(contents, dst); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
