// Package vault encrypts and decrypts exchange API credentials at rest.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidToken is returned when a ciphertext token is malformed or
// fails authentication. Callers must surface it, never coerce it into
// an empty-string success.
var ErrInvalidToken = errors.New("invalid ciphertext token")

// Vault performs symmetric authenticated encryption of credential
// strings using a key derived from the configured master secret.
type Vault struct {
	key []byte
}

// New creates a vault from the master secret. A secret that decodes as
// exactly 32 base64url bytes is used directly as the key; anything else
// falls back to a SHA-256 derivation of the raw secret.
func New(masterSecret string) (*Vault, error) {
	if masterSecret == "" {
		return nil, errors.New("master secret must not be empty")
	}

	key := deriveKey(masterSecret)
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("derived key has unexpected size %d", len(key))
	}

	return &Vault{key: key}, nil
}

func deriveKey(masterSecret string) []byte {
	if decoded, err := base64.URLEncoding.DecodeString(masterSecret); err == nil && len(decoded) == chacha20poly1305.KeySize {
		return decoded
	}
	sum := sha256.Sum256([]byte(masterSecret))
	return sum[:]
}

// Encrypt seals a plaintext string into a base64url token of
// nonce||ciphertext. Empty input short-circuits to an empty token.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Empty input short-circuits
// to an empty plaintext; a malformed or tampered token yields
// ErrInvalidToken.
func (v *Vault) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	aead, err := chacha20poly1305.New(v.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return "", ErrInvalidToken
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}

	return string(plaintext), nil
}

// EncryptCredentials seals an API key and secret pair.
func (v *Vault) EncryptCredentials(apiKey, apiSecret string) (string, string, error) {
	encryptedKey, err := v.Encrypt(apiKey)
	if err != nil {
		return "", "", err
	}
	encryptedSecret, err := v.Encrypt(apiSecret)
	if err != nil {
		return "", "", err
	}
	return encryptedKey, encryptedSecret, nil
}

// DecryptCredentials opens an encrypted API key and secret pair.
func (v *Vault) DecryptCredentials(encryptedKey, encryptedSecret string) (string, string, error) {
	apiKey, err := v.Decrypt(encryptedKey)
	if err != nil {
		return "", "", err
	}
	apiSecret, err := v.Decrypt(encryptedSecret)
	if err != nil {
		return "", "", err
	}
	return apiKey, apiSecret, nil
}
