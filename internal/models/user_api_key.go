package models

import (
	"time"

	"github.com/google/uuid"
)

// UserApiKey stores encrypted API credentials for an external exchange.
// Key and secret are ciphertext tokens produced by the credential vault;
// plaintext is never persisted or logged.
type UserApiKey struct {
	ID                 int64     `json:"id" db:"id"`
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
	ExchangeType       string    `json:"exchange_type" db:"exchange_type"`
	EncryptedAPIKey    string    `json:"-" db:"encrypted_api_key"`
	EncryptedAPISecret string    `json:"-" db:"encrypted_api_secret"`
	AccountNumber      *string   `json:"account_number,omitempty" db:"account_number"`
	IsDemo             bool      `json:"is_demo" db:"is_demo"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	Nickname           *string   `json:"nickname,omitempty" db:"nickname"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// APICredentials holds decrypted credentials handed to an authenticated
// price source for the duration of a collector run.
type APICredentials struct {
	APIKey        string
	APISecret     string
	AccountNumber string
}
