package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/irfndi/kmarket-data-go/internal/vault"
	"github.com/jackc/pgx/v5"
)

// ErrCredentialsNotFound is returned when a user has no active API key
// row for the requested exchange and mode.
var ErrCredentialsNotFound = errors.New("api credentials not found")

// UserApiKeyRepository reads stored exchange credentials. Key material
// stays encrypted in the table; decryption happens through the vault at
// the moment a collector needs it.
type UserApiKeyRepository struct {
	pool  DatabasePool
	vault *vault.Vault
}

// NewUserApiKeyRepository creates a new user API key repository.
func NewUserApiKeyRepository(pool DatabasePool, v *vault.Vault) *UserApiKeyRepository {
	return &UserApiKeyRepository{pool: pool, vault: v}
}

// GetActiveCredentials resolves and decrypts the active credentials for
// (user, exchange_type, is_demo). The plaintext is returned to the
// caller and must never be persisted or logged.
func (r *UserApiKeyRepository) GetActiveCredentials(ctx context.Context, userID uuid.UUID, exchangeType string, isDemo bool) (*models.APICredentials, error) {
	query := `
		SELECT encrypted_api_key, encrypted_api_secret, account_number
		FROM user_api_keys
		WHERE user_id = $1 AND exchange_type = $2 AND is_demo = $3 AND is_active = true
	`

	var encryptedKey, encryptedSecret string
	var accountNumber *string
	err := r.pool.QueryRow(ctx, query, userID, exchangeType, isDemo).Scan(
		&encryptedKey, &encryptedSecret, &accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s exchange %s", ErrCredentialsNotFound, userID, exchangeType)
		}
		return nil, fmt.Errorf("failed to get api credentials: %w", err)
	}

	apiKey, apiSecret, err := r.vault.DecryptCredentials(encryptedKey, encryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt api credentials: %w", err)
	}

	creds := &models.APICredentials{APIKey: apiKey, APISecret: apiSecret}
	if accountNumber != nil {
		creds.AccountNumber = *accountNumber
	}
	return creds, nil
}
