package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/irfndi/kmarket-data-go/internal/vault"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveCredentialsDecryptsRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	v, err := vault.New("test-master-secret")
	require.NoError(t, err)
	repo := NewUserApiKeyRepository(mock, v)

	encKey, encSecret, err := v.EncryptCredentials("app-key", "app-secret")
	require.NoError(t, err)

	userID := uuid.New()
	account := "50123456-01"
	mock.ExpectQuery(`(?s)SELECT .+ FROM user_api_keys`).
		WithArgs(userID, "kis", true).
		WillReturnRows(mock.NewRows([]string{"encrypted_api_key", "encrypted_api_secret", "account_number"}).
			AddRow(encKey, encSecret, &account))

	creds, err := repo.GetActiveCredentials(context.Background(), userID, "kis", true)
	require.NoError(t, err)
	assert.Equal(t, "app-key", creds.APIKey)
	assert.Equal(t, "app-secret", creds.APISecret)
	assert.Equal(t, "50123456-01", creds.AccountNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCredentialsMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	v, err := vault.New("test-master-secret")
	require.NoError(t, err)
	repo := NewUserApiKeyRepository(mock, v)

	userID := uuid.New()
	mock.ExpectQuery(`(?s)SELECT .+ FROM user_api_keys`).
		WithArgs(userID, "upbit", false).
		WillReturnError(pgx.ErrNoRows)

	creds, err := repo.GetActiveCredentials(context.Background(), userID, "upbit", false)
	require.Nil(t, creds)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCredentialsCorruptCiphertextFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	v, err := vault.New("test-master-secret")
	require.NoError(t, err)
	repo := NewUserApiKeyRepository(mock, v)

	userID := uuid.New()
	mock.ExpectQuery(`(?s)SELECT .+ FROM user_api_keys`).
		WithArgs(userID, "kis", false).
		WillReturnRows(mock.NewRows([]string{"encrypted_api_key", "encrypted_api_secret", "account_number"}).
			AddRow("garbage-token", "garbage-token", (*string)(nil)))

	// Corrupt key material must surface as an error, never as empty
	// credentials.
	creds, err := repo.GetActiveCredentials(context.Background(), userID, "kis", false)
	assert.Nil(t, creds)
	assert.ErrorIs(t, err, vault.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
