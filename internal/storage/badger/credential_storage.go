package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CredentialStorage implements the CredentialStorage interface for Badger.
// It keeps rotated tokens across restarts; the configured session token is
// only the seed for a fresh database.
type CredentialStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCredentialStorage creates a new CredentialStorage instance
func NewCredentialStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CredentialStorage {
	return &CredentialStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CredentialStorage) GetCredentials(ctx context.Context, accountID string) (*models.Credentials, error) {
	var creds models.Credentials
	err := s.db.Store().Get(credentialKey(accountID), &creds)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &creds, nil
}

func (s *CredentialStorage) SaveCredentials(ctx context.Context, creds *models.Credentials) error {
	if creds.AccountID == "" {
		return fmt.Errorf("credentials account id is required")
	}
	creds.UpdatedAt = time.Now().Unix()

	if err := s.db.Store().Upsert(credentialKey(creds.AccountID), creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func credentialKey(accountID string) string {
	return "credentials:" + accountID
}
