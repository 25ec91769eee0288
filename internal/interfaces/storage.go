package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/seedkeeper/internal/models"
)

// ErrKeyNotFound is returned when a key is not found in the key/value store
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair represents a single key/value pair with metadata
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations for generic key/value storage
type KeyValueStorage interface {
	// Get retrieves a value by key, returns error if not found
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair with optional description
	Set(ctx context.Context, key string, value string, description string) error

	// Delete removes a key/value pair, returns error if not found
	Delete(ctx context.Context, key string) error

	// GetAll returns all key/value pairs as a map
	GetAll(ctx context.Context) (map[string]string, error)
}

// RunLedgerStorage persists the per-action last-success dates. A record is a
// read-modify-write unit: the orchestrator loads it once per run and saves it
// back only when at least one action succeeded.
type RunLedgerStorage interface {
	// GetRecord loads the run record for an account. A missing record yields
	// an empty record, not an error.
	GetRecord(ctx context.Context, accountID string) (*models.RunRecord, error)

	// SaveRecord upserts the run record.
	SaveRecord(ctx context.Context, record *models.RunRecord) error

	// Reset clears the recorded dates for the given action kinds.
	Reset(ctx context.Context, accountID string, kinds []models.ActionKind) error
}

// CredentialStorage persists rotated tokens so a restart does not fall back
// to a stale configured session token.
type CredentialStorage interface {
	// GetCredentials loads stored credentials for an account; returns nil
	// without error when none are stored yet.
	GetCredentials(ctx context.Context, accountID string) (*models.Credentials, error)

	// SaveCredentials upserts credentials.
	SaveCredentials(ctx context.Context, creds *models.Credentials) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	RunLedgerStorage() RunLedgerStorage
	CredentialStorage() CredentialStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
