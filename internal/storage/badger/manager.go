package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
)

// Manager wires the Badger connection to the storage interfaces
type Manager struct {
	db         *BadgerDB
	runLedger  interfaces.RunLedgerStorage
	credential interfaces.CredentialStorage
	kv         interfaces.KeyValueStorage
	logger     arbor.ILogger
}

// NewManager opens the database and constructs all storage implementations
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize badger database: %w", err)
	}

	return &Manager{
		db:         db,
		runLedger:  NewRunLedgerStorage(db, logger),
		credential: NewCredentialStorage(db, logger),
		kv:         NewKVStorage(db, logger),
		logger:     logger,
	}, nil
}

// RunLedgerStorage returns the run ledger storage implementation
func (m *Manager) RunLedgerStorage() interfaces.RunLedgerStorage {
	return m.runLedger
}

// CredentialStorage returns the credential storage implementation
func (m *Manager) CredentialStorage() interfaces.CredentialStorage {
	return m.credential
}

// KeyValueStorage returns the key/value storage implementation
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database connection
func (m *Manager) Close() error {
	if m.db != nil {
		m.logger.Debug().Msg("Closing badger database")
		return m.db.Close()
	}
	return nil
}
