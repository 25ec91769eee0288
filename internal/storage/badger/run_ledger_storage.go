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

// RunLedgerStorage implements the RunLedgerStorage interface for Badger
type RunLedgerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunLedgerStorage creates a new RunLedgerStorage instance
func NewRunLedgerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunLedgerStorage {
	return &RunLedgerStorage{
		db:     db,
		logger: logger,
	}
}

// GetRecord loads the run record for an account. A missing record yields an
// empty record so callers never special-case first runs.
func (s *RunLedgerStorage) GetRecord(ctx context.Context, accountID string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.Store().Get(recordKey(accountID), &record)
	if err == badgerhold.ErrNotFound {
		return &models.RunRecord{
			AccountID: accountID,
			Version:   models.RunRecordVersion,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return &record, nil
}

// SaveRecord upserts the run record.
func (s *RunLedgerStorage) SaveRecord(ctx context.Context, record *models.RunRecord) error {
	if record.AccountID == "" {
		return fmt.Errorf("run record account id is required")
	}
	record.Version = models.RunRecordVersion
	record.UpdatedAt = time.Now().Unix()

	if err := s.db.Store().Upsert(recordKey(record.AccountID), record); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// Reset clears the recorded dates for the given action kinds so the next
// scheduled run is not blocked by already_done.
func (s *RunLedgerStorage) Reset(ctx context.Context, accountID string, kinds []models.ActionKind) error {
	if len(kinds) == 0 {
		return nil
	}

	record, err := s.GetRecord(ctx, accountID)
	if err != nil {
		return err
	}

	for _, kind := range kinds {
		record.Clear(kind)
	}

	if err := s.SaveRecord(ctx, record); err != nil {
		return err
	}

	s.logger.Info().
		Str("account_id", accountID).
		Int("cleared", len(kinds)).
		Msg("Run ledger dates reset")
	return nil
}

func recordKey(accountID string) string {
	return "run_record:" + accountID
}
