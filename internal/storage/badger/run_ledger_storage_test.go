package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
)

func testManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	mgr, err := NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir() + "/badger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestRunLedgerStorage_MissingRecordIsEmpty(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	record, err := mgr.RunLedgerStorage().GetRecord(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "123456", record.AccountID)
	assert.Equal(t, models.RunRecordVersion, record.Version)
	for _, kind := range models.ActionOrder {
		assert.False(t, record.DoneOn(kind, "2026-09-01"))
	}
}

func TestRunLedgerStorage_RoundTrip(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	record, err := mgr.RunLedgerStorage().GetRecord(ctx, "123456")
	require.NoError(t, err)
	record.MarkDone(models.ActionDonate, "2026-09-01")
	record.MarkDone(models.ActionBuyVIP, "2026-08-30")

	require.NoError(t, mgr.RunLedgerStorage().SaveRecord(ctx, record))

	loaded, err := mgr.RunLedgerStorage().GetRecord(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, loaded.DoneOn(models.ActionDonate, "2026-09-01"))
	assert.True(t, loaded.DoneOn(models.ActionBuyVIP, "2026-08-30"))
	assert.False(t, loaded.DoneOn(models.ActionBuyCredit, "2026-09-01"))
	assert.NotZero(t, loaded.UpdatedAt)
}

func TestRunLedgerStorage_SaveRequiresAccountID(t *testing.T) {
	mgr := testManager(t)

	err := mgr.RunLedgerStorage().SaveRecord(context.Background(), &models.RunRecord{})
	assert.Error(t, err)
}

func TestRunLedgerStorage_ResetClearsOnlyGivenKinds(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	record, err := mgr.RunLedgerStorage().GetRecord(ctx, "123456")
	require.NoError(t, err)
	for _, kind := range models.ActionOrder {
		record.MarkDone(kind, "2026-09-01")
	}
	require.NoError(t, mgr.RunLedgerStorage().SaveRecord(ctx, record))

	require.NoError(t, mgr.RunLedgerStorage().Reset(ctx, "123456", []models.ActionKind{
		models.ActionDonate,
		models.ActionBuyCredit,
	}))

	loaded, err := mgr.RunLedgerStorage().GetRecord(ctx, "123456")
	require.NoError(t, err)
	assert.False(t, loaded.DoneOn(models.ActionDonate, "2026-09-01"))
	assert.True(t, loaded.DoneOn(models.ActionBuyVIP, "2026-09-01"))
	assert.False(t, loaded.DoneOn(models.ActionBuyCredit, "2026-09-01"))
}

func TestCredentialStorage_RoundTrip(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	// Nothing stored yet.
	creds, err := mgr.CredentialStorage().GetCredentials(ctx, "123456")
	require.NoError(t, err)
	assert.Nil(t, creds)

	saved := &models.Credentials{
		AccountID:      "123456",
		SessionToken:   "session-abc",
		DonationCookie: "mbsc-xyz",
		Username:       "user@example.com",
	}
	require.NoError(t, mgr.CredentialStorage().SaveCredentials(ctx, saved))

	loaded, err := mgr.CredentialStorage().GetCredentials(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "session-abc", loaded.SessionToken)
	assert.Equal(t, "mbsc-xyz", loaded.DonationCookie)
	assert.NotZero(t, loaded.UpdatedAt)

	// Upsert replaces the rotated tokens.
	saved.SessionToken = "session-def"
	require.NoError(t, mgr.CredentialStorage().SaveCredentials(ctx, saved))
	loaded, err = mgr.CredentialStorage().GetCredentials(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "session-def", loaded.SessionToken)
}

func TestKVStorage_CaseInsensitiveKeys(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.KeyValueStorage().Set(ctx, "Last-Notice", "ratio warning", ""))

	value, err := mgr.KeyValueStorage().Get(ctx, "last-notice")
	require.NoError(t, err)
	assert.Equal(t, "ratio warning", value)

	_, err = mgr.KeyValueStorage().Get(ctx, "absent")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, mgr.KeyValueStorage().Delete(ctx, "LAST-NOTICE"))
	_, err = mgr.KeyValueStorage().Get(ctx, "last-notice")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}
