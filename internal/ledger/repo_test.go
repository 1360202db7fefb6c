package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercata/mercata-backend/pkg/db"
	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	entries := `
CREATE TABLE IF NOT EXISTS seller_balance_entries (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  order_id TEXT,
  order_payment_id TEXT,
  payout_id TEXT,
  dedupe_key TEXT UNIQUE,
  description TEXT,
  created_at DATETIME
);`
	balances := `
CREATE TABLE IF NOT EXISTS seller_balances (
  store_id TEXT NOT NULL,
  currency TEXT NOT NULL,
  available_cents INTEGER NOT NULL DEFAULT 0,
  pending_cents INTEGER NOT NULL DEFAULT 0,
  last_payout_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (store_id, currency)
);`
	require.NoError(t, conn.Exec(entries).Error)
	require.NoError(t, conn.Exec(balances).Error)
	return conn
}

func createTestEntry(t *testing.T, repo Repository, storeID uuid.UUID, entryType enums.BalanceEntryType, amount int64, createdAt time.Time, dedupeKey *string) *models.SellerBalanceEntry {
	t.Helper()

	entry := &models.SellerBalanceEntry{
		ID:          uuid.New(),
		StoreID:     storeID,
		Type:        entryType,
		AmountCents: amount,
		Currency:    enums.CurrencyUSD,
		DedupeKey:   dedupeKey,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.CreateEntry(context.Background(), entry))
	return entry
}

func TestRepositoryListEntries_scopedToStoreAndOrdered(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)

	storeID := uuid.New()
	otherStore := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	createTestEntry(t, repo, storeID, enums.BalanceEntryTypeRefund, -1500, base.Add(2*time.Hour), nil)
	createTestEntry(t, repo, storeID, enums.BalanceEntryTypeOrderPayment, 10000, base, nil)
	createTestEntry(t, repo, otherStore, enums.BalanceEntryTypeOrderPayment, 9999, base.Add(time.Hour), nil)

	rows, err := repo.ListEntries(context.Background(), storeID, enums.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10000), rows[0].AmountCents)
	assert.Equal(t, int64(-1500), rows[1].AmountCents)
}

func TestRepositoryCreateEntry_duplicateDedupeKeyRejected(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)

	storeID := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	key := "payment:py_test_1"

	createTestEntry(t, repo, storeID, enums.BalanceEntryTypeOrderPayment, 10000, now, &key)

	duplicate := &models.SellerBalanceEntry{
		ID:          uuid.New(),
		StoreID:     storeID,
		Type:        enums.BalanceEntryTypeOrderPayment,
		AmountCents: 10000,
		Currency:    enums.CurrencyUSD,
		DedupeKey:   &key,
		CreatedAt:   now,
	}
	err := repo.CreateEntry(context.Background(), duplicate)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, "dedupe_key"))
}

func TestRepositorySumByTypeForPayment(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)

	storeID := uuid.New()
	paymentID := uuid.New()
	otherPayment := uuid.New()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, amount := range []int64{-2500, -1000} {
		entry := &models.SellerBalanceEntry{
			ID:             uuid.New(),
			StoreID:        storeID,
			Type:           enums.BalanceEntryTypeRefund,
			AmountCents:    amount,
			Currency:       enums.CurrencyUSD,
			OrderPaymentID: &paymentID,
			CreatedAt:      now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateEntry(context.Background(), entry))
	}
	unrelated := &models.SellerBalanceEntry{
		ID:             uuid.New(),
		StoreID:        storeID,
		Type:           enums.BalanceEntryTypeRefund,
		AmountCents:    -9999,
		Currency:       enums.CurrencyUSD,
		OrderPaymentID: &otherPayment,
		CreatedAt:      now,
	}
	require.NoError(t, repo.CreateEntry(context.Background(), unrelated))

	total, err := repo.SumByTypeForPayment(context.Background(), paymentID, enums.BalanceEntryTypeRefund)
	require.NoError(t, err)
	assert.Equal(t, int64(-3500), total)

	empty, err := repo.SumByTypeForPayment(context.Background(), uuid.New(), enums.BalanceEntryTypeRefund)
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestRepositorySnapshotLifecycle(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)

	storeID := uuid.New()

	missing, err := repo.GetSnapshot(context.Background(), storeID, enums.CurrencyUSD)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpsertSnapshot(context.Background(), &models.SellerBalance{
		StoreID:        storeID,
		Currency:       enums.CurrencyUSD,
		AvailableCents: 9500,
		PendingCents:   4000,
	}))

	snapshot, err := repo.GetSnapshot(context.Background(), storeID, enums.CurrencyUSD)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(9500), snapshot.AvailableCents)
	assert.Equal(t, int64(4000), snapshot.PendingCents)

	require.NoError(t, repo.UpsertSnapshot(context.Background(), &models.SellerBalance{
		StoreID:        storeID,
		Currency:       enums.CurrencyUSD,
		AvailableCents: 6000,
		PendingCents:   0,
	}))

	updated, err := repo.GetSnapshot(context.Background(), storeID, enums.CurrencyUSD)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, int64(6000), updated.AvailableCents)
	assert.Zero(t, updated.PendingCents)

	paidAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastPayoutAt(context.Background(), storeID, enums.CurrencyUSD, paidAt))

	stamped, err := repo.GetSnapshot(context.Background(), storeID, enums.CurrencyUSD)
	require.NoError(t, err)
	require.NotNil(t, stamped)
	require.NotNil(t, stamped.LastPayoutAt)
	assert.True(t, stamped.LastPayoutAt.Equal(paidAt))
}
