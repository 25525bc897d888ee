package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubdesk/dues-engine/dues"
	"github.com/clubdesk/dues-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "dues.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot() sqlite.Snapshot {
	leave := dues.NewDate(2024, time.May, 1)
	return sqlite.Snapshot{
		Members: []dues.Member{
			{
				ID:       "m-2",
				Name:     "Zoe",
				Tier:     dues.TierUniversityBased,
				JoinDate: dues.NewDate(2024, time.June, 15),
			},
			{
				ID:        "m-1",
				Name:      "Anna",
				Tier:      dues.TierCommunityBased,
				JoinDate:  dues.NewDate(2020, time.January, 1),
				LeaveDate: &leave,
			},
		},
		Settings: dues.InvoiceContext{
			InvoiceYear:  2025,
			TaxPercent:   decimal.RequireFromString("7.7"),
			CurrencyRate: decimal.RequireFromString("0.94"),
		},
		SavedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveAndLoadSnapshotRoundTrip(t *testing.T) {
	// GIVEN: A snapshot with an out-of-alphabetical roster order and a
	//        member with a leave date
	// WHEN: Saving and loading
	// THEN: Everything round-trips, including roster order

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)

	require.Len(t, got.Members, 2)
	assert.Equal(t, dues.MemberID("m-2"), got.Members[0].ID, "roster order survives")
	assert.Equal(t, dues.MemberID("m-1"), got.Members[1].ID)

	anna := got.Members[1]
	assert.Equal(t, "Anna", anna.Name)
	assert.Equal(t, dues.TierCommunityBased, anna.Tier)
	assert.Equal(t, dues.NewDate(2020, time.January, 1), anna.JoinDate)
	require.NotNil(t, anna.LeaveDate)
	assert.Equal(t, dues.NewDate(2024, time.May, 1), *anna.LeaveDate)
	assert.Nil(t, got.Members[0].LeaveDate)

	assert.Equal(t, 2025, got.Settings.InvoiceYear)
	assert.True(t, got.Settings.TaxPercent.Equal(decimal.RequireFromString("7.7")))
	assert.True(t, got.Settings.CurrencyRate.Equal(decimal.RequireFromString("0.94")))
	assert.Equal(t, time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC), got.SavedAt)
}

func TestStore_LoadWithoutSaveReturnsErrNoSnapshot(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrNoSnapshot)
}

func TestStore_SaveReplacesPreviousSnapshotWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))

	next := testSnapshot()
	next.Members = next.Members[:1]
	next.Settings.InvoiceYear = 2026
	require.NoError(t, store.SaveSnapshot(ctx, next))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
	assert.Equal(t, 2026, got.Settings.InvoiceYear)
}

func TestStore_ResetClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))
	require.NoError(t, store.Reset(ctx))

	_, err := store.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, sqlite.ErrNoSnapshot)
}

func TestStore_EmptyRosterSnapshotIsValid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := testSnapshot()
	snap.Members = nil
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Members)
	assert.Equal(t, 2025, got.Settings.InvoiceYear)
}

func TestStore_LoadRejectsCorruptedMemberRow(t *testing.T) {
	// A stored join date that is not a real calendar date must be
	// rejected with an error naming the member, not smuggled into the
	// engine as a zero value.

	path := filepath.Join(t.TempDir(), "dues.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))

	// Hand-edit the row behind the store's back.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE members SET join_date = '2024-02-30' WHERE id = 'm-1'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = store.LoadSnapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m-1")
}
