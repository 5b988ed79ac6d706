package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/dropstore"
)

func setupTest(t *testing.T, historyCap int) (*Manager, *dropstore.Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := dropstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-campaign")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewManager(store, historyCap), store, mr
}

func testSnapshot(fingerprint string) *dropstore.AccountSnapshot {
	return &dropstore.AccountSnapshot{
		UserID:      "u-" + fingerprint,
		Fingerprint: fingerprint,
		Username:    "alice",
		EVMAddress:  "0xAAA",
		CreatedAtMs: 1700000000000,
	}
}

func TestValidCode(t *testing.T) {
	t.Run("accepts 64 lowercase hex", func(t *testing.T) {
		assert.True(t, ValidCode("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
	})

	t.Run("rejects everything else", func(t *testing.T) {
		cases := []string{
			"",
			"abc",
			"ABCDEF6789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",  // uppercase
			"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcde",   // 63 chars
			"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0", // 65 chars
			"g123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",  // non-hex
		}
		for _, code := range cases {
			assert.False(t, ValidCode(code), "expected %q to be rejected", code)
		}
	})
}

func TestIssueCode(t *testing.T) {
	manager, _, _ := setupTest(t, 0)
	ctx := context.Background()

	t.Run("issues a well-formed code", func(t *testing.T) {
		code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
		require.NoError(t, err)
		assert.True(t, ValidCode(code))
	})

	t.Run("rejects invalid snapshot", func(t *testing.T) {
		_, err := manager.IssueCode(ctx, &dropstore.AccountSnapshot{UserID: "u-1"})
		assert.Error(t, err)
	})
}

func TestLookup(t *testing.T) {
	manager, _, _ := setupTest(t, 0)
	ctx := context.Background()

	code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
	require.NoError(t, err)

	t.Run("resolves without consuming", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			snapshot, err := manager.Lookup(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, "alice", snapshot.Username)
			assert.Equal(t, "fp-original", snapshot.Fingerprint)
		}
	})

	t.Run("malformed code", func(t *testing.T) {
		_, err := manager.Lookup(ctx, "abc")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := manager.Lookup(ctx, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
		assert.True(t, dropstore.IsNotFound(err))
	})
}

func TestImport(t *testing.T) {
	manager, _, _ := setupTest(t, 0)
	ctx := context.Background()

	code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
	require.NoError(t, err)

	t.Run("first import consumes the code", func(t *testing.T) {
		snapshot, err := manager.Import(ctx, code, "fp-new")
		require.NoError(t, err)
		assert.Equal(t, "alice", snapshot.Username)

		status, err := manager.GetStatus(ctx, "fp-new")
		require.NoError(t, err)
		assert.True(t, status.HasMigration)
		assert.Equal(t, "fp-original", status.Record.OriginalFingerprint)
		assert.Equal(t, "alice", status.Record.MigratedFrom)
	})

	t.Run("re-import by the same fingerprint is idempotent", func(t *testing.T) {
		snapshot, err := manager.Import(ctx, code, "fp-new")
		require.NoError(t, err)
		assert.Equal(t, "alice", snapshot.Username)

		history, err := manager.History(ctx, "fp-original")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("import by a different fingerprint is rejected", func(t *testing.T) {
		_, err := manager.Import(ctx, code, "fp-intruder")
		assert.ErrorIs(t, err, ErrCodeConsumed)

		status, err := manager.GetStatus(ctx, "fp-intruder")
		require.NoError(t, err)
		assert.False(t, status.HasMigration)
	})

	t.Run("malformed code", func(t *testing.T) {
		_, err := manager.Import(ctx, "abc", "fp-new")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("empty fingerprint", func(t *testing.T) {
		_, err := manager.Import(ctx, code, "")
		assert.Error(t, err)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := manager.Import(ctx, "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "fp-new")
		assert.True(t, dropstore.IsNotFound(err))
	})
}

func TestImportBackfillsAfterPartialFailure(t *testing.T) {
	manager, store, _ := setupTest(t, 0)
	ctx := context.Background()

	code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
	require.NoError(t, err)

	// A first import that died right after consuming the code: the code is
	// marked consumed but no record or history was ever written.
	won, _, err := store.ConsumeTransferCode(ctx, code, "fp-new", 1700000000000)
	require.NoError(t, err)
	require.True(t, won)

	status, err := manager.GetStatus(ctx, "fp-new")
	require.NoError(t, err)
	require.False(t, status.HasMigration)

	snapshot, err := manager.Import(ctx, code, "fp-new")
	require.NoError(t, err)
	assert.Equal(t, "alice", snapshot.Username)

	status, err = manager.GetStatus(ctx, "fp-new")
	require.NoError(t, err)
	assert.True(t, status.HasMigration)
	assert.Equal(t, "fp-original", status.Record.OriginalFingerprint)

	history, err := manager.History(ctx, "fp-original")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fp-new", history[0].MigratedTo)

	// Further re-imports stay no-ops.
	_, err = manager.Import(ctx, code, "fp-new")
	require.NoError(t, err)
	history, err = manager.History(ctx, "fp-original")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGetStatus(t *testing.T) {
	manager, _, mr := setupTest(t, 0)
	ctx := context.Background()

	code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
	require.NoError(t, err)
	_, err = manager.Import(ctx, code, "fp-new")
	require.NoError(t, err)

	t.Run("unmigrated fingerprint", func(t *testing.T) {
		status, err := manager.GetStatus(ctx, "fp-fresh")
		require.NoError(t, err)
		assert.False(t, status.HasMigration)
		assert.Nil(t, status.Record)
	})

	t.Run("resolves the original account via the index", func(t *testing.T) {
		status, err := manager.GetStatus(ctx, "fp-new")
		require.NoError(t, err)
		require.True(t, status.HasMigration)
		require.NotNil(t, status.Account)
		assert.Equal(t, "alice", status.Account.Username)
		assert.Equal(t, "0xAAA", status.Account.EVMAddress)
	})

	t.Run("falls back to a scan when the index is gone", func(t *testing.T) {
		mr.Del(dropstore.TransferCodeByFingerprintKey("test-campaign", "fp-original"))

		status, err := manager.GetStatus(ctx, "fp-new")
		require.NoError(t, err)
		require.NotNil(t, status.Account)
		assert.Equal(t, "alice", status.Account.Username)

		// The scan path re-indexes for the next call.
		assert.True(t, mr.Exists(dropstore.TransferCodeByFingerprintKey("test-campaign", "fp-original")))
	})

	t.Run("account may be unresolvable", func(t *testing.T) {
		mr.Del(dropstore.TransferCodeByFingerprintKey("test-campaign", "fp-original"))
		mr.Del(dropstore.TransferCodeKey("test-campaign", code))

		status, err := manager.GetStatus(ctx, "fp-new")
		require.NoError(t, err)
		assert.True(t, status.HasMigration)
		assert.Nil(t, status.Account)
	})
}

func TestHistoryCap(t *testing.T) {
	manager, _, _ := setupTest(t, 2)
	ctx := context.Background()

	// Three migrations of the same original account; only the newest two
	// survive the cap.
	for i := 1; i <= 3; i++ {
		code, err := manager.IssueCode(ctx, testSnapshot("fp-original"))
		require.NoError(t, err)
		_, err = manager.Import(ctx, code, fmt.Sprintf("fp-device-%d", i))
		require.NoError(t, err)
	}

	history, err := manager.History(ctx, "fp-original")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "fp-device-2", history[0].MigratedTo)
	assert.Equal(t, "fp-device-3", history[1].MigratedTo)
}
