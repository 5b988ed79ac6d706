package distributor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/internal/claims"
	"github.com/warrenhq/warren/internal/referral"
	"github.com/warrenhq/warren/internal/treasury"
	"github.com/warrenhq/warren/pkg/dropstore"
)

func testPlan() treasury.RewardPlan {
	return treasury.RewardPlan{
		DirectSubsidy: decimal.RequireFromString("10"),
		LevelRewards: []decimal.Decimal{
			decimal.RequireFromString("5"),
			decimal.RequireFromString("2"),
		},
	}
}

func setupTest(t *testing.T) (*Distributor, *dropstore.Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := dropstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-campaign")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	plan := testPlan()
	bank := treasury.NewLedger(store, plan)
	dist := New(store, claims.NewLedger(store, nil), referral.NewGraph(store), bank, plan.MaxDepth())

	return dist, store, mr
}

func TestClaim(t *testing.T) {
	dist, store, _ := setupTest(t)
	ctx := context.Background()

	t.Run("claim with a referrer records everything", func(t *testing.T) {
		result, err := dist.Claim(ctx, ClaimRequest{Address: "0xAAA", Referrer: "0xBBB"})
		require.NoError(t, err)

		assert.False(t, result.AlreadyClaimed)
		assert.True(t, result.Attached)
		assert.Equal(t, int64(1), result.Record.TokenID)
		assert.Equal(t, []string{"0xBBB"}, result.Rewarded)

		// Claim record present under the primary namespace.
		record, err := store.GetClaimRecord(ctx, dropstore.PrimaryNamespace, "0xAAA")
		require.NoError(t, err)
		assert.Equal(t, "0xBBB", record.Referrer)

		// Referral edge written.
		referrer, err := store.GetReferrer(ctx, "0xAAA")
		require.NoError(t, err)
		assert.Equal(t, "0xBBB", referrer)

		// Direct subsidy for the claimant, level-1 reward for the referrer.
		claimantBalance, err := store.GetBalance(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, claimantBalance.Equal(decimal.RequireFromString("10")))

		referrerBalance, err := store.GetBalance(ctx, "0xBBB")
		require.NoError(t, err)
		assert.True(t, referrerBalance.Equal(decimal.RequireFromString("5")))

		entries, err := store.GetEntries(ctx, "0xBBB")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "referral-level-1", entries[0].Reason)
		assert.Equal(t, "0xAAA", entries[0].Counterparty)

		// Both reasons show up in the summary breakdowns.
		bank := treasury.NewLedger(store, testPlan())
		summary, err := bank.GetSummary(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, summary.IncomeBreakdown[treasury.ReasonDirectSubsidy].Equal(decimal.RequireFromString("10")))

		summary, err = bank.GetSummary(ctx, "0xBBB")
		require.NoError(t, err)
		assert.True(t, summary.IncomeBreakdown[treasury.LevelReason(1)].Equal(decimal.RequireFromString("5")))
	})

	t.Run("duplicate claim has no side effects", func(t *testing.T) {
		result, err := dist.Claim(ctx, ClaimRequest{Address: "0xAAA", Referrer: "0xCCC"})
		require.NoError(t, err)

		assert.True(t, result.AlreadyClaimed)
		assert.False(t, result.Attached)
		assert.Empty(t, result.Rewarded)
		assert.Equal(t, int64(1), result.Record.TokenID)

		// Balances unchanged.
		balance, err := store.GetBalance(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("10")))

		// Original referral edge intact.
		referrer, err := store.GetReferrer(ctx, "0xAAA")
		require.NoError(t, err)
		assert.Equal(t, "0xBBB", referrer)
	})

	t.Run("claim without a referrer still gets the subsidy", func(t *testing.T) {
		result, err := dist.Claim(ctx, ClaimRequest{Address: "0xDDD"})
		require.NoError(t, err)

		assert.False(t, result.Attached)
		assert.Empty(t, result.Rewarded)

		balance, err := store.GetBalance(ctx, "0xDDD")
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("10")))
	})

	t.Run("self referral claim stands without an edge", func(t *testing.T) {
		result, err := dist.Claim(ctx, ClaimRequest{Address: "0xEEE", Referrer: "0xEEE"})
		require.NoError(t, err)

		assert.False(t, result.Attached)
		assert.Empty(t, result.Rewarded)

		_, err = store.GetReferrer(ctx, "0xEEE")
		assert.True(t, dropstore.IsNotFound(err))
	})
}

func TestClaimRewardsWalkTheChain(t *testing.T) {
	dist, store, _ := setupTest(t)
	ctx := context.Background()

	// Build the chain 0xC3 -> 0xC2 -> 0xC1 claim by claim.
	_, err := dist.Claim(ctx, ClaimRequest{Address: "0xC1"})
	require.NoError(t, err)
	_, err = dist.Claim(ctx, ClaimRequest{Address: "0xC2", Referrer: "0xC1"})
	require.NoError(t, err)

	result, err := dist.Claim(ctx, ClaimRequest{Address: "0xC3", Referrer: "0xC2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0xC2", "0xC1"}, result.Rewarded)

	// 0xC1: subsidy 10, level-1 from 0xC2 (5), level-2 from 0xC3 (2).
	balance, err := store.GetBalance(ctx, "0xC1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("17")), "got %s", balance)

	// 0xC2: subsidy 10, level-1 from 0xC3 (5).
	balance, err = store.GetBalance(ctx, "0xC2")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("15")), "got %s", balance)
}

func TestClaimPublishesEvent(t *testing.T) {
	dist, store, _ := setupTest(t)
	ctx := context.Background()

	sub, err := store.SubscribeClaimEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	_, err = dist.Claim(ctx, ClaimRequest{Address: "0xAAA", Referrer: "0xBBB"})
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "0xAAA", event.OwnerAddress)
		assert.Equal(t, "0xBBB", event.Referrer)
		assert.Equal(t, int64(1), event.TokenID)
		assert.Equal(t, dropstore.PrimaryNamespace, event.Namespace)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for claim event")
	}
}

func TestRepair(t *testing.T) {
	dist, store, mr := setupTest(t)
	ctx := context.Background()

	_, err := dist.Claim(ctx, ClaimRequest{Address: "0xAAA", Referrer: "0xBBB"})
	require.NoError(t, err)
	_, err = dist.Claim(ctx, ClaimRequest{Address: "0xCCC"})
	require.NoError(t, err)

	t.Run("clean ledger needs no repairs", func(t *testing.T) {
		drifted, err := dist.Repair(ctx)
		require.NoError(t, err)
		assert.Empty(t, drifted)
	})

	t.Run("repairs only the drifted account", func(t *testing.T) {
		require.NoError(t, mr.Set(dropstore.BalanceKey("test-campaign", "0xBBB"), "0"))

		drifted, err := dist.Repair(ctx)
		require.NoError(t, err)
		require.Len(t, drifted, 1)
		assert.Equal(t, "0xBBB", drifted[0].Account)
		assert.True(t, drifted[0].OldBalance.IsZero())
		assert.True(t, drifted[0].NewBalance.Equal(decimal.RequireFromString("5")))

		balance, err := store.GetBalance(ctx, "0xBBB")
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("5")))
	})
}

func TestSettle(t *testing.T) {
	dist, store, _ := setupTest(t)
	ctx := context.Background()

	_, err := dist.Claim(ctx, ClaimRequest{Address: "0xAAA"})
	require.NoError(t, err)

	t.Run("records the tx hash", func(t *testing.T) {
		require.NoError(t, dist.Settle(ctx, "", "0xAAA", "0xFEEDBEEF"))

		record, err := store.GetClaimRecord(ctx, dropstore.PrimaryNamespace, "0xAAA")
		require.NoError(t, err)
		assert.Equal(t, "0xFEEDBEEF", record.TxHash)
	})

	t.Run("empty hash is rejected", func(t *testing.T) {
		assert.Error(t, dist.Settle(ctx, "", "0xAAA", ""))
	})

	t.Run("unclaimed address is not found", func(t *testing.T) {
		err := dist.Settle(ctx, "", "0xNOPE", "0xFEEDBEEF")
		assert.True(t, dropstore.IsNotFound(err))
	})
}
