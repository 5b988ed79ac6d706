package treasury

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenhq/warren/pkg/dropstore"
)

func setupTest(t *testing.T, plan RewardPlan) (*Ledger, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := dropstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-campaign")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewLedger(store, plan), mr
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreditAndDebit(t *testing.T) {
	ledger, _ := setupTest(t, RewardPlan{})
	ctx := context.Background()

	t.Run("balance tracks the signed entry sum", func(t *testing.T) {
		require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("10"), ReasonDirectSubsidy, ""))
		require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("2.5"), LevelReason(1), "0xBBB"))
		require.NoError(t, ledger.Debit(ctx, "0xAAA", amount("0.75"), "mint-cost", ""))

		balance, err := ledger.Balance(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, balance.Equal(amount("11.75")), "got %s", balance)
	})

	t.Run("history preserves append order", func(t *testing.T) {
		entries, err := ledger.Entries(ctx, "0xAAA")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ReasonDirectSubsidy, entries[0].Reason)
		assert.Equal(t, "referral-level-1", entries[1].Reason)
		assert.Equal(t, dropstore.KindExpense, entries[2].Kind)
	})

	t.Run("unknown account reads zero with no history", func(t *testing.T) {
		balance, err := ledger.Balance(ctx, "0xZZZ")
		require.NoError(t, err)
		assert.True(t, balance.IsZero())

		entries, err := ledger.Entries(ctx, "0xZZZ")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestGetSummary(t *testing.T) {
	ledger, _ := setupTest(t, RewardPlan{})
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("10"), ReasonDirectSubsidy, ""))
	require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("3"), LevelReason(1), "0xB1"))
	require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("3"), LevelReason(1), "0xB2"))
	require.NoError(t, ledger.Debit(ctx, "0xAAA", amount("1"), "mint-cost", ""))

	summary, err := ledger.GetSummary(ctx, "0xAAA")
	require.NoError(t, err)

	assert.True(t, summary.TotalIncome.Equal(amount("16")))
	assert.True(t, summary.TotalExpense.Equal(amount("1")))
	assert.True(t, summary.IncomeBreakdown[ReasonDirectSubsidy].Equal(amount("10")))
	assert.True(t, summary.IncomeBreakdown["referral-level-1"].Equal(amount("6")))
	assert.True(t, summary.ExpenseBreakdown["mint-cost"].Equal(amount("1")))
}

func TestReconcile(t *testing.T) {
	ledger, mr := setupTest(t, RewardPlan{})
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, "0xAAA", amount("5"), ReasonDirectSubsidy, ""))
	require.NoError(t, ledger.Debit(ctx, "0xAAA", amount("2"), "mint-cost", ""))

	t.Run("consistent balance reports no drift", func(t *testing.T) {
		report, err := ledger.Reconcile(ctx, "0xAAA")
		require.NoError(t, err)
		assert.False(t, report.Drifted)
		assert.True(t, report.NewBalance.Equal(amount("3")))
	})

	t.Run("repairs an injected drift", func(t *testing.T) {
		require.NoError(t, mr.Set(dropstore.BalanceKey("test-campaign", "0xAAA"), "0"))

		report, err := ledger.Reconcile(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, report.Drifted)
		assert.True(t, report.OldBalance.IsZero())
		assert.True(t, report.NewBalance.Equal(amount("3")))

		balance, err := ledger.Balance(ctx, "0xAAA")
		require.NoError(t, err)
		assert.True(t, balance.Equal(amount("3")))
	})
}

func TestRewardPlanValidate(t *testing.T) {
	t.Run("non-negative amounts pass", func(t *testing.T) {
		plan := RewardPlan{
			DirectSubsidy: amount("10"),
			LevelRewards:  []decimal.Decimal{amount("5"), amount("0"), amount("1")},
		}
		assert.NoError(t, plan.Validate())
		assert.Equal(t, 3, plan.MaxDepth())
	})

	t.Run("negative subsidy fails", func(t *testing.T) {
		plan := RewardPlan{DirectSubsidy: amount("-1")}
		assert.Error(t, plan.Validate())
	})

	t.Run("negative level reward fails", func(t *testing.T) {
		plan := RewardPlan{LevelRewards: []decimal.Decimal{amount("5"), amount("-2")}}
		assert.Error(t, plan.Validate())
	})
}

func TestDistributeClaimRewards(t *testing.T) {
	plan := RewardPlan{
		DirectSubsidy: amount("10"),
		LevelRewards:  []decimal.Decimal{amount("5"), amount("2"), amount("1")},
	}

	t.Run("rewards claimant and ancestors by level", func(t *testing.T) {
		ledger, _ := setupTest(t, plan)
		ctx := context.Background()

		rewarded, err := ledger.DistributeClaimRewards(ctx, "0xNEW", []string{"0xL1", "0xL2", "0xL3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xL1", "0xL2", "0xL3"}, rewarded)

		for account, want := range map[string]string{
			"0xNEW": "10",
			"0xL1":  "5",
			"0xL2":  "2",
			"0xL3":  "1",
		} {
			balance, err := ledger.Balance(ctx, account)
			require.NoError(t, err)
			assert.True(t, balance.Equal(amount(want)), "%s: got %s want %s", account, balance, want)
		}

		entries, err := ledger.Entries(ctx, "0xL2")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "referral-level-2", entries[0].Reason)
		assert.Equal(t, "0xNEW", entries[0].Counterparty)
	})

	t.Run("chain shorter than the plan", func(t *testing.T) {
		ledger, _ := setupTest(t, plan)
		ctx := context.Background()

		rewarded, err := ledger.DistributeClaimRewards(ctx, "0xNEW", []string{"0xL1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xL1"}, rewarded)
	})

	t.Run("chain deeper than the plan is clipped", func(t *testing.T) {
		ledger, _ := setupTest(t, plan)
		ctx := context.Background()

		rewarded, err := ledger.DistributeClaimRewards(ctx, "0xNEW", []string{"0xL1", "0xL2", "0xL3", "0xL4"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xL1", "0xL2", "0xL3"}, rewarded)

		balance, err := ledger.Balance(ctx, "0xL4")
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("zero amounts are skipped", func(t *testing.T) {
		zeroPlan := RewardPlan{
			DirectSubsidy: decimal.Zero,
			LevelRewards:  []decimal.Decimal{decimal.Zero, amount("2")},
		}
		ledger, _ := setupTest(t, zeroPlan)
		ctx := context.Background()

		rewarded, err := ledger.DistributeClaimRewards(ctx, "0xNEW", []string{"0xL1", "0xL2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xL2"}, rewarded)

		entries, err := ledger.Entries(ctx, "0xNEW")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
