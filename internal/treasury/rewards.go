package treasury

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReasonDirectSubsidy marks the claimant's own claim subsidy entry.
const ReasonDirectSubsidy = "direct-subsidy"

// LevelReason returns the entry reason for a referral reward at the given
// ancestor level (level 1 = direct referrer).
func LevelReason(level int) string {
	return fmt.Sprintf("referral-level-%d", level)
}

// RewardPlan is the campaign's reward policy: a direct subsidy for the
// claimant and graduated amounts for each referral ancestor level. It is
// injected configuration, external to the ledger's correctness.
type RewardPlan struct {
	DirectSubsidy decimal.Decimal
	LevelRewards  []decimal.Decimal // index 0 = level-1 reward
}

// MaxDepth returns the number of ancestor levels the plan rewards.
func (p RewardPlan) MaxDepth() int {
	return len(p.LevelRewards)
}

// Validate checks that all plan amounts are non-negative.
func (p RewardPlan) Validate() error {
	if p.DirectSubsidy.IsNegative() {
		return fmt.Errorf("direct subsidy cannot be negative, got %s", p.DirectSubsidy)
	}
	for i, amount := range p.LevelRewards {
		if amount.IsNegative() {
			return fmt.Errorf("level %d reward cannot be negative, got %s", i+1, amount)
		}
	}
	return nil
}

// DistributeClaimRewards issues the direct subsidy to the claimant and one
// graduated reward per referral ancestor, nearest first, up to the plan's
// depth. Each reward is a distinct income entry whose reason distinguishes
// direct-subsidy from level-N-referral, so summaries can reconstruct the
// breakdown.
//
// The credits are separate non-transactional steps; a failure partway leaves
// earlier credits in place. A retried claim resolves to AlreadyClaimed and
// never re-enters fan-out, and residual drift is repaired by Reconcile.
//
// Returns the ancestors that actually received a reward, nearest first.
func (t *Ledger) DistributeClaimRewards(ctx context.Context, claimant string, ancestors []string) ([]string, error) {
	if t.plan.DirectSubsidy.IsPositive() {
		if err := t.Credit(ctx, claimant, t.plan.DirectSubsidy, ReasonDirectSubsidy, ""); err != nil {
			return nil, fmt.Errorf("failed to credit direct subsidy: %w", err)
		}
	}

	rewarded := make([]string, 0, len(ancestors))
	for i, ancestor := range ancestors {
		if i >= len(t.plan.LevelRewards) {
			break
		}
		amount := t.plan.LevelRewards[i]
		if !amount.IsPositive() {
			continue
		}
		if err := t.Credit(ctx, ancestor, amount, LevelReason(i+1), claimant); err != nil {
			return rewarded, fmt.Errorf("failed to credit level %d reward to %s: %w", i+1, ancestor, err)
		}
		rewarded = append(rewarded, ancestor)
	}

	return rewarded, nil
}
