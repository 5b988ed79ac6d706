// Package distributor wires the claim pipeline together: claim ledger,
// referral graph and treasury, executed in the order the campaign's
// bookkeeping requires.
package distributor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/warrenhq/warren/internal/claims"
	"github.com/warrenhq/warren/internal/referral"
	"github.com/warrenhq/warren/internal/treasury"
	"github.com/warrenhq/warren/pkg/dropstore"
)

// Distributor executes the full claim flow: try-claim, referral attach,
// reward fan-out. All effects are recorded before the caller is told the
// claim succeeded.
type Distributor struct {
	store    *dropstore.Client
	claims   *claims.Ledger
	graph    *referral.Graph
	treasury *treasury.Ledger

	// maxRewardDepth bounds the referral chain walk for reward fan-out.
	maxRewardDepth int
}

// New creates a distributor over already-constructed components.
func New(store *dropstore.Client, claimLedger *claims.Ledger, graph *referral.Graph, bank *treasury.Ledger, maxRewardDepth int) *Distributor {
	return &Distributor{
		store:          store,
		claims:         claimLedger,
		graph:          graph,
		treasury:       bank,
		maxRewardDepth: maxRewardDepth,
	}
}

// ClaimRequest describes one inbound claim.
type ClaimRequest struct {
	Namespace string // Empty selects the primary collection
	Address   string
	Referrer  string // Optional referring address
	Metadata  map[string]string
}

// ClaimResult is the outcome of a processed claim.
type ClaimResult struct {
	Record         *dropstore.ClaimRecord
	AlreadyClaimed bool
	Attached       bool     // Whether a referral edge was written on this call
	Rewarded       []string // Ancestors that received a referral reward, nearest first
}

// Claim runs the pipeline. A duplicate claim short-circuits to the existing
// record with no side effects. Referral attach failures that are policy
// rejections (self-referral, cycles) skip the edge and its ancestor rewards
// rather than failing a claim that is already permanent; the direct subsidy
// is still credited.
//
// The steps are separate non-transactional store writes. A store failure
// after the claim record is written leaves the claim in place and the caller
// with an error; retrying resolves to AlreadyClaimed, and any missing reward
// credits are the province of Repair.
func (d *Distributor) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	outcome, err := d.claims.TryClaim(ctx, req.Namespace, req.Address, req.Referrer, req.Metadata)
	if err != nil {
		return nil, err
	}

	result := &ClaimResult{Record: outcome.Record, AlreadyClaimed: outcome.AlreadyClaimed}
	if outcome.AlreadyClaimed {
		return result, nil
	}

	record := outcome.Record

	if req.Referrer != "" {
		_, err := d.graph.Attach(ctx, record.OwnerAddress, req.Referrer)
		switch {
		case err == nil:
			result.Attached = true
		case errors.Is(err, referral.ErrSelfReferral), errors.Is(err, referral.ErrCyclicReferral):
			// Rejected edge: the claim stands, rewards walk whatever chain exists.
		default:
			return nil, err
		}
	}

	ancestors, err := d.graph.Chain(ctx, record.OwnerAddress, d.maxRewardDepth)
	if err != nil {
		return nil, err
	}

	rewarded, err := d.treasury.DistributeClaimRewards(ctx, record.OwnerAddress, ancestors)
	if err != nil {
		return nil, err
	}
	result.Rewarded = rewarded

	event := &dropstore.ClaimEvent{
		ID:           uuid.New().String(),
		Namespace:    record.Namespace,
		OwnerAddress: record.OwnerAddress,
		TokenID:      record.TokenID,
		Referrer:     record.Referrer,
		ClaimedAtMs:  record.ClaimedAtMs,
	}
	if err := d.store.PublishClaimEvent(ctx, event); err != nil {
		return nil, err
	}

	return result, nil
}

// Repair sweeps every account with a cached balance and reconciles it against
// its entry history, returning the reports for accounts that had drifted.
// Pattern enumeration makes this an offline administrative operation.
func (d *Distributor) Repair(ctx context.Context) ([]*treasury.ReconcileReport, error) {
	campaign := d.store.Campaign()
	keys, err := d.store.ScanKeys(ctx, dropstore.BalanceKeyPattern(campaign))
	if err != nil {
		return nil, err
	}

	accounts := make([]string, 0, len(keys))
	for _, key := range keys {
		if account := dropstore.AccountFromBalanceKey(campaign, key); account != "" {
			accounts = append(accounts, account)
		}
	}
	sort.Strings(accounts)

	var drifted []*treasury.ReconcileReport
	for _, account := range accounts {
		report, err := d.treasury.Reconcile(ctx, account)
		if err != nil {
			return drifted, fmt.Errorf("repair stopped at account %s: %w", account, err)
		}
		if report.Drifted {
			drifted = append(drifted, report)
		}
	}

	return drifted, nil
}

// Settle records the settlement collaborator's transaction hash onto a claim.
// The hash is stored verbatim; its on-chain finality is not awaited.
func (d *Distributor) Settle(ctx context.Context, namespace, address, txHash string) error {
	if txHash == "" {
		return fmt.Errorf("tx hash cannot be empty")
	}
	return d.claims.SetTxHash(ctx, namespace, address, txHash)
}
