// Package claims implements the claim ledger: at-most-one token claim per
// address per collection namespace, with atomic token ID allocation and an
// idempotent retry path.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	// ErrSupplyExhausted is returned when a namespace has a supply ceiling
	// and every token has been claimed.
	ErrSupplyExhausted = errors.New("collection supply exhausted")

	// ErrClaimPending is returned to a losing concurrent claimer when the
	// winner's record is not yet visible. The claim exists; the caller
	// should retry with backoff and will observe an AlreadyClaimed outcome.
	ErrClaimPending = errors.New("claim in flight, retry")
)

// recordWait bounds how long a losing claimer waits for the winner's record
// to become visible before giving up with ErrClaimPending.
const (
	recordWaitAttempts = 20
	recordWaitInterval = 25 * time.Millisecond
)

// CeilingFunc resolves the supply ceiling of a namespace. A return of 0 means
// unlimited. Injected so that partner ceilings can come from the partner
// registry and the primary ceiling from campaign configuration.
type CeilingFunc func(ctx context.Context, namespace string) (int64, error)

// Ledger guarantees at-most-one claim per (namespace, address) and assigns
// sequential token IDs within each namespace.
type Ledger struct {
	store   *dropstore.Client
	ceiling CeilingFunc
}

// Outcome is the result of a TryClaim call. AlreadyClaimed distinguishes the
// idempotent path: the record is the pre-existing one and no side effects
// occurred on this call.
type Outcome struct {
	Record         *dropstore.ClaimRecord
	AlreadyClaimed bool
}

// NewLedger creates a claim ledger over the given store. ceiling may be nil,
// in which case every namespace is unlimited.
func NewLedger(store *dropstore.Client, ceiling CeilingFunc) *Ledger {
	return &Ledger{store: store, ceiling: ceiling}
}

// HasClaimed reports whether the address has a claim (or a claim in flight)
// in the namespace. No side effects.
func (l *Ledger) HasClaimed(ctx context.Context, namespace, address string) (bool, error) {
	return l.store.ClaimReserved(ctx, namespace, address)
}

// TryClaim atomically claims the next token of the namespace for the address.
//
// Two concurrent calls for the same address resolve to exactly one record and
// exactly one token ID; the loser observes AlreadyClaimed with the winner's
// record. Retrying an already-succeeded claim is always safe and always
// resolves to the same record.
//
// The reservation marker is written with SETNX before any other effect, so
// token IDs are only ever allocated by the single holder of a slot. Any
// failure between the marker write and the index append rolls the
// reservation (and a written record) back, so the address can claim again.
// A marker whose holder died before the record write is detected by later
// claimers, which take the slot over instead of waiting on it forever.
func (l *Ledger) TryClaim(ctx context.Context, namespace, address, referrer string, metadata map[string]string) (*Outcome, error) {
	if address == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}
	if referrer == address {
		// A self-referral never becomes part of the record.
		referrer = ""
	}

	now := time.Now().UnixMilli()

	won, err := l.store.ReserveClaim(ctx, namespace, address, now)
	if err != nil {
		return nil, err
	}

	if !won {
		record, err := l.awaitRecord(ctx, namespace, address)
		if err == nil {
			return &Outcome{Record: record, AlreadyClaimed: true}, nil
		}
		if !errors.Is(err, ErrClaimPending) {
			return nil, err
		}
		// A reservation with no record past the wait window is an orphan:
		// its holder died before the record write. Inherit the slot.
		taken, err := l.takeOverOrphan(ctx, namespace, address, now)
		if err != nil {
			return nil, err
		}
		if !taken {
			return nil, ErrClaimPending
		}
	}

	return l.completeClaim(ctx, namespace, address, referrer, metadata, now)
}

// completeClaim runs the slot holder's side of a claim: token allocation,
// ceiling check, record write, index append. Every failure rolls the
// reservation back so a retry can claim fresh.
func (l *Ledger) completeClaim(ctx context.Context, namespace, address, referrer string, metadata map[string]string, now int64) (*Outcome, error) {
	tokenID, err := l.store.NextTokenID(ctx, namespace)
	if err != nil {
		return nil, l.rollback(ctx, namespace, address, err)
	}

	if err := l.checkCeiling(ctx, namespace, address, tokenID); err != nil {
		return nil, err
	}

	record := &dropstore.ClaimRecord{
		OwnerAddress: address,
		TokenID:      tokenID,
		Namespace:    namespace,
		Referrer:     referrer,
		ClaimedAtMs:  now,
		Metadata:     metadata,
	}

	if err := l.store.PutClaimRecord(ctx, record); err != nil {
		return nil, l.rollback(ctx, namespace, address, err)
	}

	if err := l.store.AppendClaimIndex(ctx, namespace, address); err != nil {
		if delErr := l.store.DeleteClaimRecord(ctx, namespace, address); delErr != nil {
			return nil, fmt.Errorf("index append failed (%v), and record rollback failed: %w", err, delErr)
		}
		return nil, l.rollback(ctx, namespace, address, err)
	}

	return &Outcome{Record: record}, nil
}

// takeOverOrphan attempts to inherit a reservation whose record never
// appeared. The store guards the handover with the marker value the orphan
// was observed under, so concurrent claimers resolve to a single new holder.
func (l *Ledger) takeOverOrphan(ctx context.Context, namespace, address string, now int64) (bool, error) {
	marker, err := l.store.ClaimMarker(ctx, namespace, address)
	if err != nil {
		if dropstore.IsNotFound(err) {
			// The orphan was rolled back in the meantime; the slot is free
			// again and the caller can simply retry.
			return false, nil
		}
		return false, err
	}
	return l.store.TakeOverClaim(ctx, namespace, address, marker, now)
}

// rollback frees the claim slot after a failed claim attempt and returns the
// original cause. The consumed token ID is not returned to the sequence.
func (l *Ledger) rollback(ctx context.Context, namespace, address string, cause error) error {
	if relErr := l.store.ReleaseClaim(ctx, namespace, address); relErr != nil {
		return fmt.Errorf("%v, and reservation rollback failed: %w", cause, relErr)
	}
	return cause
}

// checkCeiling rolls the reservation back and reports exhaustion when the
// allocated token ID exceeds the namespace ceiling. The consumed ID is not
// returned to the sequence; token IDs are never reused.
func (l *Ledger) checkCeiling(ctx context.Context, namespace, address string, tokenID int64) error {
	if l.ceiling == nil {
		return nil
	}

	limit, err := l.ceiling(ctx, namespace)
	if err != nil {
		return l.rollback(ctx, namespace, address, fmt.Errorf("failed to resolve supply ceiling: %w", err))
	}

	if limit > 0 && tokenID > limit {
		return l.rollback(ctx, namespace, address, fmt.Errorf("%w: namespace %s cap %d", ErrSupplyExhausted, namespace, limit))
	}

	return nil
}

// awaitRecord fetches the existing record for a lost reservation, waiting out
// the small window between the winner's SETNX and its record write.
func (l *Ledger) awaitRecord(ctx context.Context, namespace, address string) (*dropstore.ClaimRecord, error) {
	for i := 0; i < recordWaitAttempts; i++ {
		record, err := l.store.GetClaimRecord(ctx, namespace, address)
		if err == nil {
			return record, nil
		}
		if !dropstore.IsNotFound(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(recordWaitInterval):
		}
	}
	return nil, ErrClaimPending
}

// GetClaim returns the claim record for (namespace, address).
// Returns (nil, redis.Nil) if no claim exists; use dropstore.IsNotFound.
func (l *Ledger) GetClaim(ctx context.Context, namespace, address string) (*dropstore.ClaimRecord, error) {
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}
	return l.store.GetClaimRecord(ctx, namespace, address)
}

// TotalClaims returns the number of completed claims in the namespace.
// Equals the count of claim records at all times: the index is appended only
// after the record write.
func (l *Ledger) TotalClaims(ctx context.Context, namespace string) (int64, error) {
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}
	return l.store.ClaimCount(ctx, namespace)
}

// ClaimedAddresses returns the namespace's claimed addresses in claim order.
func (l *Ledger) ClaimedAddresses(ctx context.Context, namespace string) ([]string, error) {
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}
	return l.store.ClaimIndex(ctx, namespace)
}

// SetTxHash records the settlement collaborator's transaction hash onto an
// existing claim record. The hash is stored as-is; warren does not validate
// or await its on-chain finality.
func (l *Ledger) SetTxHash(ctx context.Context, namespace, address, txHash string) error {
	if namespace == "" {
		namespace = dropstore.PrimaryNamespace
	}
	return l.store.SetClaimTxHash(ctx, namespace, address, txHash)
}
