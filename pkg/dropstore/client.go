package dropstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// maxTxRetries bounds optimistic WATCH/MULTI retries on contended accounts.
const maxTxRetries = 16

// Client provides campaign-scoped Redis operations for the drop board.
// All keys and channels are automatically namespaced with the campaign name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
//
// The client exposes the store-level atomic operations the components build
// on: SETNX reservations, atomic counters, list/set indexes, and per-account
// WATCH transactions. Policy (reward fan-out, cycle checks, supply ceilings)
// lives in the component packages.
type Client struct {
	rdb      *redis.Client
	campaign string
}

// NewClient creates a new drop board client for the specified campaign.
// The client automatically namespaces all keys and channels with the campaign name.
//
// Returns an error if campaign is empty.
func NewClient(redisOpts *redis.Options, campaign string) (*Client, error) {
	if campaign == "" {
		return nil, fmt.Errorf("campaign name cannot be empty")
	}

	return &Client{
		rdb:      redis.NewClient(redisOpts),
		campaign: campaign,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Campaign returns the campaign name the client is scoped to.
func (c *Client) Campaign() string {
	return c.campaign
}

// ---- Claim operations ----

// ReserveClaim attempts to reserve the (namespace, address) claim slot with
// SETNX. Returns true if this caller won the reservation. Exactly one caller
// wins for any slot over the lifetime of the campaign; the winner is the only
// one allowed to allocate a token ID and write the record.
func (c *Client) ReserveClaim(ctx context.Context, namespace, address string, atMs int64) (bool, error) {
	key := ClaimMarkerKey(c.campaign, namespace, address)
	won, err := c.rdb.SetNX(ctx, key, atMs, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve claim: %w", err)
	}
	return won, nil
}

// ReleaseClaim removes a claim reservation. Only used to roll back a
// reservation whose winner failed before the record was indexed (store
// error or exhausted supply); a reservation with an indexed record is never
// released.
func (c *Client) ReleaseClaim(ctx context.Context, namespace, address string) error {
	key := ClaimMarkerKey(c.campaign, namespace, address)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release claim reservation: %w", err)
	}
	return nil
}

// ClaimReserved checks whether the (namespace, address) slot has been
// reserved, without fetching the record. This is the existence check behind
// HasClaimed: the marker is written before the record, so a true result may
// precede record visibility by one in-flight claim.
func (c *Client) ClaimReserved(ctx context.Context, namespace, address string) (bool, error) {
	key := ClaimMarkerKey(c.campaign, namespace, address)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check claim reservation: %w", err)
	}
	return exists > 0, nil
}

// ClaimMarker returns the raw reservation marker of a slot, which holds the
// reservation timestamp in unix milliseconds.
// Returns ("", redis.Nil) if the slot is unreserved.
func (c *Client) ClaimMarker(ctx context.Context, namespace, address string) (string, error) {
	key := ClaimMarkerKey(c.campaign, namespace, address)
	marker, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read claim marker: %w", err)
	}
	return marker, nil
}

// TakeOverClaim transfers an orphaned reservation to the caller. The marker
// key is WATCHed and the takeover commits only when the marker still holds
// the value the caller observed and no record has appeared, so at most one of
// any number of concurrent claimants inherits the slot. Returns true if this
// caller now owns the reservation.
func (c *Client) TakeOverClaim(ctx context.Context, namespace, address, seenMarker string, atMs int64) (bool, error) {
	markerKey := ClaimMarkerKey(c.campaign, namespace, address)
	recordKey := ClaimRecordKey(c.campaign, namespace, address)

	var won bool
	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, markerKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("failed to read claim marker: %w", err)
		}
		if current != seenMarker {
			return nil
		}

		exists, err := tx.Exists(ctx, recordKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check claim record existence: %w", err)
		}
		if exists > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, markerKey, atMs, 0)
			return nil
		})
		if err == nil {
			won = true
		}
		return err
	}

	if err := c.rdb.Watch(ctx, txn, markerKey); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to take over claim reservation: %w", err)
	}
	return won, nil
}

// NextTokenID atomically allocates the next token ID for a namespace.
// IDs are monotonic per namespace, start at 1, and are never reused.
func (c *Client) NextTokenID(ctx context.Context, namespace string) (int64, error) {
	key := TokenSeqKey(c.campaign, namespace)
	id, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate token ID: %w", err)
	}
	return id, nil
}

// PutClaimRecord writes a claim record to Redis.
// Validates the record before writing.
func (c *Client) PutClaimRecord(ctx context.Context, record *ClaimRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid claim record: %w", err)
	}

	hash, err := ClaimRecordToHash(record)
	if err != nil {
		return fmt.Errorf("failed to serialize claim record: %w", err)
	}

	key := ClaimRecordKey(c.campaign, record.Namespace, record.OwnerAddress)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write claim record to Redis: %w", err)
	}

	return nil
}

// GetClaimRecord retrieves a claim record by namespace and address.
// Returns (nil, redis.Nil) if the record doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetClaimRecord(ctx context.Context, namespace, address string) (*ClaimRecord, error) {
	key := ClaimRecordKey(c.campaign, namespace, address)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read claim record from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := HashToClaimRecord(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize claim record: %w", err)
	}

	return record, nil
}

// SetClaimTxHash fills in the settlement transaction hash on an existing
// claim record. Returns redis.Nil if the record does not exist; the record is
// never created by this call.
func (c *Client) SetClaimTxHash(ctx context.Context, namespace, address, txHash string) error {
	key := ClaimRecordKey(c.campaign, namespace, address)

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check claim record existence: %w", err)
	}
	if exists == 0 {
		return redis.Nil
	}

	if err := c.rdb.HSet(ctx, key, "tx_hash", txHash).Err(); err != nil {
		return fmt.Errorf("failed to set tx hash: %w", err)
	}

	return nil
}

// DeleteClaimRecord removes a claim record. Only used to roll back a record
// whose index append failed; a fully indexed record is never deleted.
func (c *Client) DeleteClaimRecord(ctx context.Context, namespace, address string) error {
	key := ClaimRecordKey(c.campaign, namespace, address)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete claim record: %w", err)
	}
	return nil
}

// AppendClaimIndex appends an address to the ordered claim index of a namespace.
func (c *Client) AppendClaimIndex(ctx context.Context, namespace, address string) error {
	key := ClaimIndexKey(c.campaign, namespace)
	if err := c.rdb.RPush(ctx, key, address).Err(); err != nil {
		return fmt.Errorf("failed to append to claim index: %w", err)
	}
	return nil
}

// ClaimIndex returns all claimed addresses of a namespace in claim order.
func (c *Client) ClaimIndex(ctx context.Context, namespace string) ([]string, error) {
	key := ClaimIndexKey(c.campaign, namespace)
	addrs, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read claim index: %w", err)
	}
	return addrs, nil
}

// ClaimCount returns the cardinality of the claim index of a namespace.
func (c *Client) ClaimCount(ctx context.Context, namespace string) (int64, error) {
	key := ClaimIndexKey(c.campaign, namespace)
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return n, nil
}

// PublishClaimEvent publishes a claim event to the campaign claim-events
// channel. Delivery is at-most-once (Redis Pub/Sub).
func (c *Client) PublishClaimEvent(ctx context.Context, event *ClaimEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal claim event: %w", err)
	}

	channel := ClaimEventsChannel(c.campaign)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish claim event: %w", err)
	}

	return nil
}

// ---- Referral operations ----

// SetReferrerNX sets an address's referrer only if it is unset (first write
// wins). Returns true if this call set the edge.
func (c *Client) SetReferrerNX(ctx context.Context, referral, referrer string) (bool, error) {
	key := ReferrerKey(c.campaign, referral)
	set, err := c.rdb.SetNX(ctx, key, referrer, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	return set, nil
}

// GetReferrer returns an address's referrer.
// Returns ("", redis.Nil) if the address has no referrer.
func (c *Client) GetReferrer(ctx context.Context, address string) (string, error) {
	key := ReferrerKey(c.campaign, address)
	referrer, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read referrer: %w", err)
	}
	return referrer, nil
}

// ClearReferrer removes an address's referrer link. Only used to roll back an
// edge that post-write verification found cyclic.
func (c *Client) ClearReferrer(ctx context.Context, referral string) error {
	key := ReferrerKey(c.campaign, referral)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear referrer: %w", err)
	}
	return nil
}

// AddReferral adds an address to a referrer's direct-referral set.
func (c *Client) AddReferral(ctx context.Context, referrer, referral string) error {
	key := ReferralSetKey(c.campaign, referrer)
	if err := c.rdb.SAdd(ctx, key, referral).Err(); err != nil {
		return fmt.Errorf("failed to add referral: %w", err)
	}
	return nil
}

// GetReferrals returns the direct referrals of an address.
// Returns an empty slice if the address has none (not an error).
func (c *Client) GetReferrals(ctx context.Context, referrer string) ([]string, error) {
	key := ReferralSetKey(c.campaign, referrer)
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read referrals: %w", err)
	}
	return members, nil
}

// ---- Ledger operations ----

// AppendEntry appends a ledger entry to the account's history and updates
// the cached balance in a single transaction. Both happen or neither: the
// balance key is WATCHed, the new value is computed from the current one, and
// the append plus the balance write are committed with MULTI/EXEC. Contended
// accounts retry up to maxTxRetries times.
func (c *Client) AppendEntry(ctx context.Context, entry *LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	entryJSON, err := MarshalLedgerEntry(entry)
	if err != nil {
		return err
	}

	balanceKey := BalanceKey(c.campaign, entry.Account)
	ledgerKey := LedgerKey(c.campaign, entry.Account)

	txn := func(tx *redis.Tx) error {
		balance, err := readBalance(ctx, tx, balanceKey)
		if err != nil {
			return err
		}

		newBalance := balance.Add(entry.Delta())

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, ledgerKey, entryJSON)
			pipe.Set(ctx, balanceKey, newBalance.String(), 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := c.rdb.Watch(ctx, txn, balanceKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return fmt.Errorf("failed to append ledger entry: account %s too contended after %d attempts", entry.Account, maxTxRetries)
}

// GetBalance returns the cached balance of an account. An account with no
// history has a zero balance (not an error).
func (c *Client) GetBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	key := BalanceKey(c.campaign, account)
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance value %q: %w", raw, err)
	}
	return balance, nil
}

// GetEntries returns the full entry history of an account in append order.
func (c *Client) GetEntries(ctx context.Context, account string) ([]*LedgerEntry, error) {
	key := LedgerKey(c.campaign, account)
	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger history: %w", err)
	}

	entries := make([]*LedgerEntry, 0, len(raw))
	for _, doc := range raw {
		entry, err := UnmarshalLedgerEntry([]byte(doc))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecomputeBalance recomputes the cached balance of an account from its full
// history and overwrites the cache. Returns the old and new balances so
// callers can report drift. The history and balance keys are WATCHed so that
// a concurrent AppendEntry invalidates the recomputation instead of being
// overwritten by a stale sum.
func (c *Client) RecomputeBalance(ctx context.Context, account string) (old, recomputed decimal.Decimal, err error) {
	balanceKey := BalanceKey(c.campaign, account)
	ledgerKey := LedgerKey(c.campaign, account)

	txn := func(tx *redis.Tx) error {
		old, err = readBalance(ctx, tx, balanceKey)
		if err != nil {
			return err
		}

		raw, err := tx.LRange(ctx, ledgerKey, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to read ledger history: %w", err)
		}

		recomputed = decimal.Zero
		for _, doc := range raw {
			entry, err := UnmarshalLedgerEntry([]byte(doc))
			if err != nil {
				return err
			}
			recomputed = recomputed.Add(entry.Delta())
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey, recomputed.String(), 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = c.rdb.Watch(ctx, txn, balanceKey, ledgerKey)
		if err == nil {
			return old, recomputed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to recompute balance: %w", err)
	}

	return decimal.Zero, decimal.Zero, fmt.Errorf("failed to recompute balance: account %s too contended after %d attempts", account, maxTxRetries)
}

// readBalance reads a balance value inside a WATCH transaction, treating a
// missing key as zero.
func readBalance(ctx context.Context, tx *redis.Tx, key string) (decimal.Decimal, error) {
	raw, err := tx.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance value %q: %w", raw, err)
	}
	return balance, nil
}

// ---- Transfer code and migration operations ----

// PutTransferCode stores a transfer-code snapshot and indexes it by the
// fingerprint it was issued under.
func (c *Client) PutTransferCode(ctx context.Context, code string, snapshot *AccountSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("invalid account snapshot: %w", err)
	}

	key := TransferCodeKey(c.campaign, code)
	if err := c.rdb.HSet(ctx, key, SnapshotToHash(snapshot)).Err(); err != nil {
		return fmt.Errorf("failed to write transfer code: %w", err)
	}

	return c.IndexTransferCode(ctx, snapshot.Fingerprint, code)
}

// GetTransferCode retrieves the snapshot a transfer code resolves to.
// Returns (nil, redis.Nil) if the code doesn't exist.
func (c *Client) GetTransferCode(ctx context.Context, code string) (*AccountSnapshot, error) {
	key := TransferCodeKey(c.campaign, code)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer code from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToSnapshot(hashData), nil
}

// ConsumeTransferCode marks a code as consumed by a fingerprint using HSETNX,
// so exactly one fingerprint ever consumes it. Returns (true, "") if this
// call consumed the code, (false, consumer) if it was already consumed.
func (c *Client) ConsumeTransferCode(ctx context.Context, code, fingerprint string, atMs int64) (bool, string, error) {
	key := TransferCodeKey(c.campaign, code)

	won, err := c.rdb.HSetNX(ctx, key, "consumed_by", fingerprint).Result()
	if err != nil {
		return false, "", fmt.Errorf("failed to consume transfer code: %w", err)
	}

	if !won {
		consumer, err := c.rdb.HGet(ctx, key, "consumed_by").Result()
		if err != nil {
			return false, "", fmt.Errorf("failed to read transfer code consumer: %w", err)
		}
		return false, consumer, nil
	}

	if err := c.rdb.HSet(ctx, key, "consumed_at_ms", atMs).Err(); err != nil {
		return false, "", fmt.Errorf("failed to stamp transfer code consumption: %w", err)
	}
	return true, "", nil
}

// IndexTransferCode writes the fingerprint->code secondary index entry.
func (c *Client) IndexTransferCode(ctx context.Context, fingerprint, code string) error {
	key := TransferCodeByFingerprintKey(c.campaign, fingerprint)
	if err := c.rdb.Set(ctx, key, code, 0).Err(); err != nil {
		return fmt.Errorf("failed to index transfer code: %w", err)
	}
	return nil
}

// TransferCodeByFingerprint resolves a fingerprint to its issued code via the
// secondary index. Returns ("", redis.Nil) if no index entry exists.
func (c *Client) TransferCodeByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	key := TransferCodeByFingerprintKey(c.campaign, fingerprint)
	code, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read transfer code index: %w", err)
	}
	return code, nil
}

// PutMigrationRecord writes a migration record keyed by the fingerprint that
// imported the account.
func (c *Client) PutMigrationRecord(ctx context.Context, fingerprint string, record *MigrationRecord) error {
	key := MigrationRecordKey(c.campaign, fingerprint)
	if err := c.rdb.HSet(ctx, key, MigrationRecordToHash(record)).Err(); err != nil {
		return fmt.Errorf("failed to write migration record: %w", err)
	}
	return nil
}

// GetMigrationRecord retrieves the migration record of a fingerprint.
// Returns (nil, redis.Nil) if the fingerprint never imported an account.
func (c *Client) GetMigrationRecord(ctx context.Context, fingerprint string) (*MigrationRecord, error) {
	key := MigrationRecordKey(c.campaign, fingerprint)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read migration record from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToMigrationRecord(hashData), nil
}

// AppendMigrationHistory appends an entry to an original fingerprint's
// migration history and trims it to the newest maxLen entries.
func (c *Client) AppendMigrationHistory(ctx context.Context, fingerprint string, entry []byte, maxLen int64) error {
	key := MigrationHistoryKey(c.campaign, fingerprint)

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, entry)
		pipe.LTrim(ctx, key, -maxLen, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append migration history: %w", err)
	}
	return nil
}

// GetMigrationHistory returns the retained migration history of an original
// fingerprint, oldest first.
func (c *Client) GetMigrationHistory(ctx context.Context, fingerprint string) ([]string, error) {
	key := MigrationHistoryKey(c.campaign, fingerprint)
	entries, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	return entries, nil
}

// ---- Partner operations ----

// RegisterPartnerID adds a partner ID to the registry set.
// Returns true if the ID was newly added.
func (c *Client) RegisterPartnerID(ctx context.Context, partnerID string) (bool, error) {
	key := PartnerSetKey(c.campaign)
	added, err := c.rdb.SAdd(ctx, key, partnerID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to register partner ID: %w", err)
	}
	return added > 0, nil
}

// PutPartner writes a partner record.
// Validates the record before writing.
func (c *Client) PutPartner(ctx context.Context, partner *PartnerRecord) error {
	if err := partner.Validate(); err != nil {
		return fmt.Errorf("invalid partner record: %w", err)
	}

	key := PartnerKey(c.campaign, partner.ID)
	if err := c.rdb.HSet(ctx, key, PartnerToHash(partner)).Err(); err != nil {
		return fmt.Errorf("failed to write partner record: %w", err)
	}
	return nil
}

// GetPartner retrieves a partner record by ID.
// Returns (nil, redis.Nil) if the partner doesn't exist.
func (c *Client) GetPartner(ctx context.Context, partnerID string) (*PartnerRecord, error) {
	key := PartnerKey(c.campaign, partnerID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read partner record from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	return HashToPartner(hashData)
}

// PartnerIDs returns all registered partner IDs (unordered).
func (c *Client) PartnerIDs(ctx context.Context) ([]string, error) {
	key := PartnerSetKey(c.campaign)
	ids, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list partner IDs: %w", err)
	}
	return ids, nil
}

// ---- Administrative scans ----

// ScanKeys enumerates keys matching a pattern with cursor-based SCAN.
// Acceptable only for low-cardinality or offline administrative operations,
// never on hot paths.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// HashField reads one field of a hash key. Returns ("", redis.Nil) if the
// key or field doesn't exist. Used by the migration fallback scan.
func (c *Client) HashField(ctx context.Context, key, field string) (string, error) {
	value, err := c.rdb.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to read hash field: %w", err)
	}
	return value, nil
}

// ---- Claim event subscription ----

// ClaimSubscription represents an active Pub/Sub subscription to claim events.
// Caller must call Close() when done to clean up resources.
type ClaimSubscription struct {
	events <-chan *ClaimEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of claim events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *ClaimSubscription) Events() <-chan *ClaimEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *ClaimSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *ClaimSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeClaimEvents subscribes to claim events for this campaign.
// Returns a ClaimSubscription that delivers full claim event objects.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeClaimEvents(ctx context.Context) (*ClaimSubscription, error) {
	channel := ClaimEventsChannel(c.campaign)
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *ClaimEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event ClaimEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal claim event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &ClaimSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if a Get* operation returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
