package dropstore

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by campaign name so that
// multiple warren campaigns can safely coexist on a single Redis server.
// Collection-scoped keys additionally carry a collection namespace (the
// primary drop or one partner's drop).
//
// Key pattern: warren:{campaign}:{entity}:...
// Channel pattern: warren:{campaign}:{event_type}_events

// ClaimRecordKey returns the Redis key for a claim record hash.
// Pattern: warren:{campaign}:claim:{namespace}:{address}
func ClaimRecordKey(campaign, namespace, address string) string {
	return fmt.Sprintf("warren:%s:claim:%s:%s", campaign, namespace, address)
}

// ClaimMarkerKey returns the Redis key for the claim reservation marker.
// The marker is written with SETNX before the record itself; it is what makes
// two concurrent claims for the same address resolve to a single winner.
// Pattern: warren:{campaign}:claimed:{namespace}:{address}
func ClaimMarkerKey(campaign, namespace, address string) string {
	return fmt.Sprintf("warren:%s:claimed:%s:%s", campaign, namespace, address)
}

// ClaimIndexKey returns the Redis key for the ordered list of claimed
// addresses in a namespace.
// Pattern: warren:{campaign}:claims:{namespace}
func ClaimIndexKey(campaign, namespace string) string {
	return fmt.Sprintf("warren:%s:claims:%s", campaign, namespace)
}

// TokenSeqKey returns the Redis key for the per-namespace token ID counter.
// Pattern: warren:{campaign}:token_seq:{namespace}
func TokenSeqKey(campaign, namespace string) string {
	return fmt.Sprintf("warren:%s:token_seq:%s", campaign, namespace)
}

// ReferrerKey returns the Redis key holding an address's referrer.
// Pattern: warren:{campaign}:referrer:{address}
func ReferrerKey(campaign, address string) string {
	return fmt.Sprintf("warren:%s:referrer:%s", campaign, address)
}

// ReferralSetKey returns the Redis key for the set of direct referrals of an
// address.
// Pattern: warren:{campaign}:referrals:{address}
func ReferralSetKey(campaign, address string) string {
	return fmt.Sprintf("warren:%s:referrals:%s", campaign, address)
}

// BalanceKey returns the Redis key for an account's cached balance.
// Pattern: warren:{campaign}:balance:{account}
func BalanceKey(campaign, account string) string {
	return fmt.Sprintf("warren:%s:balance:%s", campaign, account)
}

// BalanceKeyPattern returns the SCAN pattern matching all balance keys of a
// campaign. Used by administrative sweeps only, never on hot paths.
func BalanceKeyPattern(campaign string) string {
	return fmt.Sprintf("warren:%s:balance:*", campaign)
}

// AccountFromBalanceKey extracts the account from a balance key produced by
// BalanceKey. Returns "" if the key does not match.
func AccountFromBalanceKey(campaign, key string) string {
	prefix := fmt.Sprintf("warren:%s:balance:", campaign)
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return ""
	}
	return key[len(prefix):]
}

// LedgerKey returns the Redis key for an account's append-only entry history.
// Pattern: warren:{campaign}:ledger:{account}
func LedgerKey(campaign, account string) string {
	return fmt.Sprintf("warren:%s:ledger:%s", campaign, account)
}

// TransferCodeKey returns the Redis key for a transfer-code snapshot hash.
// Pattern: warren:{campaign}:transfer:{code}
func TransferCodeKey(campaign, code string) string {
	return fmt.Sprintf("warren:%s:transfer:%s", campaign, code)
}

// TransferCodeKeyPattern returns the SCAN pattern matching all transfer-code
// keys of a campaign. Fallback path for codes issued before the fingerprint
// index existed.
func TransferCodeKeyPattern(campaign string) string {
	return fmt.Sprintf("warren:%s:transfer:*", campaign)
}

// TransferCodeByFingerprintKey returns the Redis key of the fingerprint->code
// secondary index, maintained at issuance/lookup/import time so that
// migration status checks avoid pattern scans.
// Pattern: warren:{campaign}:transfer_by_fp:{fingerprint}
func TransferCodeByFingerprintKey(campaign, fingerprint string) string {
	return fmt.Sprintf("warren:%s:transfer_by_fp:%s", campaign, fingerprint)
}

// MigrationRecordKey returns the Redis key for a migration record hash,
// keyed by the fingerprint that imported the account.
// Pattern: warren:{campaign}:migration:{fingerprint}
func MigrationRecordKey(campaign, fingerprint string) string {
	return fmt.Sprintf("warren:%s:migration:%s", campaign, fingerprint)
}

// MigrationHistoryKey returns the Redis key for the bounded migration history
// list of an original fingerprint.
// Pattern: warren:{campaign}:migration_history:{fingerprint}
func MigrationHistoryKey(campaign, fingerprint string) string {
	return fmt.Sprintf("warren:%s:migration_history:%s", campaign, fingerprint)
}

// PartnerKey returns the Redis key for a partner record hash.
// Pattern: warren:{campaign}:partner:{partner_id}
func PartnerKey(campaign, partnerID string) string {
	return fmt.Sprintf("warren:%s:partner:%s", campaign, partnerID)
}

// PartnerSetKey returns the Redis key for the set of registered partner IDs.
// Pattern: warren:{campaign}:partners
func PartnerSetKey(campaign string) string {
	return fmt.Sprintf("warren:%s:partners", campaign)
}

// ClaimEventsChannel returns the Pub/Sub channel name for claim events.
// Pattern: warren:{campaign}:claim_events
func ClaimEventsChannel(campaign string) string {
	return fmt.Sprintf("warren:%s:claim_events", campaign)
}
