package dropstore

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// PrimaryNamespace is the collection namespace of the campaign's own drop.
// Partner collections get their own namespace via PartnerNamespace.
const PrimaryNamespace = "primary"

// PartnerNamespace returns the claim namespace for a partner collection.
// Claims, token IDs and totals inside it are fully independent of the
// primary namespace.
func PartnerNamespace(partnerID string) string {
	return fmt.Sprintf("partner:%s", partnerID)
}

// ClaimRecord is the permanent record of one address claiming one token in a
// collection namespace. Records are immutable once written and never deleted;
// the only field that may be filled in later is TxHash, reported by the
// external settlement collaborator after minting.
type ClaimRecord struct {
	OwnerAddress string            `json:"owner_address"`  // Claiming wallet address
	TokenID      int64             `json:"token_id"`       // Monotonic per-namespace token identifier (starts at 1)
	Namespace    string            `json:"namespace"`      // Collection namespace the claim belongs to
	Referrer     string            `json:"referrer"`       // Referring address supplied at claim time, if any
	TxHash       string            `json:"tx_hash"`        // Settlement transaction hash, filled in after minting
	ClaimedAtMs  int64             `json:"claimed_at_ms"`  // Unix timestamp in milliseconds when the claim was recorded
	Metadata     map[string]string `json:"metadata"`       // Caller-supplied claim metadata
}

// ClaimEvent is published on the campaign claim-events channel after a claim
// record is durably written.
type ClaimEvent struct {
	ID           string `json:"id"` // UUID of this event
	Namespace    string `json:"namespace"`
	OwnerAddress string `json:"owner_address"`
	TokenID      int64  `json:"token_id"`
	Referrer     string `json:"referrer,omitempty"`
	ClaimedAtMs  int64  `json:"claimed_at_ms"`
}

// EntryKind classifies a ledger entry as money in or money out of an account.
type EntryKind string

const (
	// KindIncome increases the account balance
	KindIncome EntryKind = "income"

	// KindExpense decreases the account balance
	KindExpense EntryKind = "expense"
)

// LedgerEntry is one immutable income or expense record attributed to an
// account. The account's balance is the running sum of the signed deltas of
// all its entries; a cached balance value exists alongside the history and is
// kept consistent with it by AppendEntry / RecomputeBalance.
type LedgerEntry struct {
	Account      string          `json:"account"`
	Amount       decimal.Decimal `json:"amount"` // Always positive; Kind carries the sign
	Kind         EntryKind       `json:"kind"`
	Reason       string          `json:"reason"`       // e.g. "direct-subsidy", "referral-level-1"
	Counterparty string          `json:"counterparty"` // Address that caused this entry, if any
	TimestampMs  int64           `json:"timestamp_ms"`
}

// Delta returns the signed balance contribution of the entry.
func (e *LedgerEntry) Delta() decimal.Decimal {
	if e.Kind == KindExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// AccountSnapshot is the identity payload a transfer code resolves to.
type AccountSnapshot struct {
	UserID      string `json:"user_id"`
	Fingerprint string `json:"fingerprint"` // Device fingerprint the account was issued under
	Username    string `json:"username"`
	EVMAddress  string `json:"evm_address"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// MigrationRecord marks that a device fingerprint took over an existing
// account identity. It is keyed by the new fingerprint and points back at the
// original one.
type MigrationRecord struct {
	OriginalFingerprint string `json:"original_fingerprint"`
	MigratedFrom        string `json:"migrated_from"` // Username of the account at migration time
	MigratedAtMs        int64  `json:"migrated_at_ms"`
}

// PartnerRecord is the metadata for one partner collection. Claim accounting
// for a partner is scoped by PartnerNamespace(ID).
type PartnerRecord struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	TotalSupply     int64  `json:"total_supply"`
	ContractAddress string `json:"contract_address"` // Empty until deployed
	Deployed        bool   `json:"deployed"`
	LogoRef         string `json:"logo_ref"`
}

// DistributionTreeNode is a read-only projection of the referral graph below
// one root address. Depth is the distance from the root (root depth = 0). It
// is rebuilt on every query and never persisted.
type DistributionTreeNode struct {
	Address  string                  `json:"address"`
	Depth    int                     `json:"depth"`
	Children []*DistributionTreeNode `json:"children"`
}

// TotalNodes returns the number of nodes in the tree including the root.
func (n *DistributionTreeNode) TotalNodes() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.TotalNodes()
	}
	return total
}

var partnerIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Validate checks if the ClaimRecord has valid field values.
// Returns an error if any validation fails.
func (r *ClaimRecord) Validate() error {
	if r.OwnerAddress == "" {
		return fmt.Errorf("owner address cannot be empty")
	}

	if r.TokenID < 1 {
		return fmt.Errorf("invalid token ID: must be >= 1, got %d", r.TokenID)
	}

	if r.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}

	if r.OwnerAddress == r.Referrer {
		return fmt.Errorf("owner cannot be its own referrer")
	}

	return nil
}

// Validate checks if the EntryKind is a valid enum value.
func (k EntryKind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return fmt.Errorf("unknown entry kind: %q", k)
	}
}

// Validate checks if the LedgerEntry has valid field values.
func (e *LedgerEntry) Validate() error {
	if e.Account == "" {
		return fmt.Errorf("account cannot be empty")
	}

	if err := e.Kind.Validate(); err != nil {
		return fmt.Errorf("invalid kind: %w", err)
	}

	if e.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative, got %s", e.Amount)
	}

	if e.Reason == "" {
		return fmt.Errorf("reason cannot be empty")
	}

	return nil
}

// Validate checks if the AccountSnapshot has valid field values.
func (s *AccountSnapshot) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if s.Fingerprint == "" {
		return fmt.Errorf("fingerprint cannot be empty")
	}

	return nil
}

// Validate checks if the PartnerRecord has valid field values.
func (p *PartnerRecord) Validate() error {
	if !partnerIDPattern.MatchString(p.ID) {
		return fmt.Errorf("invalid partner ID %q: must be lowercase alphanumeric with dashes", p.ID)
	}

	if p.DisplayName == "" {
		return fmt.Errorf("display name cannot be empty")
	}

	if p.TotalSupply < 0 {
		return fmt.Errorf("total supply cannot be negative, got %d", p.TotalSupply)
	}

	return nil
}
