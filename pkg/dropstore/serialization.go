package dropstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Serialization helpers for converting between Go structs and Redis values
//
// Hash-shaped entities (claim records, snapshots, migration records, partner
// records) are stored as Redis hashes with complex fields JSON-encoded into
// single hash fields. Ledger entries live in lists and are stored as whole
// JSON documents, since they are only ever read back in bulk.

// ClaimRecordToHash converts a ClaimRecord to a Redis hash format.
// The metadata map is JSON-encoded into a single field.
func ClaimRecordToHash(r *ClaimRecord) (map[string]interface{}, error) {
	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	hash := map[string]interface{}{
		"owner_address": r.OwnerAddress,
		"token_id":      r.TokenID,
		"namespace":     r.Namespace,
		"referrer":      r.Referrer,
		"tx_hash":       r.TxHash,
		"claimed_at_ms": r.ClaimedAtMs,
		"metadata":      string(metadataJSON),
	}

	return hash, nil
}

// HashToClaimRecord converts a Redis hash to a ClaimRecord.
func HashToClaimRecord(hash map[string]string) (*ClaimRecord, error) {
	tokenID, err := strconv.ParseInt(hash["token_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token_id field: %w", err)
	}

	claimedAtMs, _ := strconv.ParseInt(hash["claimed_at_ms"], 10, 64)

	var metadata map[string]string
	if metadataJSON := hash["metadata"]; metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	record := &ClaimRecord{
		OwnerAddress: hash["owner_address"],
		TokenID:      tokenID,
		Namespace:    hash["namespace"],
		Referrer:     hash["referrer"],
		TxHash:       hash["tx_hash"],
		ClaimedAtMs:  claimedAtMs,
		Metadata:     metadata,
	}

	return record, nil
}

// MarshalLedgerEntry encodes a LedgerEntry as the JSON document stored as one
// list member of the account's history.
func MarshalLedgerEntry(e *LedgerEntry) ([]byte, error) {
	doc := map[string]interface{}{
		"account":      e.Account,
		"amount":       e.Amount.String(),
		"kind":         string(e.Kind),
		"reason":       e.Reason,
		"counterparty": e.Counterparty,
		"timestamp_ms": e.TimestampMs,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	return data, nil
}

// UnmarshalLedgerEntry decodes one history list member back to a LedgerEntry.
func UnmarshalLedgerEntry(data []byte) (*LedgerEntry, error) {
	var doc struct {
		Account      string `json:"account"`
		Amount       string `json:"amount"`
		Kind         string `json:"kind"`
		Reason       string `json:"reason"`
		Counterparty string `json:"counterparty"`
		TimestampMs  int64  `json:"timestamp_ms"`
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
	}

	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount field %q: %w", doc.Amount, err)
	}

	entry := &LedgerEntry{
		Account:      doc.Account,
		Amount:       amount,
		Kind:         EntryKind(doc.Kind),
		Reason:       doc.Reason,
		Counterparty: doc.Counterparty,
		TimestampMs:  doc.TimestampMs,
	}

	return entry, nil
}

// SnapshotToHash converts an AccountSnapshot to a Redis hash format.
func SnapshotToHash(s *AccountSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"user_id":       s.UserID,
		"fingerprint":   s.Fingerprint,
		"username":      s.Username,
		"evm_address":   s.EVMAddress,
		"created_at_ms": s.CreatedAtMs,
	}
}

// HashToSnapshot converts a Redis hash to an AccountSnapshot.
func HashToSnapshot(hash map[string]string) *AccountSnapshot {
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &AccountSnapshot{
		UserID:      hash["user_id"],
		Fingerprint: hash["fingerprint"],
		Username:    hash["username"],
		EVMAddress:  hash["evm_address"],
		CreatedAtMs: createdAtMs,
	}
}

// MigrationRecordToHash converts a MigrationRecord to a Redis hash format.
func MigrationRecordToHash(r *MigrationRecord) map[string]interface{} {
	return map[string]interface{}{
		"original_fingerprint": r.OriginalFingerprint,
		"migrated_from":        r.MigratedFrom,
		"migrated_at_ms":       r.MigratedAtMs,
	}
}

// HashToMigrationRecord converts a Redis hash to a MigrationRecord.
func HashToMigrationRecord(hash map[string]string) *MigrationRecord {
	migratedAtMs, _ := strconv.ParseInt(hash["migrated_at_ms"], 10, 64)

	return &MigrationRecord{
		OriginalFingerprint: hash["original_fingerprint"],
		MigratedFrom:        hash["migrated_from"],
		MigratedAtMs:        migratedAtMs,
	}
}

// PartnerToHash converts a PartnerRecord to a Redis hash format.
func PartnerToHash(p *PartnerRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":               p.ID,
		"display_name":     p.DisplayName,
		"total_supply":     p.TotalSupply,
		"contract_address": p.ContractAddress,
		"deployed":         p.Deployed,
		"logo_ref":         p.LogoRef,
	}
}

// HashToPartner converts a Redis hash to a PartnerRecord.
func HashToPartner(hash map[string]string) (*PartnerRecord, error) {
	totalSupply, err := strconv.ParseInt(hash["total_supply"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid total_supply field: %w", err)
	}

	deployed, _ := strconv.ParseBool(hash["deployed"])

	partner := &PartnerRecord{
		ID:              hash["id"],
		DisplayName:     hash["display_name"],
		TotalSupply:     totalSupply,
		ContractAddress: hash["contract_address"],
		Deployed:        deployed,
		LogoRef:         hash["logo_ref"],
	}

	return partner, nil
}
