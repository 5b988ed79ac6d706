// Package migration exchanges one-time transfer codes for continuity of a
// user identity across device fingerprints.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	// ErrInvalidCode is returned for any string that is not a 64-character
	// lowercase hexadecimal transfer code.
	ErrInvalidCode = errors.New("malformed transfer code")

	// ErrCodeConsumed is returned when a code already imported by one
	// fingerprint is presented by a different one. Re-import by the same
	// fingerprint is idempotent, not an error.
	ErrCodeConsumed = errors.New("transfer code already consumed")
)

// codePattern is the fixed transfer-code format: 64 lowercase hex characters.
var codePattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// defaultHistoryCap bounds the migration history retained per original
// fingerprint.
const defaultHistoryCap = 10

// Manager implements account migration over the drop store.
type Manager struct {
	store      *dropstore.Client
	historyCap int64
}

// HistoryEntry is one retained migration of an original fingerprint.
type HistoryEntry struct {
	MigratedTo   string `json:"migrated_to"` // New fingerprint
	MigratedAtMs int64  `json:"migrated_at_ms"`
}

// Status is the migration state of a fingerprint.
type Status struct {
	HasMigration bool
	Record       *dropstore.MigrationRecord
	Account      *dropstore.AccountSnapshot // Re-resolved original identity; nil if unresolvable
}

// NewManager creates a migration manager. historyCap <= 0 selects the default.
func NewManager(store *dropstore.Client, historyCap int) *Manager {
	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	return &Manager{store: store, historyCap: int64(historyCap)}
}

// ValidCode reports whether a string matches the transfer-code format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// IssueCode creates a transfer code for the snapshot, stores it, and indexes
// it by the snapshot's fingerprint. The code is two UUIDs' worth of hex, which
// is as unguessable as the rest of warren's identifiers.
func (m *Manager) IssueCode(ctx context.Context, snapshot *dropstore.AccountSnapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", fmt.Errorf("invalid account snapshot: %w", err)
	}
	if snapshot.CreatedAtMs == 0 {
		snapshot.CreatedAtMs = time.Now().UnixMilli()
	}

	code := newCode()
	if err := m.store.PutTransferCode(ctx, code, snapshot); err != nil {
		return "", err
	}
	return code, nil
}

// newCode builds a 64-character lowercase hex code from two UUIDs.
func newCode() string {
	strip := func(id uuid.UUID) string {
		return strings.ReplaceAll(id.String(), "-", "")
	}
	return strip(uuid.New()) + strip(uuid.New())
}

// Lookup resolves a transfer code without consuming it.
// Returns ErrInvalidCode for malformed codes and (nil, redis.Nil) for unknown
// ones; use dropstore.IsNotFound for the latter.
func (m *Manager) Lookup(ctx context.Context, code string) (*dropstore.AccountSnapshot, error) {
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}

	snapshot, err := m.store.GetTransferCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Keep the fingerprint index warm for codes issued before it existed.
	if err := m.store.IndexTransferCode(ctx, snapshot.Fingerprint, code); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Import consumes a transfer code for a new device fingerprint: it writes a
// migration record keyed by the new fingerprint pointing at the original and
// appends a bounded history entry under the original fingerprint.
//
// Exactly one fingerprint ever consumes a code (HSETNX). Calling Import again
// with the same code and the same fingerprint is idempotent and returns the
// snapshot; a different fingerprint gets ErrCodeConsumed.
func (m *Manager) Import(ctx context.Context, code, newFingerprint string) (*dropstore.AccountSnapshot, error) {
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}
	if newFingerprint == "" {
		return nil, fmt.Errorf("new fingerprint cannot be empty")
	}

	snapshot, err := m.store.GetTransferCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()

	won, consumer, err := m.store.ConsumeTransferCode(ctx, code, newFingerprint, now)
	if err != nil {
		return nil, err
	}
	if !won {
		if consumer != newFingerprint {
			return nil, fmt.Errorf("%w: consumed by another device", ErrCodeConsumed)
		}
		// The consuming device importing again. Usually a no-op, but a
		// first import that died after consuming the code and before the
		// record write finishes here instead of staying half-done forever.
		_, err := m.store.GetMigrationRecord(ctx, newFingerprint)
		if err == nil {
			return snapshot, nil
		}
		if !dropstore.IsNotFound(err) {
			return nil, err
		}
	}

	record := &dropstore.MigrationRecord{
		OriginalFingerprint: snapshot.Fingerprint,
		MigratedFrom:        snapshot.Username,
		MigratedAtMs:        now,
	}
	if err := m.store.PutMigrationRecord(ctx, newFingerprint, record); err != nil {
		return nil, err
	}

	historyJSON, err := json.Marshal(HistoryEntry{MigratedTo: newFingerprint, MigratedAtMs: now})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}
	if err := m.store.AppendMigrationHistory(ctx, snapshot.Fingerprint, historyJSON, m.historyCap); err != nil {
		return nil, err
	}

	if err := m.store.IndexTransferCode(ctx, snapshot.Fingerprint, code); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// GetStatus reports whether a fingerprint imported an account and, if so,
// re-resolves the original account's full identity. Resolution goes through
// the fingerprint->code index first and falls back to a pattern scan over
// transfer-code keys only for codes issued before the index existed.
func (m *Manager) GetStatus(ctx context.Context, fingerprint string) (*Status, error) {
	record, err := m.store.GetMigrationRecord(ctx, fingerprint)
	if err != nil {
		if dropstore.IsNotFound(err) {
			return &Status{HasMigration: false}, nil
		}
		return nil, err
	}

	account, err := m.resolveAccount(ctx, record.OriginalFingerprint)
	if err != nil {
		return nil, err
	}

	return &Status{HasMigration: true, Record: record, Account: account}, nil
}

// resolveAccount finds the snapshot issued under a fingerprint.
// Returns nil (no error) when no transfer code for it exists anymore.
func (m *Manager) resolveAccount(ctx context.Context, fingerprint string) (*dropstore.AccountSnapshot, error) {
	code, err := m.store.TransferCodeByFingerprint(ctx, fingerprint)
	if err == nil {
		snapshot, err := m.store.GetTransferCode(ctx, code)
		if err == nil {
			return snapshot, nil
		}
		if !dropstore.IsNotFound(err) {
			return nil, err
		}
		// Stale index entry; fall through to the scan.
	} else if !dropstore.IsNotFound(err) {
		return nil, err
	}

	return m.scanForAccount(ctx, fingerprint)
}

// scanForAccount is the offline-grade fallback: enumerate transfer-code keys
// and match on the stored fingerprint field. Re-indexes on a hit.
func (m *Manager) scanForAccount(ctx context.Context, fingerprint string) (*dropstore.AccountSnapshot, error) {
	pattern := dropstore.TransferCodeKeyPattern(m.store.Campaign())
	keys, err := m.store.ScanKeys(ctx, pattern)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		fp, err := m.store.HashField(ctx, key, "fingerprint")
		if err != nil {
			if dropstore.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if fp != fingerprint {
			continue
		}

		code := key[strings.LastIndex(key, ":")+1:]
		snapshot, err := m.store.GetTransferCode(ctx, code)
		if err != nil {
			if dropstore.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		if err := m.store.IndexTransferCode(ctx, fingerprint, code); err != nil {
			return nil, err
		}
		return snapshot, nil
	}

	return nil, nil
}

// History returns the retained migrations of an original fingerprint, oldest
// first, capped at the configured history length.
func (m *Manager) History(ctx context.Context, fingerprint string) ([]HistoryEntry, error) {
	raw, err := m.store.GetMigrationHistory(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(raw))
	for _, doc := range raw {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(doc), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
