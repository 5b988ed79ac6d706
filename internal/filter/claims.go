// Package filter narrows claim record listings for administrative queries.
package filter

import (
	"path/filepath"

	"github.com/warrenhq/warren/pkg/dropstore"
)

// Criteria defines filtering criteria for claim records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	Referrer         string // Exact match for the record's referrer, empty = no filter
	AddressGlob      string // Glob pattern for the owner address, empty = no filter
	Settled          *bool  // Whether a settlement tx hash is present, nil = no filter
}

// Matches returns true if the record matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(record *dropstore.ClaimRecord) bool {
	if c.SinceTimestampMs > 0 && record.ClaimedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && record.ClaimedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.Referrer != "" && record.Referrer != c.Referrer {
		return false
	}

	if c.AddressGlob != "" {
		matched, err := filepath.Match(c.AddressGlob, record.OwnerAddress)
		if err != nil || !matched {
			return false
		}
	}

	if c.Settled != nil && (record.TxHash != "") != *c.Settled {
		return false
	}

	return true
}

// Apply returns the records matching the criteria, preserving input order.
func (c *Criteria) Apply(records []*dropstore.ClaimRecord) []*dropstore.ClaimRecord {
	matched := make([]*dropstore.ClaimRecord, 0, len(records))
	for _, record := range records {
		if c.Matches(record) {
			matched = append(matched, record)
		}
	}
	return matched
}
