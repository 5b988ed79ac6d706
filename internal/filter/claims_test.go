package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warrenhq/warren/pkg/dropstore"
)

func record(owner, referrer, txHash string, claimedAtMs int64) *dropstore.ClaimRecord {
	return &dropstore.ClaimRecord{
		OwnerAddress: owner,
		TokenID:      1,
		Namespace:    dropstore.PrimaryNamespace,
		Referrer:     referrer,
		TxHash:       txHash,
		ClaimedAtMs:  claimedAtMs,
	}
}

func TestMatches(t *testing.T) {
	settled := record("0xAAA", "0xBBB", "0xFEED", 2000)
	unsettled := record("0xCCC", "", "", 5000)

	t.Run("empty criteria match everything", func(t *testing.T) {
		c := &Criteria{}
		assert.True(t, c.Matches(settled))
		assert.True(t, c.Matches(unsettled))
	})

	t.Run("since filter", func(t *testing.T) {
		c := &Criteria{SinceTimestampMs: 3000}
		assert.False(t, c.Matches(settled))
		assert.True(t, c.Matches(unsettled))
	})

	t.Run("until filter", func(t *testing.T) {
		c := &Criteria{UntilTimestampMs: 3000}
		assert.True(t, c.Matches(settled))
		assert.False(t, c.Matches(unsettled))
	})

	t.Run("referrer filter", func(t *testing.T) {
		c := &Criteria{Referrer: "0xBBB"}
		assert.True(t, c.Matches(settled))
		assert.False(t, c.Matches(unsettled))
	})

	t.Run("address glob filter", func(t *testing.T) {
		c := &Criteria{AddressGlob: "0xA*"}
		assert.True(t, c.Matches(settled))
		assert.False(t, c.Matches(unsettled))
	})

	t.Run("settled filter", func(t *testing.T) {
		yes, no := true, false
		assert.True(t, (&Criteria{Settled: &yes}).Matches(settled))
		assert.False(t, (&Criteria{Settled: &yes}).Matches(unsettled))
		assert.True(t, (&Criteria{Settled: &no}).Matches(unsettled))
		assert.False(t, (&Criteria{Settled: &no}).Matches(settled))
	})

	t.Run("criteria are ANDed", func(t *testing.T) {
		c := &Criteria{SinceTimestampMs: 1000, Referrer: "0xBBB"}
		assert.True(t, c.Matches(settled))

		c.Referrer = "0xZZZ"
		assert.False(t, c.Matches(settled))
	})
}

func TestApply(t *testing.T) {
	records := []*dropstore.ClaimRecord{
		record("0xAAA", "0xBBB", "", 1000),
		record("0xCCC", "0xBBB", "", 2000),
		record("0xDDD", "", "", 3000),
	}

	c := &Criteria{Referrer: "0xBBB"}
	matched := c.Apply(records)

	assert.Len(t, matched, 2)
	assert.Equal(t, "0xAAA", matched[0].OwnerAddress)
	assert.Equal(t, "0xCCC", matched[1].OwnerAddress)
}
