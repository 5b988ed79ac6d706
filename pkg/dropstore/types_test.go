package dropstore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClaimRecordValidate(t *testing.T) {
	valid := func() *ClaimRecord {
		return &ClaimRecord{
			OwnerAddress: "0xAAA",
			TokenID:      1,
			Namespace:    PrimaryNamespace,
			Referrer:     "0xBBB",
		}
	}

	t.Run("valid record passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("empty owner fails", func(t *testing.T) {
		r := valid()
		r.OwnerAddress = ""
		assert.Error(t, r.Validate())
	})

	t.Run("token ID below 1 fails", func(t *testing.T) {
		r := valid()
		r.TokenID = 0
		assert.Error(t, r.Validate())
	})

	t.Run("empty namespace fails", func(t *testing.T) {
		r := valid()
		r.Namespace = ""
		assert.Error(t, r.Validate())
	})

	t.Run("self referral fails", func(t *testing.T) {
		r := valid()
		r.Referrer = r.OwnerAddress
		assert.Error(t, r.Validate())
	})
}

func TestLedgerEntryValidate(t *testing.T) {
	valid := func() *LedgerEntry {
		return &LedgerEntry{
			Account: "0xAAA",
			Amount:  decimal.NewFromInt(5),
			Kind:    KindIncome,
			Reason:  "direct-subsidy",
		}
	}

	t.Run("valid entry passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		e := valid()
		e.Kind = EntryKind("refund")
		assert.Error(t, e.Validate())
	})

	t.Run("negative amount fails", func(t *testing.T) {
		e := valid()
		e.Amount = decimal.NewFromInt(-1)
		assert.Error(t, e.Validate())
	})

	t.Run("empty reason fails", func(t *testing.T) {
		e := valid()
		e.Reason = ""
		assert.Error(t, e.Validate())
	})
}

func TestLedgerEntryDelta(t *testing.T) {
	income := &LedgerEntry{Amount: decimal.NewFromInt(3), Kind: KindIncome}
	assert.True(t, income.Delta().Equal(decimal.NewFromInt(3)))

	expense := &LedgerEntry{Amount: decimal.NewFromInt(3), Kind: KindExpense}
	assert.True(t, expense.Delta().Equal(decimal.NewFromInt(-3)))
}

func TestPartnerRecordValidate(t *testing.T) {
	t.Run("valid partner passes", func(t *testing.T) {
		p := &PartnerRecord{ID: "acme-labs", DisplayName: "ACME Labs", TotalSupply: 100}
		assert.NoError(t, p.Validate())
	})

	t.Run("uppercase ID fails", func(t *testing.T) {
		p := &PartnerRecord{ID: "ACME", DisplayName: "ACME", TotalSupply: 100}
		assert.Error(t, p.Validate())
	})

	t.Run("leading dash fails", func(t *testing.T) {
		p := &PartnerRecord{ID: "-acme", DisplayName: "ACME", TotalSupply: 100}
		assert.Error(t, p.Validate())
	})

	t.Run("negative supply fails", func(t *testing.T) {
		p := &PartnerRecord{ID: "acme", DisplayName: "ACME", TotalSupply: -1}
		assert.Error(t, p.Validate())
	})
}

func TestDistributionTreeTotalNodes(t *testing.T) {
	tree := &DistributionTreeNode{
		Address: "0xROOT",
		Children: []*DistributionTreeNode{
			{Address: "0xA", Depth: 1},
			{Address: "0xB", Depth: 1, Children: []*DistributionTreeNode{
				{Address: "0xC", Depth: 2},
			}},
		},
	}
	assert.Equal(t, 4, tree.TotalNodes())

	var nilTree *DistributionTreeNode
	assert.Equal(t, 0, nilTree.TotalNodes())
}
