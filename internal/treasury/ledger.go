// Package treasury implements the financial ledger: append-only income and
// expense history per account, a cached balance kept atomically consistent
// with it, reconciliation for drift repair, and referral reward fan-out.
package treasury

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warrenhq/warren/pkg/dropstore"
)

// Ledger records financial effects of the campaign. It records intent only;
// actual token transfer is the settlement collaborator's job.
type Ledger struct {
	store *dropstore.Client
	plan  RewardPlan
}

// NewLedger creates a financial ledger using the given reward plan.
func NewLedger(store *dropstore.Client, plan RewardPlan) *Ledger {
	return &Ledger{store: store, plan: plan}
}

// Credit appends an income entry to the account and updates its cached
// balance, both atomically together.
func (t *Ledger) Credit(ctx context.Context, account string, amount decimal.Decimal, reason, counterparty string) error {
	return t.store.AppendEntry(ctx, &dropstore.LedgerEntry{
		Account:      account,
		Amount:       amount,
		Kind:         dropstore.KindIncome,
		Reason:       reason,
		Counterparty: counterparty,
		TimestampMs:  time.Now().UnixMilli(),
	})
}

// Debit appends an expense entry to the account and updates its cached
// balance, both atomically together.
func (t *Ledger) Debit(ctx context.Context, account string, amount decimal.Decimal, reason, counterparty string) error {
	return t.store.AppendEntry(ctx, &dropstore.LedgerEntry{
		Account:      account,
		Amount:       amount,
		Kind:         dropstore.KindExpense,
		Reason:       reason,
		Counterparty: counterparty,
		TimestampMs:  time.Now().UnixMilli(),
	})
}

// Balance returns the cached balance of the account. Reads never trigger
// reconciliation; repair is an explicit administrative operation.
func (t *Ledger) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	return t.store.GetBalance(ctx, account)
}

// Entries returns the account's full entry history in append order.
func (t *Ledger) Entries(ctx context.Context, account string) ([]*dropstore.LedgerEntry, error) {
	return t.store.GetEntries(ctx, account)
}

// Summary aggregates an account's history by kind and reason.
type Summary struct {
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	IncomeBreakdown  map[string]decimal.Decimal // reason -> total
	ExpenseBreakdown map[string]decimal.Decimal // reason -> total
}

// GetSummary derives income/expense totals and per-reason breakdowns from the
// account's entry history.
func (t *Ledger) GetSummary(ctx context.Context, account string) (*Summary, error) {
	entries, err := t.store.GetEntries(ctx, account)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalIncome:      decimal.Zero,
		TotalExpense:     decimal.Zero,
		IncomeBreakdown:  map[string]decimal.Decimal{},
		ExpenseBreakdown: map[string]decimal.Decimal{},
	}

	for _, entry := range entries {
		switch entry.Kind {
		case dropstore.KindIncome:
			summary.TotalIncome = summary.TotalIncome.Add(entry.Amount)
			summary.IncomeBreakdown[entry.Reason] = summary.IncomeBreakdown[entry.Reason].Add(entry.Amount)
		case dropstore.KindExpense:
			summary.TotalExpense = summary.TotalExpense.Add(entry.Amount)
			summary.ExpenseBreakdown[entry.Reason] = summary.ExpenseBreakdown[entry.Reason].Add(entry.Amount)
		}
	}

	return summary, nil
}

// ReconcileReport describes the outcome of one balance reconciliation.
// Repairs are always observable: old and new balances are both reported.
type ReconcileReport struct {
	Account    string
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
	Drifted    bool
}

// Reconcile recomputes the account balance from full history and overwrites
// the cache if it drifted. This is the repair path for the known partial-
// failure window between a claim write and its reward credits, and for any
// unexplained drift (income history present but balance zero).
func (t *Ledger) Reconcile(ctx context.Context, account string) (*ReconcileReport, error) {
	old, recomputed, err := t.store.RecomputeBalance(ctx, account)
	if err != nil {
		return nil, err
	}

	return &ReconcileReport{
		Account:    account,
		OldBalance: old,
		NewBalance: recomputed,
		Drifted:    !old.Equal(recomputed),
	}, nil
}
