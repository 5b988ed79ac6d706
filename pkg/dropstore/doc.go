// Package dropstore provides type-safe Go definitions and Redis schema patterns
// for the warren drop board.
//
// # Overview
//
// The drop board is the shared state system backing a warren campaign: claim
// records, referral edges, the financial ledger, transfer codes and partner
// records all live in Redis under a campaign-scoped key schema. The store is
// the single source of truth; warren treats it as durable but only eventually
// reconciled with on-chain state.
//
// # Core concepts
//
// Claim records are the permanent history of who owns which token in which
// collection namespace. They are created exactly once per (namespace, address)
// pair, are immutable apart from the settlement tx hash, and are never deleted.
//
// The ledger is an append-only list of income/expense entries per account with
// a cached balance kept consistent by WATCH/MULTI transactions. Reconciliation
// recomputes the cache from history when the two drift apart.
//
// Referral edges form a forest: each address has at most one referrer, set
// exactly once, and any number of referrals.
//
// # Concurrency
//
// Requests are handled by independent workers with no in-process coordination,
// so every cross-request invariant is enforced by atomic store operations:
// SETNX reservations for at-most-once claims and first-write-wins referrer
// edges, INCR for token allocation, and per-account WATCH transactions for
// balance updates. No global lock exists or is needed.
//
// # Not found semantics
//
// Get operations return redis.Nil when the entity does not exist. Use
// IsNotFound to distinguish a missing record from a store failure; the two
// are never conflated.
package dropstore
