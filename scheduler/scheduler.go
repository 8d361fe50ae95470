package scheduler

// Package scheduler owns cycle orchestration for the alert engine:
// - Market-hours / slot gating
// - Effective watchlist resolution
// - One batched market-data fetch per cycle
// - Strategy evaluation, dedup and mail delivery per user
//
// A single scheduling goroutine runs cycles; SingletonMode guarantees no
// cycle overlaps a slow predecessor. The cycle body is in jobs.go.
