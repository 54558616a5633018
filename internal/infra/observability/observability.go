// Package observability holds the Prometheus collectors for the economy
// engine: payouts, purchases, debits, and concurrency conflicts.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerEntries counts appended ledger entries by reason.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Total ledger entries appended, by reason.",
}, []string{"reason"})

// PointsIssued counts points credited to accounts, by reason.
var PointsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "ledger",
	Name:      "points_issued_total",
	Help:      "Total points credited, by reason.",
}, []string{"reason"})

// DebitsRejected counts debits rejected by the non-negative balance guard.
var DebitsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "ledger",
	Name:      "debits_rejected_total",
	Help:      "Total debits rejected for insufficient funds.",
})

// ─── Task Metrics ───────────────────────────────────────────────────────────

// TaskTransitions counts state-machine transitions by target status.
var TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "tasks",
	Name:      "transitions_total",
	Help:      "Total task transitions, by target status.",
}, []string{"to"})

// RewardPayouts counts completed-task reward payouts.
var RewardPayouts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "tasks",
	Name:      "reward_payouts_total",
	Help:      "Total task reward payouts issued.",
})

// Conflicts counts optimistic-concurrency collisions by operation.
var Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "engine",
	Name:      "conflicts_total",
	Help:      "Total operations aborted by a concurrent racer, by operation.",
}, []string{"op"})

// ─── Purchase Metrics ───────────────────────────────────────────────────────

// Purchases counts purchase attempts by outcome.
// Outcomes: ok, insufficient_points, out_of_stock.
var Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "shop",
	Name:      "purchases_total",
	Help:      "Total purchase attempts, by outcome.",
}, []string{"outcome"})

// PointsSpent counts points spent on successful purchases.
var PointsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "guildpoints",
	Subsystem: "shop",
	Name:      "points_spent_total",
	Help:      "Total points spent on successful purchases.",
})
