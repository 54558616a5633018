package economy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/guildnet/guildpoints/internal/domain"
	"github.com/guildnet/guildpoints/internal/infra/observability"
	"github.com/guildnet/guildpoints/internal/infra/sqlite"
)

// ─── Points Ledger ──────────────────────────────────────────────────────────
// The ledger is the authoritative source of truth: every balance change is
// an immutable, append-only entry, and the materialized accounts.balance
// column is updated in the same transaction as the entry insert. The two
// can therefore never diverge.

// Credit appends a positive entry and raises the balance. Amount must be
// positive. Manual credits are admin-only; task rewards and purchase debits
// go through their own paths.
func (s *Service) Credit(ctx context.Context, accountID string, amount int64, reason domain.EntryReason, refID, callerID string) (*domain.LedgerEntry, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive: %w", domain.ErrPrecondition)
	}
	if _, err := s.account(ctx, accountID); err != nil {
		return nil, err
	}

	entry := domain.LedgerEntry{
		ID:          newID(),
		AccountID:   accountID,
		Amount:      amount,
		Reason:      reason,
		Description: refID,
		CreatedAt:   s.now(),
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := sqlite.CreditBalanceTx(tx, accountID, amount); err != nil {
			return storageErr("credit", err)
		}
		return sqlite.InsertLedgerEntryTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	observability.LedgerEntries.WithLabelValues(string(reason)).Inc()
	observability.PointsIssued.WithLabelValues(string(reason)).Add(float64(amount))
	log.Printf("[engine] credit %d pts to %s (%s) by %s", amount, accountID, reason, callerID)
	return &entry, nil
}

// Debit appends a negative entry and lowers the balance. Amount must be
// positive. The balance check and the write are one guarded statement, so
// no interleaving of concurrent debits can drive the balance negative.
func (s *Service) Debit(ctx context.Context, accountID string, amount int64, reason domain.EntryReason, refID, callerID string) (*domain.LedgerEntry, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive: %w", domain.ErrPrecondition)
	}
	if _, err := s.account(ctx, accountID); err != nil {
		return nil, err
	}

	entry := domain.LedgerEntry{
		ID:          newID(),
		AccountID:   accountID,
		Amount:      -amount,
		Reason:      reason,
		Description: refID,
		CreatedAt:   s.now(),
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.DebitBalanceTx(tx, accountID, amount)
		if err != nil {
			return storageErr("debit", err)
		}
		if !ok {
			observability.DebitsRejected.Inc()
			return fmt.Errorf("debit %d from %s: %w", amount, accountID, domain.ErrInsufficientFunds)
		}
		return sqlite.InsertLedgerEntryTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	observability.LedgerEntries.WithLabelValues(string(reason)).Inc()
	log.Printf("[engine] debit %d pts from %s (%s) by %s", amount, accountID, reason, callerID)
	return &entry, nil
}

// BalanceOf returns the account's committed balance.
func (s *Service) BalanceOf(ctx context.Context, accountID string) (int64, error) {
	bal, err := s.db.BalanceOf(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	if err != nil {
		return 0, storageErr("balance", err)
	}
	return bal, nil
}
