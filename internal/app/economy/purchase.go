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

// ─── Purchase Engine ────────────────────────────────────────────────────────

// Sentinels for the in-transaction re-validation. They never escape
// Purchase; both roll the transaction back with no mutation.
var (
	errSoldOut     = errors.New("sold out at write time")
	errNotEnough   = errors.New("balance short at write time")
	errDeactivated = errors.New("product deactivated at write time")
)

const (
	msgPurchased          = "purchase complete"
	msgInsufficientPoints = "insufficient points"
	msgOutOfStock         = "out of stock"
)

// Purchase exchanges the product's price in points for one unit of stock.
// Affordability and stock failures are a negative result, not an error.
// The stock decrement, the points debit, and the ledger entry are a single
// atomic unit: re-validated under the transaction, all-or-nothing.
func (s *Service) Purchase(ctx context.Context, productID, buyerID string) (*domain.PurchaseResult, error) {
	p, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return nil, storageErr("purchase: product", err)
	}
	if p == nil || !p.IsActive {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}

	buyer, err := s.account(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	// First-pass checks on the snapshot. Cheap rejections before opening a
	// transaction; the guards below re-validate both under the write lock.
	if buyer.Balance < p.PricePoints {
		observability.Purchases.WithLabelValues("insufficient_points").Inc()
		return &domain.PurchaseResult{Success: false, Message: msgInsufficientPoints}, nil
	}
	if p.Stock <= 0 {
		observability.Purchases.WithLabelValues("out_of_stock").Inc()
		return &domain.PurchaseResult{Success: false, Message: msgOutOfStock}, nil
	}

	now := s.now()
	entry := domain.LedgerEntry{
		ID:          newID(),
		AccountID:   buyerID,
		Amount:      -p.PricePoints,
		Reason:      domain.ReasonPurchaseDebit,
		ProductID:   productID,
		Description: fmt.Sprintf("purchase: %s", p.Name),
		CreatedAt:   now,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.DecrementStockTx(tx, productID)
		if err != nil {
			return storageErr("purchase: stock", err)
		}
		if !ok {
			// Either a racer took the last unit or an admin deactivated the
			// product since our read. Distinguish for the caller's message.
			cur, err := sqlite.GetProductTx(tx, productID)
			if err != nil {
				return storageErr("purchase: recheck", err)
			}
			if cur != nil && !cur.IsActive {
				return errDeactivated
			}
			return errSoldOut
		}

		ok, err = sqlite.DebitBalanceTx(tx, buyerID, p.PricePoints)
		if err != nil {
			return storageErr("purchase: debit", err)
		}
		if !ok {
			// A concurrent debit spent the points first. Rolling back also
			// restores the stock decrement above.
			return errNotEnough
		}

		return sqlite.InsertLedgerEntryTx(tx, entry)
	})

	switch {
	case err == nil:
		observability.Purchases.WithLabelValues("ok").Inc()
		observability.PointsSpent.Add(float64(p.PricePoints))
		observability.LedgerEntries.WithLabelValues(string(domain.ReasonPurchaseDebit)).Inc()
		log.Printf("[engine] %s bought %s for %d pts", buyerID, p.Name, p.PricePoints)
		return &domain.PurchaseResult{Success: true, Message: msgPurchased, Entry: &entry}, nil

	case errors.Is(err, errSoldOut), errors.Is(err, errDeactivated):
		observability.Purchases.WithLabelValues("out_of_stock").Inc()
		observability.Conflicts.WithLabelValues("purchase").Inc()
		return &domain.PurchaseResult{Success: false, Message: msgOutOfStock}, nil

	case errors.Is(err, errNotEnough):
		observability.Purchases.WithLabelValues("insufficient_points").Inc()
		observability.Conflicts.WithLabelValues("purchase").Inc()
		return &domain.PurchaseResult{Success: false, Message: msgInsufficientPoints}, nil

	default:
		return nil, err
	}
}
