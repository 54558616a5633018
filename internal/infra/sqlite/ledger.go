package sqlite

import (
	"context"
	"database/sql"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────
// Entries are append-only. There is deliberately no UPDATE or DELETE here.

const ledgerColumns = `id, account_id, amount, reason, task_id, product_id, description, created_at`

// InsertLedgerEntryTx appends one entry. Must run in the same transaction as
// the balance mutation it describes so the two can never diverge.
func InsertLedgerEntryTx(tx *sql.Tx, e domain.LedgerEntry) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (id, account_id, amount, reason, task_id, product_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.Amount, e.Reason, nullable(e.TaskID), nullable(e.ProductID),
		e.Description, encodeTime(e.CreatedAt))
	return err
}

func scanLedgerEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var taskID, productID sql.NullString
	var created string
	err := row.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Reason, &taskID, &productID, &e.Description, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.TaskID = taskID.String
	e.ProductID = productID.String
	e.CreatedAt = decodeTime(created)
	return &e, nil
}

// CountRewardEntries returns how many task_reward entries reference a task.
// At most one can ever exist; tests use this to verify the property.
func (d *DB) CountRewardEntries(ctx context.Context, taskID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ledger_entries WHERE task_id = ? AND reason = ?
	`, taskID, domain.ReasonTaskReward).Scan(&n)
	return n, err
}

// ListRecentEntries returns the newest entries across all accounts, for the
// admin transaction screen.
func (d *DB) ListRecentEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListAccountEntries returns one account's entries, newest first.
func (d *DB) ListAccountEntries(ctx context.Context, accountID string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE account_id = ? ORDER BY created_at DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
