package sqlite

import (
	"context"
	"database/sql"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var canMove int
	var created string
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.Category, &canMove, &a.Balance, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CanMoveTasks = canMove == 1
	a.CreatedAt = decodeTime(created)
	return &a, nil
}

// GetAccount returns the account with the given id, or nil if absent.
func (d *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, role, category, can_move_tasks, balance, created_at
		FROM accounts WHERE id = ?
	`, id)
	return scanAccount(row)
}

// GetAccountTx is GetAccount inside an open transaction.
func GetAccountTx(tx *sql.Tx, id string) (*domain.Account, error) {
	row := tx.QueryRow(`
		SELECT id, name, role, category, can_move_tasks, balance, created_at
		FROM accounts WHERE id = ?
	`, id)
	return scanAccount(row)
}

// InsertAccount creates an account row. Balance starts at 0 regardless of
// the struct value; only ledger operations move it afterwards.
func (d *DB) InsertAccount(ctx context.Context, a domain.Account) error {
	canMove := 0
	if a.CanMoveTasks {
		canMove = 1
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, role, category, can_move_tasks, balance, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, a.ID, a.Name, a.Role, a.Category, canMove, encodeTime(a.CreatedAt))
	return err
}

// AccountExists reports whether an account row exists.
func (d *DB) AccountExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// BalanceOf returns the materialized balance for an account.
// Returns sql.ErrNoRows via the error when the account is missing.
func (d *DB) BalanceOf(ctx context.Context, id string) (int64, error) {
	var bal int64
	err := d.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, id).Scan(&bal)
	return bal, err
}

// LedgerSumOf recomputes the balance from the entry log. Used by tests and
// consistency checks; must always agree with BalanceOf.
func (d *DB) LedgerSumOf(ctx context.Context, id string) (int64, error) {
	var sum sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM ledger_entries WHERE account_id = ?
	`, id).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// CreditBalanceTx adds amount to an account's materialized balance.
// Amount must be positive; the caller inserts the matching ledger entry in
// the same transaction.
func CreditBalanceTx(tx *sql.Tx, id string, amount int64) error {
	res, err := tx.Exec(`UPDATE accounts SET balance = balance + ? WHERE id = ?`, amount, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DebitBalanceTx subtracts amount from an account's balance, guarded so the
// check and the write are one statement: the UPDATE only lands when the
// current balance covers the amount. Returns false when the guard rejects
// the debit (insufficient funds at write time).
func DebitBalanceTx(tx *sql.Tx, id string, amount int64) (bool, error) {
	res, err := tx.Exec(`
		UPDATE accounts SET balance = balance - ?
		WHERE id = ? AND balance >= ?
	`, amount, id, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateAccountRole sets an account's role. Used by admin promote/demote.
func (d *DB) UpdateAccountRole(ctx context.Context, id string, role domain.Role) error {
	res, err := d.db.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetCanMoveTasks grants or revokes the board-mover capability.
func (d *DB) SetCanMoveTasks(ctx context.Context, id string, canMove bool) error {
	v := 0
	if canMove {
		v = 1
	}
	res, err := d.db.ExecContext(ctx, `UPDATE accounts SET can_move_tasks = ? WHERE id = ?`, v, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAccounts returns all accounts ordered by creation time.
func (d *DB) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, role, category, can_move_tasks, balance, created_at
		FROM accounts ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var canMove int
		var created string
		if err := rows.Scan(&a.ID, &a.Name, &a.Role, &a.Category, &canMove, &a.Balance, &created); err != nil {
			return nil, err
		}
		a.CanMoveTasks = canMove == 1
		a.CreatedAt = decodeTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
