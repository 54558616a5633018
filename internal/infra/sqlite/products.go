package sqlite

import (
	"context"
	"database/sql"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Product Operations ─────────────────────────────────────────────────────

const productColumns = `id, name, description, price_points, stock, is_active, created_at`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var active int
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PricePoints, &p.Stock, &active, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.IsActive = active == 1
	p.CreatedAt = decodeTime(created)
	return &p, nil
}

// GetProduct returns the product with the given id, or nil if absent.
func (d *DB) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(d.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
}

// GetProductTx is GetProduct inside an open transaction.
func GetProductTx(tx *sql.Tx, id string) (*domain.Product, error) {
	return scanProduct(tx.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
}

// InsertProduct creates a catalog item.
func (d *DB) InsertProduct(ctx context.Context, p domain.Product) error {
	active := 0
	if p.IsActive {
		active = 1
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price_points, stock, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.PricePoints, p.Stock, active, encodeTime(p.CreatedAt))
	return err
}

// UpdateProduct edits the mutable catalog fields. Stock set here is an admin
// restock; decrement happens only through DecrementStockTx.
func (d *DB) UpdateProduct(ctx context.Context, p domain.Product) error {
	active := 0
	if p.IsActive {
		active = 1
	}
	res, err := d.db.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, price_points = ?, stock = ?, is_active = ?
		WHERE id = ?
	`, p.Name, p.Description, p.PricePoints, p.Stock, active, p.ID)
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

// DecrementStockTx takes one unit of stock, guarded so the last unit can
// only be taken once: the UPDATE lands only while the product is active and
// stock remains. Returns false when the guard rejects (sold out or
// deactivated since the caller's read).
func DecrementStockTx(tx *sql.Tx, id string) (bool, error) {
	res, err := tx.Exec(`
		UPDATE products SET stock = stock - 1
		WHERE id = ? AND stock > 0 AND is_active = 1
	`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListActiveProducts returns active catalog items, cheapest first — the
// shop-grid ordering.
func (d *DB) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE is_active = 1 ORDER BY price_points ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
