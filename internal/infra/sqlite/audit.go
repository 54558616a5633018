package sqlite

import (
	"context"
	"database/sql"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Audit Log Operations ───────────────────────────────────────────────────
// Append-only, like the ledger. Written by privileged actions only.

// InsertAuditRecord appends one audit row outside any engine transaction.
func (d *DB) InsertAuditRecord(ctx context.Context, r domain.AuditRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.ActorID, r.Action, nullable(r.TargetID), r.Details, encodeTime(r.CreatedAt))
	return err
}

// InsertAuditRecordTx appends one audit row inside an open transaction, so
// an economy mutation and its audit trail commit together.
func InsertAuditRecordTx(tx *sql.Tx, r domain.AuditRecord) error {
	_, err := tx.Exec(`
		INSERT INTO audit_log (id, actor_id, action, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.ActorID, r.Action, nullable(r.TargetID), r.Details, encodeTime(r.CreatedAt))
	return err
}

// ListAuditRecords returns the newest audit rows.
func (d *DB) ListAuditRecords(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, actor_id, action, target_id, details, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		var target sql.NullString
		var created string
		if err := rows.Scan(&r.ID, &r.ActorID, &r.Action, &target, &r.Details, &created); err != nil {
			return nil, err
		}
		r.TargetID = target.String
		r.CreatedAt = decodeTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}
