package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Task Operations ────────────────────────────────────────────────────────
// Status transitions are guarded UPDATEs: the WHERE clause re-checks the
// expected source state, so a racer that moved the task first makes the
// statement affect zero rows. Callers translate zero rows into a typed
// failure and roll the surrounding transaction back.

const taskColumns = `id, title, description, points_reward, category_required,
	assigned_to, status, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var assigned, createdBy sql.NullString
	var created, updated string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.PointsReward, &t.CategoryRequired,
		&assigned, &t.Status, &createdBy, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.AssignedTo = assigned.String
	t.CreatedBy = createdBy.String
	t.CreatedAt = decodeTime(created)
	t.UpdatedAt = decodeTime(updated)
	return &t, nil
}

// GetTask returns the task with the given id, or nil if absent.
func (d *DB) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return scanTask(d.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
}

// GetTaskTx is GetTask inside an open transaction.
func GetTaskTx(tx *sql.Tx, id string) (*domain.Task, error) {
	return scanTask(tx.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
}

// InsertTask persists a new task in its initial state.
func (d *DB) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, points_reward, category_required,
			assigned_to, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Title, t.Description, t.PointsReward, t.CategoryRequired,
		nullable(t.AssignedTo), t.Status, nullable(t.CreatedBy),
		encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt))
	return err
}

// ApproveTaskTx promotes a pending_approval task to open with the final
// reward. Returns false when the task was not in pending_approval.
func ApproveTaskTx(tx *sql.Tx, id string, finalReward int64, now time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE tasks SET points_reward = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, finalReward, domain.TaskOpen, encodeTime(now), id, domain.TaskPendingApproval)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// AssignTaskTx sets the assignee and moves the task to in_progress.
// Reassignment is permitted while the task is open or in_progress; a
// completed task makes the guard fail.
func AssignTaskTx(tx *sql.Tx, id, memberID string, now time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE tasks SET assigned_to = ?, status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, memberID, domain.TaskInProgress, encodeTime(now), id, domain.TaskOpen, domain.TaskInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MoveTaskTx transitions a task between open and in_progress.
// The guard pins the expected source status.
func MoveTaskTx(tx *sql.Tx, id string, from, to domain.TaskStatus, now time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE tasks SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, encodeTime(now), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CompleteTaskTx marks an in_progress, assigned task completed. This is the
// race-window re-check of the completion path: a concurrent completer makes
// the guard fail and the whole transaction rolls back with no ledger write.
func CompleteTaskTx(tx *sql.Tx, id string, now time.Time) (bool, error) {
	res, err := tx.Exec(`
		UPDATE tasks SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND assigned_to IS NOT NULL
	`, domain.TaskCompleted, encodeTime(now), id, domain.TaskInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListBoardTasks returns every non-terminal task plus completed tasks whose
// last transition falls inside the display window. The window mirrors the
// portal board, which hides stale completed cards.
func (d *DB) ListBoardTasks(ctx context.Context, completedSince time.Time) ([]domain.Task, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status != ? OR updated_at > ?
		ORDER BY created_at DESC
	`, domain.TaskCompleted, encodeTime(completedSince))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasksByCreator returns the tasks a given account submitted, newest
// first. Partners use this to watch their own requests.
func (d *DB) ListTasksByCreator(ctx context.Context, creatorID string) ([]domain.Task, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE created_by = ? ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasksByStatus returns all tasks in a given status, newest first.
func (d *DB) ListTasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = ? ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
