package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/task-tracker/internal/model"
)

// TaskRepo encapsulates all database queries related to tasks. It
// depends on a sql.DB connection configured at startup. Ownership is
// not checked here: repositories fetch by id and the handler layer
// compares the owner against the authenticated caller, so that a
// present-but-foreign task can be distinguished from an absent one.
type TaskRepo struct{ db *sql.DB }

// NewTaskRepo constructs a TaskRepo with the provided DB handle. This
// allows dependency injection of the database in tests and at startup.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

// Create inserts a new task. On success the task's ID, timestamps and
// normalized fields are populated from a follow-up SELECT so callers
// receive the record exactly as stored.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const qInsert = "INSERT INTO tasks (owner_id, title, description, completed) VALUES (?,?,?,?)"
	res, err := r.db.ExecContext(ctx, qInsert, t.OwnerID, t.Title, nullable(t.Description), t.Completed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return r.reload(ctx, t)
}

// GetByID fetches a task by its ID regardless of owner. It returns
// ErrTaskNotFound if no row is found.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (*model.Task, error) {
	const q = "SELECT id, owner_id, title, description, completed, created_at, updated_at FROM tasks WHERE id = ?"
	t := new(model.Task)
	var desc sql.NullString
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.OwnerID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	t.Description = desc.String
	return t, nil
}

// ListByOwner returns all tasks for a specific owner, newest first.
// An owner without tasks gets an empty slice, not an error.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Task, error) {
	const q = `SELECT id, owner_id, title, description, completed, created_at, updated_at
	           FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Task{}
	for rows.Next() {
		t := new(model.Task)
		var desc sql.NullString
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Description = desc.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the task's mutable fields and refreshes the record
// from the database so the caller sees the new updated_at value. A
// task deleted between the handler's ownership check and this write
// surfaces as ErrTaskNotFound.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	const q = `UPDATE tasks
	           SET title = ?, description = ?, completed = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, t.Title, nullable(t.Description), t.Completed, t.ID); err != nil {
		return err
	}
	return r.reload(ctx, t)
}

// Delete hard-removes a task. ErrTaskNotFound is returned when no row
// was deleted, so a second delete of the same id fails cleanly.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Stats returns per-owner task counts computed in SQL. Pending is
// derived as total minus completed so the three values always agree.
func (r *TaskRepo) Stats(ctx context.Context, ownerID uint64) (model.TaskStats, error) {
	const q = "SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM tasks WHERE owner_id = ?"
	var s model.TaskStats
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&s.Total, &s.Completed); err != nil {
		return model.TaskStats{}, err
	}
	s.Pending = s.Total - s.Completed
	return s, nil
}

// reload re-reads a task row into t after an insert or update.
func (r *TaskRepo) reload(ctx context.Context, t *model.Task) error {
	const q = "SELECT owner_id, title, description, completed, created_at, updated_at FROM tasks WHERE id = ?"
	var desc sql.NullString
	if err := r.db.QueryRowContext(ctx, q, t.ID).Scan(&t.OwnerID, &t.Title, &desc, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		return err
	}
	t.Description = desc.String
	return nil
}

// nullable maps an empty description to SQL NULL so the column stays
// NULL rather than an empty string when nothing was provided.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
