package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/birdboard/birdboard-backend/internal/projects/domain"
)

const taskColumns = `id::text, project_id, body, completed, created_at, updated_at`

// TaskRepository provides persistence operations for tasks
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create appends a task to the project and bumps the project's updated_at.
func (r *TaskRepository) Create(ctx context.Context, projectID, body string) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT INTO tasks (id, project_id, body)
VALUES ($1::uuid, $2, $3)
RETURNING ` + taskColumns + `;
`
	t, err := scanTask(tx.QueryRowContext(ctx, q, uuid.NewString(), projectID, body))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	if err := touchProject(ctx, tx, projectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTaskNotFound
	}

	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1::uuid;`
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}

// ListByProject returns the project's tasks in creation order.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	const q = `
SELECT ` + taskColumns + `
FROM tasks
WHERE project_id = $1
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0, 8)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the fields present in in; nil fields keep their stored value.
func (r *TaskRepository) Update(ctx context.Context, id string, in domain.UpdateTaskInput) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
UPDATE tasks
SET body = coalesce($2::text, body),
    completed = coalesce($3::boolean, completed),
    updated_at = now()
WHERE id = $1::uuid
RETURNING ` + taskColumns + `;
`
	t, err := scanTask(tx.QueryRowContext(ctx, q, id, in.Body, in.Completed))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	if err := touchProject(ctx, tx, t.ProjectID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func touchProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Body, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
