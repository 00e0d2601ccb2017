package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/birdboard/birdboard-backend/internal/projects/domain"
	"github.com/birdboard/birdboard-backend/internal/storage/postgres"
)

const projectColumns = `id, owner_id::text, title, description, notes, created_at, updated_at`

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project owned by ownerID.
func (r *ProjectRepository) Create(ctx context.Context, ownerID string, in domain.CreateProjectInput) (*domain.Project, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id required")
	}

	for i := 0; i < 5; i++ {
		publicID, err := domain.NewPublicID(domain.ProjectIDPrefix)
		if err != nil {
			return nil, err
		}

		const q = `
INSERT INTO projects (id, owner_id, title, description, notes)
VALUES ($1, $2::uuid, $3, $4, $5)
RETURNING ` + projectColumns + `;
`
		p, err := scanProject(r.db.QueryRowContext(ctx, q, publicID, ownerID, in.Title, in.Description, in.Notes))
		if err == nil {
			return p, nil
		}

		// unique violation on id → retry
		if postgres.IsUniqueViolation(err) {
			continue
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}

	return nil, fmt.Errorf("failed to generate unique project id")
}

// FindByID loads a project regardless of owner; callers authorize.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1;`

	p, err := scanProject(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

// ListByOwner returns the owner's projects in creation order.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	const q = `
SELECT ` + projectColumns + `
FROM projects
WHERE owner_id = $1::uuid
ORDER BY created_at ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNotes replaces the project's notes. Concurrent writers race; the last one wins.
func (r *ProjectRepository) UpdateNotes(ctx context.Context, id, notes string) (*domain.Project, error) {
	const q = `
UPDATE projects
SET notes = $2, updated_at = now()
WHERE id = $1
RETURNING ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, id, notes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("update project notes: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
