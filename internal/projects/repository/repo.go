package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appforge/appforge-backend/internal/projects/domain"
)

// Schema creates the projects table used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS appforge_projects (
	id          TEXT PRIMARY KEY,
	messages    JSONB NOT NULL DEFAULT '[]'::jsonb,
	code        TEXT NOT NULL DEFAULT '',
	deployment  JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository provides persistence operations for projects
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new project repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create projects table: %w", err)
	}
	return nil
}

// Get returns one project by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	const q = `
SELECT id, messages, code, deployment, created_at, updated_at
FROM appforge_projects
WHERE id = $1;
`
	var (
		p          domain.Project
		messages   []byte
		deployment []byte
	)
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &messages, &p.Code, &deployment, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if err := json.Unmarshal(messages, &p.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	if p.Messages == nil {
		p.Messages = []domain.Message{}
	}
	if len(deployment) > 0 {
		var d domain.Deployment
		if err := json.Unmarshal(deployment, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal deployment: %w", err)
		}
		p.Deployment = &d
	}
	return &p, nil
}

// Put upserts the whole record. ON CONFLICT makes the replace a single statement.
func (r *PostgresRepository) Put(ctx context.Context, project *domain.Project) error {
	if project == nil || project.ID == "" {
		return domain.ErrInvalidProject
	}

	messages := project.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	var deployment sql.NullString
	if project.Deployment != nil {
		b, err := json.Marshal(project.Deployment)
		if err != nil {
			return fmt.Errorf("failed to marshal deployment: %w", err)
		}
		deployment = sql.NullString{String: string(b), Valid: true}
	}

	const q = `
INSERT INTO appforge_projects (id, messages, code, deployment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	messages = EXCLUDED.messages,
	code = EXCLUDED.code,
	deployment = EXCLUDED.deployment,
	updated_at = EXCLUDED.updated_at;
`
	_, err = r.db.ExecContext(ctx, q,
		project.ID,
		string(messagesJSON),
		project.Code,
		deployment,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// List returns summaries, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	const q = `
SELECT id, jsonb_array_length(messages), code <> '', COALESCE(deployment->>'siteUrl', ''), created_at, updated_at
FROM appforge_projects
ORDER BY updated_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProjectSummary, 0, 16)
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.ID, &s.MessageCount, &s.HasCode, &s.SiteURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a project.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appforge_projects WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// Ping checks the connection, used by the health endpoint
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
