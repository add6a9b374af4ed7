package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/unibox-design/Alcient/internal/models"
)

// ErrProjectNotFound is returned when no row matches the requested project.
var ErrProjectNotFound = fmt.Errorf("project not found")

// SaveProject upserts the full project payload. The editor sends the whole
// document on every save, so the payload column is the source of truth and
// the title is denormalized only for listing.
func (db *DB) SaveProject(ctx context.Context, project *models.ProjectPayload) error {
	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	query := `
		INSERT INTO projects (id, title, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, payload = EXCLUDED.payload, updated_at = NOW()
	`
	if _, err := db.ExecContext(ctx, query, project.ID, project.Title, data); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject loads a project payload by ID.
func (db *DB) GetProject(ctx context.Context, id string) (*models.ProjectPayload, error) {
	var data []byte
	err := db.QueryRowContext(ctx, `SELECT payload FROM projects WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var project models.ProjectPayload
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("corrupt project payload %s: %w", id, err)
	}
	if project.ID == "" {
		project.ID = id
	}
	return &project, nil
}

// ListProjects returns recent projects, newest first, payloads included.
func (db *DB) ListProjects(ctx context.Context, limit int) ([]models.ProjectPayload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM projects ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.ProjectPayload
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		var project models.ProjectPayload
		if err := json.Unmarshal(data, &project); err != nil {
			continue
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
