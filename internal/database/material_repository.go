package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/pkg/models"
)

// MaterialRepository handles database operations for materials
type MaterialRepository struct {
	db sqlx.ExtContext
}

// NewMaterialRepository creates a repository bound to a DB or a transaction
func NewMaterialRepository(db sqlx.ExtContext) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// Create inserts a new material and sets its ID
func (r *MaterialRepository) Create(ctx context.Context, m *models.Material) error {
	id, err := insertReturningID(ctx, r.db, `
		INSERT INTO materials (user_id, title, notes, upload_date, file_path)
		VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.Title, m.Notes, m.UploadDate, m.FilePath,
	)
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID returns a material owned by userID
func (r *MaterialRepository) GetByID(ctx context.Context, userID, id int64) (*models.Material, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, title, notes, upload_date, file_path
		FROM materials
		WHERE id = ? AND user_id = ?`)
	var m models.Material
	err := sqlx.GetContext(ctx, r.db, &m, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return &m, nil
}

// ListByUser returns all materials of a user, newest upload first
func (r *MaterialRepository) ListByUser(ctx context.Context, userID int64) ([]models.Material, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, title, notes, upload_date, file_path
		FROM materials
		WHERE user_id = ?
		ORDER BY upload_date DESC, id DESC`)
	var materials []models.Material
	if err := sqlx.SelectContext(ctx, r.db, &materials, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, nil
}
