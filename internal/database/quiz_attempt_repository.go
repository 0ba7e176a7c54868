package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/pkg/models"
)

// QuizAttemptRepository handles database operations for quiz attempts
type QuizAttemptRepository struct {
	db sqlx.ExtContext
}

// NewQuizAttemptRepository creates a new repository instance
func NewQuizAttemptRepository(db sqlx.ExtContext) *QuizAttemptRepository {
	return &QuizAttemptRepository{db: db}
}

// Create inserts a graded attempt
func (r *QuizAttemptRepository) Create(ctx context.Context, a *models.QuizAttempt) error {
	id, err := insertReturningID(ctx, r.db, `
		INSERT INTO quiz_attempts (user_id, material_id, total, correct)
		VALUES (?, ?, ?, ?)`,
		a.UserID, a.MaterialID, a.Total, a.Correct,
	)
	if err != nil {
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}
	a.ID = id
	return nil
}

// ListByMaterial returns a user's attempts on a material, newest first
func (r *QuizAttemptRepository) ListByMaterial(ctx context.Context, userID, materialID int64) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	query := r.db.Rebind(`
		SELECT id, user_id, material_id, total, correct, attempted_at
		FROM quiz_attempts
		WHERE user_id = ? AND material_id = ?
		ORDER BY id DESC`)
	if err := sqlx.SelectContext(ctx, r.db, &attempts, query, userID, materialID); err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	return attempts, nil
}
