package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/pkg/models"
)

// ContentRepository stores the extracted text and generated study aids of a material
type ContentRepository struct {
	db sqlx.ExtContext
}

// NewContentRepository creates a repository bound to a DB or a transaction
func NewContentRepository(db sqlx.ExtContext) *ContentRepository {
	return &ContentRepository{db: db}
}

// SaveOriginalText stores the extracted text of a material
func (r *ContentRepository) SaveOriginalText(ctx context.Context, materialID int64, content string) error {
	query := r.db.Rebind(`INSERT INTO original_texts (material_id, content) VALUES (?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, materialID, content); err != nil {
		return fmt.Errorf("failed to save original text: %w", err)
	}
	return nil
}

// SaveSummary stores the knowledge summary of a material
func (r *ContentRepository) SaveSummary(ctx context.Context, materialID int64, summary string) error {
	query := r.db.Rebind(`INSERT INTO knowledge_summaries (material_id, summary) VALUES (?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, materialID, summary); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// SaveQuiz inserts quiz items in slice order, assigning positions 0..n-1
func (r *ContentRepository) SaveQuiz(ctx context.Context, materialID int64, items []models.QuizItem) error {
	for i := range items {
		items[i].MaterialID = materialID
		items[i].Position = i
		id, err := insertReturningID(ctx, r.db, `
			INSERT INTO quiz_items (material_id, position, question, answer)
			VALUES (?, ?, ?, ?)`,
			materialID, i, items[i].Question, items[i].Answer,
		)
		if err != nil {
			return fmt.Errorf("failed to save quiz item %d: %w", i, err)
		}
		items[i].ID = id
	}
	return nil
}

// GetOriginalText returns the extracted text or ErrNotFound
func (r *ContentRepository) GetOriginalText(ctx context.Context, materialID int64) (*models.OriginalText, error) {
	var t models.OriginalText
	query := r.db.Rebind(`SELECT material_id, content FROM original_texts WHERE material_id = ?`)
	err := sqlx.GetContext(ctx, r.db, &t, query, materialID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get original text: %w", err)
	}
	return &t, nil
}

// GetSummary returns the knowledge summary or ErrNotFound
func (r *ContentRepository) GetSummary(ctx context.Context, materialID int64) (*models.KnowledgeSummary, error) {
	var s models.KnowledgeSummary
	query := r.db.Rebind(`SELECT material_id, summary FROM knowledge_summaries WHERE material_id = ?`)
	err := sqlx.GetContext(ctx, r.db, &s, query, materialID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &s, nil
}

// ListQuiz returns the quiz of a material in presentation order
func (r *ContentRepository) ListQuiz(ctx context.Context, materialID int64) ([]models.QuizItem, error) {
	var items []models.QuizItem
	query := r.db.Rebind(`
		SELECT id, material_id, position, question, answer
		FROM quiz_items
		WHERE material_id = ?
		ORDER BY position ASC`)
	if err := sqlx.SelectContext(ctx, r.db, &items, query, materialID); err != nil {
		return nil, fmt.Errorf("failed to list quiz items: %w", err)
	}
	return items, nil
}
