package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/pkg/models"
)

// ReviewRepository handles database operations for review tasks
type ReviewRepository struct {
	db sqlx.ExtContext
}

// NewReviewRepository creates a repository bound to a DB or a transaction
func NewReviewRepository(db sqlx.ExtContext) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateBatch inserts the given review tasks in order and sets their IDs.
// Callers pass a transaction when the batch must be all-or-nothing.
func (r *ReviewRepository) CreateBatch(ctx context.Context, tasks []models.ReviewTask) error {
	for i := range tasks {
		id, err := insertReturningID(ctx, r.db, `
			INSERT INTO reviews (material_id, review_date, done)
			VALUES (?, ?, ?)`,
			tasks[i].MaterialID, tasks[i].ReviewDate, tasks[i].Done,
		)
		if err != nil {
			return fmt.Errorf("failed to create review for %s: %w", tasks[i].ReviewDate, err)
		}
		tasks[i].ID = id
	}
	return nil
}

// ListByMaterial returns all reviews of a material ordered by date
func (r *ReviewRepository) ListByMaterial(ctx context.Context, materialID int64) ([]models.ReviewTask, error) {
	var tasks []models.ReviewTask
	query := r.db.Rebind(`
		SELECT id, material_id, review_date, done
		FROM reviews
		WHERE material_id = ?
		ORDER BY review_date ASC, id ASC`)
	if err := sqlx.SelectContext(ctx, r.db, &tasks, query, materialID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return tasks, nil
}

// DueForUser returns the user's pending reviews scheduled exactly on day (YYYY-MM-DD)
func (r *ReviewRepository) DueForUser(ctx context.Context, userID int64, day string) ([]models.DueReview, error) {
	var due []models.DueReview
	query := r.db.Rebind(`
		SELECT r.id AS review_id, m.id AS material_id, m.title, m.notes, r.review_date, m.file_path
		FROM reviews r
		JOIN materials m ON r.material_id = m.id
		WHERE r.review_date = ? AND r.done = FALSE AND m.user_id = ?
		ORDER BY r.id ASC`)
	if err := sqlx.SelectContext(ctx, r.db, &due, query, day, userID); err != nil {
		return nil, fmt.Errorf("failed to get due reviews: %w", err)
	}
	return due, nil
}

// MarkDone completes a review owned by userID. Marking an already completed
// review succeeds and leaves it completed; nothing sets done back to false.
func (r *ReviewRepository) MarkDone(ctx context.Context, userID, reviewID int64) error {
	query := r.db.Rebind(`
		UPDATE reviews SET done = TRUE
		WHERE id = ? AND material_id IN (SELECT id FROM materials WHERE user_id = ?)`)
	result, err := r.db.ExecContext(ctx, query, reviewID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark review done: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns total and completed review counts for a user
func (r *ReviewRepository) Stats(ctx context.Context, userID int64) (*models.ReviewStats, error) {
	var stats models.ReviewStats
	query := r.db.Rebind(`
		SELECT COUNT(r.id) AS total,
		       COALESCE(SUM(CASE WHEN r.done THEN 1 ELSE 0 END), 0) AS done
		FROM reviews r
		JOIN materials m ON r.material_id = m.id
		WHERE m.user_id = ?`)
	if err := sqlx.GetContext(ctx, r.db, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get review statistics: %w", err)
	}
	return &stats, nil
}

// ReminderTargets returns every user with pending reviews on day and how many
func (r *ReviewRepository) ReminderTargets(ctx context.Context, day string) ([]models.ReminderTarget, error) {
	var targets []models.ReminderTarget
	query := r.db.Rebind(`
		SELECT u.id AS user_id, u.username, u.telegram_chat_id, COUNT(r.id) AS due
		FROM reviews r
		JOIN materials m ON r.material_id = m.id
		JOIN users u ON m.user_id = u.id
		WHERE r.review_date = ? AND r.done = FALSE
		GROUP BY u.id, u.username, u.telegram_chat_id
		ORDER BY u.id ASC`)
	if err := sqlx.SelectContext(ctx, r.db, &targets, query, day); err != nil {
		return nil, fmt.Errorf("failed to get reminder targets: %w", err)
	}
	return targets, nil
}
