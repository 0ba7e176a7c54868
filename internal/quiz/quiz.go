package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/pkg/models"
)

// ErrNoQuiz is returned when a material has no generated questions
var ErrNoQuiz = errors.New("material has no quiz")

// Module handles quiz practice over a material's generated questions
type Module struct {
	materials *database.MaterialRepository
	content   *database.ContentRepository
	attempts  *database.QuizAttemptRepository
}

// NewModule creates a new quiz module
func NewModule(db sqlx.ExtContext) *Module {
	return &Module{
		materials: database.NewMaterialRepository(db),
		content:   database.NewContentRepository(db),
		attempts:  database.NewQuizAttemptRepository(db),
	}
}

// GradedAnswer is one question with the answer given and whether it matched
type GradedAnswer struct {
	Item    models.QuizItem
	Given   string
	Correct bool
}

// Questions returns the quiz of a material owned by userID, in generated order
func (m *Module) Questions(ctx context.Context, userID, materialID int64) ([]models.QuizItem, error) {
	if _, err := m.materials.GetByID(ctx, userID, materialID); err != nil {
		return nil, err
	}
	return m.content.ListQuiz(ctx, materialID)
}

// Submit grades answers (one per question, in order) and records the attempt
func (m *Module) Submit(ctx context.Context, userID, materialID int64, answers []string) (*models.QuizAttempt, []GradedAnswer, error) {
	items, err := m.Questions(ctx, userID, materialID)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, fmt.Errorf("material %d: %w", materialID, ErrNoQuiz)
	}

	graded, correct := Grade(items, answers)
	attempt := &models.QuizAttempt{
		UserID:     userID,
		MaterialID: materialID,
		Total:      len(items),
		Correct:    correct,
	}
	if err := m.attempts.Create(ctx, attempt); err != nil {
		return nil, nil, err
	}
	return attempt, graded, nil
}

// Grade compares answers to items position by position. Missing answers count as wrong.
func Grade(items []models.QuizItem, answers []string) ([]GradedAnswer, int) {
	graded := make([]GradedAnswer, len(items))
	correct := 0
	for i, item := range items {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		ok := AnswersMatch(item.Answer, given)
		if ok {
			correct++
		}
		graded[i] = GradedAnswer{Item: item, Given: given, Correct: ok}
	}
	return graded, correct
}

// AnswersMatch compares answers ignoring case, spacing and surrounding punctuation.
// Questions generated without an answer accept any non-empty reply.
func AnswersMatch(expected, given string) bool {
	g := normalize(given)
	if g == "" {
		return false
	}
	e := normalize(expected)
	if e == "" {
		return true
	}
	return e == g
}

func normalize(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
