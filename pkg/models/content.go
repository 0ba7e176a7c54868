package models

// OriginalText holds the raw text extracted from a material's file
type OriginalText struct {
	MaterialID int64  `json:"material_id" db:"material_id"`
	Content    string `json:"content" db:"content"`
}

// KnowledgeSummary is the generated summary for a material
type KnowledgeSummary struct {
	MaterialID int64  `json:"material_id" db:"material_id"`
	Summary    string `json:"summary" db:"summary"`
}

// QuizItem is one generated question/answer pair.
// Position preserves the order in which the items were generated.
type QuizItem struct {
	ID         int64  `json:"id" db:"id"`
	MaterialID int64  `json:"material_id" db:"material_id"`
	Position   int    `json:"position" db:"position"`
	Question   string `json:"question" db:"question"`
	Answer     string `json:"answer" db:"answer"`
}

// QuizAttempt records one graded practice run over a material's quiz
type QuizAttempt struct {
	ID          int64  `json:"id" db:"id"`
	UserID      int64  `json:"user_id" db:"user_id"`
	MaterialID  int64  `json:"material_id" db:"material_id"`
	Total       int    `json:"total" db:"total"`
	Correct     int    `json:"correct" db:"correct"`
	AttemptedAt string `json:"attempted_at" db:"attempted_at"`
}
