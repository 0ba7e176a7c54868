package models

// ReviewTask represents a scheduled review of a material
type ReviewTask struct {
	ID         int64  `json:"id" db:"id"`
	MaterialID int64  `json:"material_id" db:"material_id"`
	ReviewDate string `json:"review_date" db:"review_date"` // YYYY-MM-DD
	Done       bool   `json:"done" db:"done"`
}

// DueReview is a pending review joined with its material
type DueReview struct {
	ReviewID   int64   `json:"review_id" db:"review_id"`
	MaterialID int64   `json:"material_id" db:"material_id"`
	Title      string  `json:"title" db:"title"`
	Notes      string  `json:"notes" db:"notes"`
	ReviewDate string  `json:"review_date" db:"review_date"`
	FilePath   *string `json:"file_path,omitempty" db:"file_path"`
}

// ReviewStats tracks how many of a user's reviews are completed
type ReviewStats struct {
	Total int `json:"total" db:"total"`
	Done  int `json:"done" db:"done"`
}

// ReminderTarget is a user with reviews due on a given day
type ReminderTarget struct {
	UserID         int64  `json:"user_id" db:"user_id"`
	Username       string `json:"username" db:"username"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	Due            int    `json:"due" db:"due"`
}
