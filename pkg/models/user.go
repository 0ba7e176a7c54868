package models

// User represents an account owning materials
type User struct {
	ID             int64  `json:"id" db:"id"`
	Username       string `json:"username" db:"username"`
	PasswordHash   string `json:"-" db:"password_hash"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	CreatedAt      string `json:"created_at" db:"created_at"`
}
