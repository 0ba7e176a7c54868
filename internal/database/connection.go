package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/studybuddy/internal/config"
)

// Connect opens the database described by cfg and ensures the schema exists
func Connect(cfg config.Database) (*sqlx.DB, error) {
	dsn := cfg.DSN
	if cfg.Driver == "sqlite3" {
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on&_busy_timeout=5000"
		}
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id {{pk}},
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			telegram_chat_id BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{"users_telegram_chat_index", `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_telegram_chat ON users (telegram_chat_id)`},
	{"materials", `
		CREATE TABLE IF NOT EXISTS materials (
			id {{pk}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			upload_date TEXT NOT NULL,
			file_path TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{"original_texts", `
		CREATE TABLE IF NOT EXISTS original_texts (
			material_id BIGINT PRIMARY KEY REFERENCES materials(id) ON DELETE CASCADE,
			content TEXT NOT NULL
		)`},
	{"knowledge_summaries", `
		CREATE TABLE IF NOT EXISTS knowledge_summaries (
			material_id BIGINT PRIMARY KEY REFERENCES materials(id) ON DELETE CASCADE,
			summary TEXT NOT NULL
		)`},
	{"quiz_items", `
		CREATE TABLE IF NOT EXISTS quiz_items (
			id {{pk}},
			material_id BIGINT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			UNIQUE(material_id, position)
		)`},
	{"reviews", `
		CREATE TABLE IF NOT EXISTS reviews (
			id {{pk}},
			material_id BIGINT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
			review_date TEXT NOT NULL,
			done BOOLEAN NOT NULL DEFAULT FALSE
		)`},
	{"reviews_date_index", `
		CREATE INDEX IF NOT EXISTS idx_reviews_date_done ON reviews (review_date, done)`},
	{"quiz_attempts", `
		CREATE TABLE IF NOT EXISTS quiz_attempts (
			id {{pk}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			material_id BIGINT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
			total INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			attempted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	for _, t := range schema {
		if _, err := db.Exec(strings.ReplaceAll(t.ddl, "{{pk}}", pk)); err != nil {
			return fmt.Errorf("failed to create %s: %w", t.name, err)
		}
	}
	return nil
}
