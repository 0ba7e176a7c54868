package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration
type Config struct {
	LogMode   string    `yaml:"log_mode"`
	UploadDir string    `yaml:"upload_dir"`
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	AI        AI        `yaml:"ai"`
	OCR       OCR       `yaml:"ocr"`
	Reviews   Reviews   `yaml:"reviews"`
	Reminders Reminders `yaml:"reminders"`
}

// Server configures the JSON API started by serve
type Server struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Database selects the SQL driver and connection string
type Database struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	DSN    string `yaml:"dsn"`
}

// AI configures the generative model used for synthesis
type AI struct {
	Provider string        `yaml:"provider"` // gemini or openai
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"` // empty picks the provider default
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OCR configures Google Cloud Vision text detection
type OCR struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Reviews configures the spaced-repetition curve
type Reviews struct {
	Offsets []int `yaml:"offsets"`
}

// Reminders configures the daily due-review notification job
type Reminders struct {
	Hour          int    `yaml:"hour"`
	TelegramToken string `yaml:"telegram_token"`
}

// Enabled reports whether reminders can be delivered
func (r Reminders) Enabled() bool {
	return r.TelegramToken != ""
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		LogMode:   "dev",
		UploadDir: "uploads",
		Server: Server{
			Addr: ":8080",
		},
		Database: Database{
			Driver: "sqlite3",
			DSN:    "data/studybuddy.db",
		},
		AI: AI{
			Provider: "gemini",
			Timeout:  60 * time.Second,
		},
		Reviews: Reviews{
			Offsets: []int{0, 1, 3, 7, 14, 30},
		},
		Reminders: Reminders{
			Hour: 8,
		},
	}
}

// Load reads .env (if present), then the optional YAML file at path, then
// environment variable overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.LogMode, "LOG_MODE")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.Server.Addr, "HTTP_ADDR")
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
		for i := range c.Server.AllowedOrigins {
			c.Server.AllowedOrigins[i] = strings.TrimSpace(c.Server.AllowedOrigins[i])
		}
	}
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.AI.Provider, "AI_PROVIDER")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.AI.BaseURL, "AI_BASE_URL")
	setString(&c.OCR.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Reminders.TelegramToken, "TELEGRAM_BOT_TOKEN")

	// Provider-specific key first, generic override last.
	switch strings.ToLower(c.AI.Provider) {
	case "openai":
		setString(&c.AI.APIKey, "OPENAI_API_KEY")
	default:
		setString(&c.AI.APIKey, "GEMINI_API_KEY")
	}
	setString(&c.AI.APIKey, "AI_API_KEY")

	if c.OCR.CredentialsFile != "" {
		c.OCR.Enabled = true
	}
	if v := os.Getenv("OCR_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OCR_ENABLED %q: %w", v, err)
		}
		c.OCR.Enabled = b
	}

	if v := os.Getenv("AI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AI_TIMEOUT %q: %w", v, err)
		}
		c.AI.Timeout = d
	}

	if v := os.Getenv("REMINDER_HOUR"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REMINDER_HOUR %q: %w", v, err)
		}
		c.Reminders.Hour = h
	}

	if v := os.Getenv("REVIEW_OFFSETS"); v != "" {
		offsets, err := parseOffsets(v)
		if err != nil {
			return err
		}
		c.Reviews.Offsets = offsets
	}
	return nil
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("server addr is empty")
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is empty")
	}
	switch strings.ToLower(c.AI.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		return errors.New("ai timeout must be positive")
	}
	if c.Reminders.Hour < 0 || c.Reminders.Hour > 23 {
		return fmt.Errorf("reminder hour %d out of range", c.Reminders.Hour)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseOffsets(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid REVIEW_OFFSETS entry %q: %w", p, err)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}
