// Package app wires configuration, storage and the study pipeline together
// and implements the command-line operations on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/ai"
	"github.com/example/studybuddy/internal/config"
	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/excel"
	"github.com/example/studybuddy/internal/extract"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/pipeline"
	"github.com/example/studybuddy/internal/quiz"
	sr "github.com/example/studybuddy/internal/spaced_repetition"
)

// App holds every long-lived component
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	DB        *sqlx.DB
	Users     *database.UserRepository
	Materials *database.MaterialRepository
	Content   *database.ContentRepository
	Reviews   *database.ReviewRepository
	Attempts  *database.QuizAttemptRepository
	Pipeline  *pipeline.Pipeline
	Quiz      *quiz.Module
	Importer  *excel.Importer

	now     func() time.Time
	closers []func() error
}

type options struct {
	generator ai.Generator
	ocr       extract.OCR
	now       func() time.Time
}

// Option customizes Open
type Option func(*options)

// WithGenerator replaces the configured model client
func WithGenerator(gen ai.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithOCR replaces Cloud Vision for image text
func WithOCR(ocr extract.OCR) Option {
	return func(o *options) { o.ocr = ocr }
}

// WithClock sets the source of "today"
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open connects to the database and builds the components described by cfg
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	curve, err := sr.NewCurve(cfg.Reviews.Offsets)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: db, now: o.now}
	a.closers = append(a.closers, db.Close)

	aiCfg := ai.Config{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  cfg.AI.Timeout,
	}
	var synth *ai.Synthesizer
	if o.generator != nil {
		synth = ai.NewWithGenerator(aiCfg, o.generator, log)
	} else if synth, err = ai.New(aiCfg, log); err != nil {
		a.Close()
		return nil, err
	}

	var extractOpts []extract.Option
	switch {
	case o.ocr != nil:
		extractOpts = append(extractOpts, extract.WithOCR(o.ocr))
	case cfg.OCR.Enabled:
		vision, err := extract.NewVisionOCR(ctx, cfg.OCR.CredentialsFile)
		if err != nil {
			log.Warn("image OCR disabled", "error", err)
			break
		}
		extractOpts = append(extractOpts, extract.WithOCR(vision))
		a.closers = append(a.closers, vision.Close)
	}

	a.Users = database.NewUserRepository(db)
	a.Materials = database.NewMaterialRepository(db)
	a.Content = database.NewContentRepository(db)
	a.Reviews = database.NewReviewRepository(db)
	a.Attempts = database.NewQuizAttemptRepository(db)
	a.Pipeline = pipeline.New(db, extract.New(log, extractOpts...), synth, curve, log)
	a.Quiz = quiz.NewModule(db)
	a.Importer = excel.NewImporter(a.Pipeline, log)
	return a, nil
}

// Close releases every resource in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Today is the calendar day reviews are due on
func (a *App) Today() time.Time {
	return a.now()
}

func (a *App) login(ctx context.Context, creds Credentials) (int64, error) {
	if creds.Username == "" {
		return 0, errors.New("username is required")
	}
	user, err := a.Users.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return 0, fmt.Errorf("login failed: %w", err)
	}
	return user.ID, nil
}
