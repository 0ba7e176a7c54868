package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/pkg/models"
)

// DefaultReminderHour is the local hour the daily reminder fires at
const DefaultReminderHour = 8

// Notifier delivers the list of today's reviews to a user
type Notifier interface {
	SendReminder(ctx context.Context, target models.ReminderTarget, due []models.DueReview) error
}

// ReviewSource is the part of the review repository the reminder job reads
type ReviewSource interface {
	ReminderTargets(ctx context.Context, day string) ([]models.ReminderTarget, error)
	DueForUser(ctx context.Context, userID int64, day string) ([]models.DueReview, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	reviews   ReviewSource
	notifier  Notifier
	hour      int
	now       func() time.Time
	log       *logger.Logger
}

// New creates a new scheduler instance
func New(reviews ReviewSource, notifier Notifier, hour int, log *logger.Logger) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = DefaultReminderHour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		reviews:   reviews,
		notifier:  notifier,
		hour:      hour,
		now:       time.Now,
		log:       log,
	}
}

// NewFromDB wires the scheduler to the review repository of db
func NewFromDB(db sqlx.ExtContext, notifier Notifier, hour int, log *logger.Logger) *Scheduler {
	return New(database.NewReviewRepository(db), notifier, hour, log)
}

// Start begins running the daily reminder job
func (s *Scheduler) Start() error {
	at := fmt.Sprintf("%02d:00", s.hour)
	if _, err := s.scheduler.Every(1).Day().At(at).Do(s.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("reminder job scheduled", "at", at)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runScheduled() {
	sent, err := s.RunOnce(context.Background(), s.now())
	if err != nil {
		s.log.Error("reminder run failed", "error", err)
		return
	}
	s.log.Info("reminders sent", "count", sent)
}

// RunOnce notifies every user with pending reviews on the calendar day of now.
// Failures for a single user are logged and skipped. It returns how many
// reminders were delivered.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	day := models.FormatDate(now)
	targets, err := s.reviews.ReminderTargets(ctx, day)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, target := range targets {
		if target.TelegramChatID == nil {
			s.log.Debug("skipping reminder, no chat linked", "user_id", target.UserID, "due", target.Due)
			continue
		}
		due, err := s.reviews.DueForUser(ctx, target.UserID, day)
		if err != nil {
			s.log.Error("failed to load due reviews", "user_id", target.UserID, "error", err)
			continue
		}
		if len(due) == 0 {
			continue
		}
		if err := s.notifier.SendReminder(ctx, target, due); err != nil {
			s.log.Error("failed to send reminder", "user_id", target.UserID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
