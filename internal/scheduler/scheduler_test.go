package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/example/studybuddy/internal/config"
	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/scheduler"
	"github.com/example/studybuddy/pkg/models"
)

type sentReminder struct {
	target models.ReminderTarget
	due    []models.DueReview
}

type fakeNotifier struct {
	sent    []sentReminder
	failFor map[int64]bool
}

func (f *fakeNotifier) SendReminder(ctx context.Context, target models.ReminderTarget, due []models.DueReview) error {
	if f.failFor[target.UserID] {
		return errors.New("telegram down")
	}
	f.sent = append(f.sent, sentReminder{target: target, due: due})
	return nil
}

type fakeReviews struct {
	targets    []models.ReminderTarget
	due        map[int64][]models.DueReview
	targetsErr error
	days       []string
}

func (f *fakeReviews) ReminderTargets(ctx context.Context, day string) ([]models.ReminderTarget, error) {
	f.days = append(f.days, day)
	return f.targets, f.targetsErr
}

func (f *fakeReviews) DueForUser(ctx context.Context, userID int64, day string) ([]models.DueReview, error) {
	return f.due[userID], nil
}

func chat(id int64) *int64 { return &id }

var _ = Describe("Scheduler", func() {
	var (
		ctx      context.Context
		notifier *fakeNotifier
		log      *logger.Logger
		now      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		notifier = &fakeNotifier{failFor: map[int64]bool{}}
		log = logger.NewWithWriter(GinkgoWriter)
		now = time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC)
	})

	Describe("RunOnce", func() {
		It("notifies linked users and skips the rest", func() {
			reviews := &fakeReviews{
				targets: []models.ReminderTarget{
					{UserID: 1, Username: "ann", TelegramChatID: chat(100), Due: 1},
					{UserID: 2, Username: "bob", Due: 2},
				},
				due: map[int64][]models.DueReview{
					1: {{ReviewID: 7, MaterialID: 3, Title: "Sun", ReviewDate: "2024-01-04"}},
				},
			}
			s := scheduler.New(reviews, notifier, 8, log)

			sent, err := s.RunOnce(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(Equal(1))
			Expect(reviews.days).To(Equal([]string{"2024-01-04"}))
			Expect(notifier.sent).To(HaveLen(1))
			Expect(notifier.sent[0].target.Username).To(Equal("ann"))
			Expect(notifier.sent[0].due[0].Title).To(Equal("Sun"))
		})

		It("keeps going when one delivery fails", func() {
			reviews := &fakeReviews{
				targets: []models.ReminderTarget{
					{UserID: 1, TelegramChatID: chat(100), Due: 1},
					{UserID: 2, TelegramChatID: chat(200), Due: 1},
				},
				due: map[int64][]models.DueReview{
					1: {{ReviewID: 1}},
					2: {{ReviewID: 2}},
				},
			}
			notifier.failFor[1] = true

			sent, err := scheduler.New(reviews, notifier, 8, log).RunOnce(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(Equal(1))
			Expect(notifier.sent[0].target.UserID).To(Equal(int64(2)))
		})

		It("returns the lookup error", func() {
			reviews := &fakeReviews{targetsErr: errors.New("db gone")}
			_, err := scheduler.New(reviews, notifier, 8, log).RunOnce(ctx, now)
			Expect(err).To(MatchError("db gone"))
			Expect(notifier.sent).To(BeEmpty())
		})

		It("reads due reviews from the database", func() {
			dir, err := os.MkdirTemp("", "studybuddy-scheduler-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
			db, err := database.Connect(config.Database{Driver: "sqlite3", DSN: filepath.Join(dir, "test.db")})
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(db.Close)

			users := database.NewUserRepository(db)
			user, err := users.Create(ctx, "kid", "pw")
			Expect(err).NotTo(HaveOccurred())
			Expect(users.SetTelegramChatID(ctx, user.ID, 42)).To(Succeed())

			material := &models.Material{UserID: user.ID, Title: "Sun", UploadDate: "2024-01-01"}
			Expect(database.NewMaterialRepository(db).Create(ctx, material)).To(Succeed())
			Expect(database.NewReviewRepository(db).CreateBatch(ctx, []models.ReviewTask{
				{MaterialID: material.ID, ReviewDate: "2024-01-01"},
				{MaterialID: material.ID, ReviewDate: "2024-01-04"},
			})).To(Succeed())

			sent, err := scheduler.NewFromDB(db, notifier, 8, log).RunOnce(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(Equal(1))
			Expect(*notifier.sent[0].target.TelegramChatID).To(Equal(int64(42)))
			Expect(notifier.sent[0].due).To(HaveLen(1))
			Expect(notifier.sent[0].due[0].ReviewDate).To(Equal("2024-01-04"))
		})
	})

	It("starts and stops the daily job", func() {
		s := scheduler.New(&fakeReviews{}, notifier, 8, log)
		Expect(s.Start()).To(Succeed())
		s.Stop()
	})
})
