package quiz_test

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/example/studybuddy/internal/config"
	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/quiz"
	"github.com/example/studybuddy/pkg/models"
)

var _ = DescribeTable("AnswersMatch",
	func(expected, given string, want bool) {
		Expect(quiz.AnswersMatch(expected, given)).To(Equal(want))
	},
	Entry("exact", "A star.", "A star.", true),
	Entry("case and punctuation", "A star.", "a STAR", true),
	Entry("extra spaces", "the  Milky Way", " the milky   way ", true),
	Entry("different", "A star.", "A planet", false),
	Entry("blank reply", "A star.", "  ", false),
	Entry("no expected answer", "", "anything", true),
	Entry("no expected answer, blank reply", "", "", false),
)

var _ = Describe("Module", func() {
	var (
		ctx        context.Context
		db         *sqlx.DB
		module     *quiz.Module
		userID     int64
		materialID int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir, err := os.MkdirTemp("", "studybuddy-quiz-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		db, err = database.Connect(config.Database{Driver: "sqlite3", DSN: filepath.Join(dir, "q.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		user, err := database.NewUserRepository(db).Create(ctx, "kid", "pw")
		Expect(err).NotTo(HaveOccurred())
		userID = user.ID

		m := &models.Material{UserID: userID, Title: "Sun", UploadDate: "2024-01-01"}
		Expect(database.NewMaterialRepository(db).Create(ctx, m)).To(Succeed())
		materialID = m.ID
		Expect(database.NewContentRepository(db).SaveQuiz(ctx, materialID, []models.QuizItem{
			{Question: "What is the sun?", Answer: "A star."},
			{Question: "What orbits the sun?", Answer: "The Earth"},
			{Question: "Name a planet", Answer: ""},
		})).To(Succeed())

		module = quiz.NewModule(db)
	})

	It("grades answers in question order and records the attempt", func() {
		attempt, graded, err := module.Submit(ctx, userID, materialID, []string{"a star", "the moon"})
		Expect(err).NotTo(HaveOccurred())
		Expect(attempt.Total).To(Equal(3))
		Expect(attempt.Correct).To(Equal(1))
		Expect(graded[0].Correct).To(BeTrue())
		Expect(graded[1].Correct).To(BeFalse())
		Expect(graded[2].Given).To(BeEmpty())

		attempts, err := database.NewQuizAttemptRepository(db).ListByMaterial(ctx, userID, materialID)
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(1))
		Expect(attempts[0].Correct).To(Equal(1))
	})

	It("hides quizzes of other users", func() {
		other, err := database.NewUserRepository(db).Create(ctx, "other", "pw")
		Expect(err).NotTo(HaveOccurred())
		_, err = module.Questions(ctx, other.ID, materialID)
		Expect(err).To(MatchError(database.ErrNotFound))
	})

	It("refuses to grade a material without a quiz", func() {
		m := &models.Material{UserID: userID, Title: "Empty", UploadDate: "2024-01-02"}
		Expect(database.NewMaterialRepository(db).Create(ctx, m)).To(Succeed())
		_, _, err := module.Submit(ctx, userID, m.ID, nil)
		Expect(err).To(MatchError(quiz.ErrNoQuiz))
	})
})
