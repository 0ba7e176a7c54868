package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/example/studybuddy/internal/ai"
	"github.com/example/studybuddy/internal/config"
	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/extract"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/pipeline"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

var _ = Describe("Pipeline", func() {
	var (
		ctx     context.Context
		tempDir string
		db      *sqlx.DB
		gen     *fakeGenerator
		p       *pipeline.Pipeline
		userID  int64
		jan1    time.Time
	)

	count := func(table string) int {
		var n int
		Expect(db.Get(&n, "SELECT COUNT(*) FROM "+table)).To(Succeed())
		return n
	}

	reviewDates := func(materialID int64) []string {
		tasks, err := database.NewReviewRepository(db).ListByMaterial(ctx, materialID)
		Expect(err).NotTo(HaveOccurred())
		var dates []string
		for _, t := range tasks {
			Expect(t.Done).To(BeFalse())
			dates = append(dates, t.ReviewDate)
		}
		return dates
	}

	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	expectedDates := []string{"2024-01-01", "2024-01-02", "2024-01-04", "2024-01-08", "2024-01-15", "2024-01-31"}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		tempDir, err = os.MkdirTemp("", "studybuddy-pipeline-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tempDir)

		db, err = database.Connect(config.Database{Driver: "sqlite3", DSN: filepath.Join(tempDir, "test.db")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		user, err := database.NewUserRepository(db).Create(ctx, "kid", "pw")
		Expect(err).NotTo(HaveOccurred())
		userID = user.ID

		log := logger.NewWithWriter(GinkgoWriter)
		gen = &fakeGenerator{reply: `{"knowledge_summary": "Stars are suns.", "quiz": [{"question":"What is the sun?", "answer":"A star."}]}`}
		synth := ai.NewWithGenerator(ai.Config{APIKey: "test"}, gen, log)
		p = pipeline.New(db, extract.New(log), synth, nil, log)
		jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	It("stores text, summary, quiz and six reviews for a text upload", func() {
		path := write("sun.txt", "The sun is a star.")

		res, err := p.Upload(ctx, pipeline.UploadRequest{
			UserID: userID, Title: "Sun", Notes: "space unit", UploadDate: jan1, FilePath: path,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RunID).NotTo(BeEmpty())
		Expect(res.Extraction.Reason).To(Equal(extract.ReasonOK))
		Expect(res.Synthesis.Reason).To(Equal(ai.ReasonOK))

		content := database.NewContentRepository(db)
		text, err := content.GetOriginalText(ctx, res.Material.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(text.Content).To(Equal("The sun is a star."))

		summary, err := content.GetSummary(ctx, res.Material.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Summary).To(Equal("Stars are suns."))

		quiz, err := content.ListQuiz(ctx, res.Material.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(quiz).To(HaveLen(1))
		Expect(quiz[0].Question).To(Equal("What is the sun?"))
		Expect(quiz[0].Answer).To(Equal("A star."))

		Expect(reviewDates(res.Material.ID)).To(Equal(expectedDates))

		m, err := database.NewMaterialRepository(db).GetByID(ctx, userID, res.Material.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.UploadDate).To(Equal("2024-01-01"))
		Expect(m.FilePath).To(HaveValue(Equal(path)))
	})

	It("keeps the material and schedule when synthesis fails", func() {
		gen.err = errors.New("model unavailable")
		path := write("sun.txt", "The sun is a star.")

		res, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Sun", UploadDate: jan1, FilePath: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Synthesis.Reason).To(Equal(ai.ReasonCallFailed))

		Expect(count("materials")).To(Equal(1))
		Expect(count("original_texts")).To(Equal(1))
		Expect(count("knowledge_summaries")).To(BeZero())
		Expect(count("quiz_items")).To(BeZero())
		Expect(reviewDates(res.Material.ID)).To(Equal(expectedDates))
	})

	DescribeTable("still schedules reviews when extraction yields nothing",
		func(name, content string, reason extract.Reason) {
			path := write(name, content)

			res, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Broken", UploadDate: jan1, FilePath: path})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Extraction.Reason).To(Equal(reason))
			Expect(res.Synthesis).To(BeNil())
			Expect(gen.calls).To(BeZero())

			Expect(count("materials")).To(Equal(1))
			Expect(count("original_texts")).To(BeZero())
			Expect(count("knowledge_summaries")).To(BeZero())
			Expect(reviewDates(res.Material.ID)).To(Equal(expectedDates))
		},
		Entry("unsupported type", "slides.pptx", "content", extract.ReasonUnsupported),
		Entry("corrupt pdf", "broken.pdf", "garbage bytes", extract.ReasonFailed),
		Entry("empty file", "blank.txt", "", extract.ReasonEmpty),
	)

	It("stores whitespace-only text verbatim without calling the model", func() {
		path := write("ws.txt", "  \n\t")

		res, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Blank", UploadDate: jan1, FilePath: path})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Extraction.Reason).To(Equal(extract.ReasonEmpty))
		Expect(res.Synthesis.Reason).To(Equal(ai.ReasonEmptyInput))
		Expect(gen.calls).To(BeZero())

		Expect(count("original_texts")).To(Equal(1))
		var stored string
		Expect(db.Get(&stored, `SELECT content FROM original_texts WHERE material_id = ?`, res.Material.ID)).To(Succeed())
		Expect(stored).To(Equal("  \n\t"))
		Expect(count("knowledge_summaries")).To(BeZero())
		Expect(count("quiz_items")).To(BeZero())
		Expect(reviewDates(res.Material.ID)).To(Equal(expectedDates))
	})

	It("schedules reviews for an upload without a file", func() {
		res, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Just notes", Notes: "n", UploadDate: jan1})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Extraction).To(BeNil())
		Expect(res.Material.FilePath).To(BeNil())
		Expect(reviewDates(res.Material.ID)).To(Equal(expectedDates))
	})

	It("rolls back everything when a write fails", func() {
		_, err := db.Exec(`CREATE TRIGGER reject_reviews BEFORE INSERT ON reviews
			BEGIN SELECT RAISE(ABORT, 'storage unavailable'); END`)
		Expect(err).NotTo(HaveOccurred())
		path := write("sun.txt", "The sun is a star.")

		_, err = p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Sun", UploadDate: jan1, FilePath: path})
		Expect(err).To(MatchError(ContainSubstring("storage unavailable")))

		for _, table := range []string{"materials", "original_texts", "knowledge_summaries", "quiz_items", "reviews"} {
			Expect(count(table)).To(BeZero(), table)
		}
	})

	It("surfaces a missing owner as a persistence error", func() {
		_, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID + 100, Title: "Orphan", UploadDate: jan1})
		Expect(err).To(HaveOccurred())
		Expect(count("materials")).To(BeZero())
		Expect(count("reviews")).To(BeZero())
	})

	It("validates the request", func() {
		_, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID})
		Expect(err).To(HaveOccurred())
		_, err = p.Upload(ctx, pipeline.UploadRequest{Title: "No owner"})
		Expect(err).To(HaveOccurred())
	})

	It("makes uploads visible to the due-today query", func() {
		res, err := p.Upload(ctx, pipeline.UploadRequest{UserID: userID, Title: "Sun", UploadDate: jan1})
		Expect(err).NotTo(HaveOccurred())

		due, err := database.NewReviewRepository(db).DueForUser(ctx, userID, "2024-01-04")
		Expect(err).NotTo(HaveOccurred())
		Expect(due).To(HaveLen(1))
		Expect(due[0].MaterialID).To(Equal(res.Material.ID))
		Expect(due[0].ReviewDate).To(Equal("2024-01-04"))
	})
})
