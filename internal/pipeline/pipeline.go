// Package pipeline turns an upload into a stored material with its extracted
// text, generated study aids and review schedule.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/ai"
	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/extract"
	"github.com/example/studybuddy/internal/logger"
	sr "github.com/example/studybuddy/internal/spaced_repetition"
	"github.com/example/studybuddy/pkg/models"
)

// TextExtractor is satisfied by *extract.Extractor
type TextExtractor interface {
	Extract(ctx context.Context, path string) extract.Result
}

// ContentSynthesizer is satisfied by *ai.Synthesizer
type ContentSynthesizer interface {
	Synthesize(ctx context.Context, text string) ai.Outcome
}

// UploadRequest describes one uploaded material. FilePath is empty when no file was attached.
type UploadRequest struct {
	UserID     int64
	Title      string
	Notes      string
	UploadDate time.Time
	FilePath   string
}

// UploadResult reports what was stored. Extraction and Synthesis are nil
// when the stage did not run.
type UploadResult struct {
	RunID      string
	Material   models.Material
	Extraction *extract.Result
	Synthesis  *ai.Outcome
	QuizItems  []models.QuizItem
	Reviews    []models.ReviewTask
}

// Pipeline coordinates extraction, synthesis and review scheduling per upload
type Pipeline struct {
	db          *sqlx.DB
	extractor   TextExtractor
	synthesizer ContentSynthesizer
	curve       *sr.Curve
	log         *logger.Logger
}

// New creates a Pipeline. A nil curve means the default 0/1/3/7/14/30 schedule.
func New(db *sqlx.DB, extractor TextExtractor, synthesizer ContentSynthesizer, curve *sr.Curve, log *logger.Logger) *Pipeline {
	if curve == nil {
		curve = sr.DefaultCurve()
	}
	return &Pipeline{
		db:          db,
		extractor:   extractor,
		synthesizer: synthesizer,
		curve:       curve,
		log:         log.With("component", "pipeline"),
	}
}

// Upload stores a material and everything derived from it.
//
// Extraction and synthesis failures only drop the derived rows; the material
// and its review schedule are still stored. The returned error is non-nil
// only when persistence fails, in which case nothing is stored.
func (p *Pipeline) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.UserID <= 0 {
		return nil, errors.New("upload needs an owning user")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("upload needs a title")
	}
	if req.UploadDate.IsZero() {
		req.UploadDate = time.Now()
	}

	res := &UploadResult{
		RunID: uuid.NewString(),
		Material: models.Material{
			UserID:     req.UserID,
			Title:      req.Title,
			Notes:      req.Notes,
			UploadDate: models.FormatDate(req.UploadDate),
		},
	}
	log := p.log.With("run_id", res.RunID, "user_id", req.UserID)

	// Derive first so the write transaction never waits on the model.
	var text string
	if req.FilePath != "" {
		path := req.FilePath
		res.Material.FilePath = &path

		ext := p.extractor.Extract(ctx, req.FilePath)
		res.Extraction = &ext
		// Blank text is still stored; the synthesizer skips it without a model call.
		if ext.Text != "" {
			text = ext.Text
			out := p.synthesizer.Synthesize(ctx, text)
			res.Synthesis = &out
			if out.OK() {
				for _, q := range out.Content.Quiz {
					res.QuizItems = append(res.QuizItems, models.QuizItem{Question: q.Question, Answer: q.Answer})
				}
			}
		}
	}

	err := database.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if err := database.NewMaterialRepository(tx).Create(ctx, &res.Material); err != nil {
			return err
		}
		materialID := res.Material.ID

		content := database.NewContentRepository(tx)
		if text != "" {
			if err := content.SaveOriginalText(ctx, materialID, text); err != nil {
				return err
			}
		}
		if res.Synthesis != nil && res.Synthesis.OK() {
			if err := content.SaveSummary(ctx, materialID, res.Synthesis.Content.Summary); err != nil {
				return err
			}
			if err := content.SaveQuiz(ctx, materialID, res.QuizItems); err != nil {
				return err
			}
		}

		res.Reviews = p.curve.Tasks(materialID, req.UploadDate)
		return database.NewReviewRepository(tx).CreateBatch(ctx, res.Reviews)
	})
	if err != nil {
		log.Error("upload failed", "error", err)
		return nil, fmt.Errorf("failed to store material: %w", err)
	}

	log.Info("material stored",
		"material_id", res.Material.ID,
		"extraction", reasonOf(res.Extraction),
		"synthesis", outcomeOf(res.Synthesis),
		"quiz_items", len(res.QuizItems),
		"reviews", len(res.Reviews),
	)
	return res, nil
}

func reasonOf(r *extract.Result) string {
	if r == nil {
		return "skipped"
	}
	return string(r.Reason)
}

func outcomeOf(o *ai.Outcome) string {
	if o == nil {
		return "skipped"
	}
	return string(o.Reason)
}
