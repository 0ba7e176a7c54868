package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/pipeline"
	"github.com/example/studybuddy/internal/quiz"
	"github.com/example/studybuddy/pkg/models"
)

// Uploader is satisfied by *pipeline.Pipeline
type Uploader interface {
	Upload(ctx context.Context, req pipeline.UploadRequest) (*pipeline.UploadResult, error)
}

// Handlers serves the JSON API
type Handlers struct {
	users     *database.UserRepository
	materials *database.MaterialRepository
	content   *database.ContentRepository
	reviews   *database.ReviewRepository
	uploader  Uploader
	quiz      *quiz.Module
	uploadDir string
	now       func() time.Time
	log       *logger.Logger
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=4"`
}

// POST /api/register
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, err := h.users.Create(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, database.ErrUsernameTaken) {
		RespondError(c, http.StatusConflict, "username_taken", err)
		return
	}
	if err != nil {
		h.internal(c, "register failed", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /api/materials
func (h *Handlers) ListMaterials(c *gin.Context) {
	materials, err := h.materials.ListByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internal(c, "list materials failed", err)
		return
	}
	if materials == nil {
		materials = []models.Material{}
	}
	RespondOK(c, gin.H{"materials": materials})
}

type uploadResponse struct {
	RunID      string              `json:"run_id"`
	Material   models.Material     `json:"material"`
	Extraction string              `json:"extraction,omitempty"`
	Synthesis  string              `json:"synthesis,omitempty"`
	Quiz       []models.QuizItem   `json:"quiz"`
	Reviews    []models.ReviewTask `json:"reviews"`
}

// POST /api/materials
// multipart form: title, notes, upload_date (YYYY-MM-DD, optional), file (optional)
func (h *Handlers) UploadMaterial(c *gin.Context) {
	req := pipeline.UploadRequest{
		UserID:     currentUser(c),
		Title:      strings.TrimSpace(c.PostForm("title")),
		Notes:      c.PostForm("notes"),
		UploadDate: h.now(),
	}
	if req.Title == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("title is required"))
		return
	}
	if raw := c.PostForm("upload_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid upload_date %q", raw))
			return
		}
		req.UploadDate = d
	}

	file, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	default:
		src, err := file.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		dst, err := pipeline.StageUpload(h.uploadDir, file.Filename, src)
		src.Close()
		if err != nil {
			h.internal(c, "save upload failed", err)
			return
		}
		req.FilePath = dst
	}

	res, err := h.uploader.Upload(c.Request.Context(), req)
	if err != nil {
		pipeline.Unstage(req.FilePath, h.log)
		h.internal(c, "upload failed", err)
		return
	}

	out := uploadResponse{
		RunID:    res.RunID,
		Material: res.Material,
		Quiz:     res.QuizItems,
		Reviews:  res.Reviews,
	}
	if res.Extraction != nil {
		out.Extraction = string(res.Extraction.Reason)
	}
	if res.Synthesis != nil {
		out.Synthesis = string(res.Synthesis.Reason)
	}
	if out.Quiz == nil {
		out.Quiz = []models.QuizItem{}
	}
	c.JSON(http.StatusCreated, out)
}

// GET /api/materials/:id
func (h *Handlers) GetMaterial(c *gin.Context) {
	ctx := c.Request.Context()
	m, ok := h.ownedMaterial(c)
	if !ok {
		return
	}

	var summary *string
	s, err := h.content.GetSummary(ctx, m.ID)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		h.internal(c, "get summary failed", err)
		return
	default:
		summary = &s.Summary
	}

	items, err := h.content.ListQuiz(ctx, m.ID)
	if err != nil {
		h.internal(c, "list quiz failed", err)
		return
	}
	reviews, err := h.reviews.ListByMaterial(ctx, m.ID)
	if err != nil {
		h.internal(c, "list reviews failed", err)
		return
	}
	if items == nil {
		items = []models.QuizItem{}
	}
	RespondOK(c, gin.H{
		"material": m,
		"summary":  summary,
		"quiz":     items,
		"reviews":  reviews,
	})
}

type quizQuestion struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	Question string `json:"question"`
}

// GET /api/materials/:id/quiz
func (h *Handlers) GetQuiz(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	items, err := h.quiz.Questions(c.Request.Context(), currentUser(c), id)
	if errors.Is(err, database.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("material not found"))
		return
	}
	if err != nil {
		h.internal(c, "get quiz failed", err)
		return
	}
	questions := make([]quizQuestion, 0, len(items))
	for _, item := range items {
		questions = append(questions, quizQuestion{ID: item.ID, Position: item.Position, Question: item.Question})
	}
	RespondOK(c, gin.H{"questions": questions})
}

type submitRequest struct {
	Answers []string `json:"answers" binding:"required"`
}

type gradedAnswer struct {
	Question string `json:"question"`
	Given    string `json:"given"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

// POST /api/materials/:id/quiz
func (h *Handlers) SubmitQuiz(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	attempt, graded, err := h.quiz.Submit(c.Request.Context(), currentUser(c), id, req.Answers)
	if errors.Is(err, database.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("material not found"))
		return
	}
	if errors.Is(err, quiz.ErrNoQuiz) {
		RespondError(c, http.StatusConflict, "no_quiz", err)
		return
	}
	if err != nil {
		h.internal(c, "submit quiz failed", err)
		return
	}
	results := make([]gradedAnswer, 0, len(graded))
	for _, g := range graded {
		results = append(results, gradedAnswer{
			Question: g.Item.Question,
			Given:    g.Given,
			Expected: g.Item.Answer,
			Correct:  g.Correct,
		})
	}
	RespondOK(c, gin.H{"attempt": attempt, "results": results})
}

// GET /api/reviews/due?date=YYYY-MM-DD
func (h *Handlers) DueReviews(c *gin.Context) {
	day := c.Query("date")
	if day == "" {
		day = models.FormatDate(h.now())
	} else if _, err := models.ParseDate(day); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid date %q", day))
		return
	}
	due, err := h.reviews.DueForUser(c.Request.Context(), currentUser(c), day)
	if err != nil {
		h.internal(c, "list due reviews failed", err)
		return
	}
	if due == nil {
		due = []models.DueReview{}
	}
	RespondOK(c, gin.H{"date": day, "reviews": due})
}

// POST /api/reviews/:id/done
func (h *Handlers) MarkReviewDone(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.reviews.MarkDone(c.Request.Context(), currentUser(c), id)
	if errors.Is(err, database.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("review not found"))
		return
	}
	if err != nil {
		h.internal(c, "mark review done failed", err)
		return
	}
	RespondOK(c, gin.H{"id": id, "done": true})
}

// GET /api/stats
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.reviews.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internal(c, "stats failed", err)
		return
	}
	RespondOK(c, stats)
}

func (h *Handlers) ownedMaterial(c *gin.Context) (*models.Material, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	m, err := h.materials.GetByID(c.Request.Context(), currentUser(c), id)
	if errors.Is(err, database.ErrNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("material not found"))
		return nil, false
	}
	if err != nil {
		h.internal(c, "get material failed", err)
		return nil, false
	}
	return m, true
}

func (h *Handlers) internal(c *gin.Context, msg string, err error) {
	h.log.Error(msg, "error", err, "user_id", currentUser(c))
	RespondError(c, http.StatusInternalServerError, "internal", errors.New(msg))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
