// Package ai derives study aids (a knowledge summary and a quiz) from text
// with a generative model.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/studybuddy/internal/logger"
)

// DefaultTimeout bounds a single model call when Config.Timeout is unset
const DefaultTimeout = 60 * time.Second

// Config is passed to the synthesizer at construction time
type Config struct {
	Provider string // "gemini" (default) or "openai"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// Reason classifies the outcome of a synthesis
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonEmptyInput    Reason = "empty_input"
	ReasonNotConfigured Reason = "not_configured"
	ReasonCallFailed    Reason = "call_failed"
	ReasonMalformed     Reason = "malformed_response"
)

var (
	ErrNotConfigured     = errors.New("generative model credential is not configured")
	ErrMalformedResponse = errors.New("malformed model response")
)

// QuizPair is one generated question with its answer. Answer may be empty.
type QuizPair struct {
	Question string
	Answer   string
}

// Content is the successful result of a synthesis
type Content struct {
	Summary string
	Quiz    []QuizPair
}

// Outcome is returned by Synthesize. Content is nil unless Reason is ReasonOK.
type Outcome struct {
	Content *Content
	Reason  Reason
	Err     error
}

// OK reports whether study content was produced
func (o Outcome) OK() bool {
	return o.Reason == ReasonOK && o.Content != nil
}

// Generator sends a prompt to a model and returns its raw text reply
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer builds the study-aid prompt, calls the model once and parses the reply
type Synthesizer struct {
	cfg        Config
	gen        Generator
	log        *logger.Logger
	reportOnce sync.Once
}

// New creates a Synthesizer whose generator is chosen by cfg.Provider
func New(cfg Config, log *logger.Logger) (*Synthesizer, error) {
	var gen Generator
	if cfg.APIKey != "" {
		var err error
		if gen, err = NewGenerator(cfg); err != nil {
			return nil, err
		}
	}
	return NewWithGenerator(cfg, gen, log), nil
}

// NewWithGenerator creates a Synthesizer around an existing generator
func NewWithGenerator(cfg Config, gen Generator, log *logger.Logger) *Synthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Synthesizer{
		cfg: cfg,
		gen: gen,
		log: log.With("component", "synthesizer", "provider", cfg.Provider),
	}
}

// NewGenerator builds the generator for cfg.Provider
func NewGenerator(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGemini(cfg), nil
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// Synthesize derives a summary and quiz from text. It makes at most one model
// call and never returns a Go error: failures are logged and reported through
// Outcome.Reason.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		s.log.Info("skipping synthesis of empty text")
		return Outcome{Reason: ReasonEmptyInput}
	}

	if s.cfg.APIKey == "" || s.gen == nil {
		s.reportOnce.Do(func() {
			s.log.Error("synthesis disabled", "error", ErrNotConfigured)
		})
		return Outcome{Reason: ReasonNotConfigured, Err: ErrNotConfigured}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.gen.Generate(callCtx, BuildPrompt(text))
	if err != nil {
		s.log.Warn("model call failed", "error", err, "elapsed", time.Since(start))
		return Outcome{Reason: ReasonCallFailed, Err: err}
	}

	content, err := ParseReply(reply)
	if err != nil {
		s.log.Warn("could not parse model reply", "error", err, "reply_chars", len(reply))
		return Outcome{Reason: ReasonMalformed, Err: err}
	}

	s.log.Info("study content generated", "quiz_items", len(content.Quiz), "elapsed", time.Since(start))
	return Outcome{Content: content, Reason: ReasonOK}
}

// BuildPrompt renders the fixed study-aid instructions around text
func BuildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Based on the following text, please perform two tasks:\n")
	b.WriteString("1. Provide a concise summary of the most important knowledge points for a child to learn.\n")
	b.WriteString("2. Create a list of 5-10 quiz questions, each with a clear, short answer. ")
	b.WriteString("The difficulty of these questions should closely match the complexity and style of the content in the provided text.\n\n")
	b.WriteString(`Please format your response as a single JSON object with two keys: "knowledge_summary" and "quiz".` + "\n")
	b.WriteString(`The "knowledge_summary" key should have a string value.` + "\n")
	b.WriteString(`The "quiz" key should have a value that is an array of objects, where each object has a "question" and "answer" key.` + "\n\n")
	b.WriteString("Example format:\n")
	b.WriteString(`{
  "knowledge_summary": "A brief summary of the text.",
  "quiz": [
    { "question": "What is the first question?", "answer": "The first answer." },
    { "question": "What is the second question?", "answer": "The second answer." }
  ]
}`)
	b.WriteString("\n\nHere is the text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")
	return b.String()
}

type replyItem struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

type replyJSON struct {
	KnowledgeSummary *string      `json:"knowledge_summary"`
	Quiz             *[]replyItem `json:"quiz"`
}

// ParseReply strips an optional code fence and decodes the JSON study content
func ParseReply(reply string) (*Content, error) {
	var r replyJSON
	if err := json.Unmarshal([]byte(StripCodeFence(reply)), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.KnowledgeSummary == nil || strings.TrimSpace(*r.KnowledgeSummary) == "" {
		return nil, fmt.Errorf("%w: missing knowledge_summary", ErrMalformedResponse)
	}

	// A null quiz decodes like a missing key.
	if r.Quiz == nil {
		return nil, fmt.Errorf("%w: missing quiz", ErrMalformedResponse)
	}

	content := &Content{
		Summary: *r.KnowledgeSummary,
		Quiz:    make([]QuizPair, 0, len(*r.Quiz)),
	}
	for i, q := range *r.Quiz {
		if q.Question == nil || strings.TrimSpace(*q.Question) == "" {
			return nil, fmt.Errorf("%w: quiz item %d has no question", ErrMalformedResponse, i)
		}
		if q.Answer == nil {
			return nil, fmt.Errorf("%w: quiz item %d has no answer key", ErrMalformedResponse, i)
		}
		content.Quiz = append(content.Quiz, QuizPair{Question: *q.Question, Answer: *q.Answer})
	}
	return content, nil
}

// StripCodeFence removes a leading ``` or ```json marker and a trailing ``` marker
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
