// Package extract turns uploaded files into plain text.
//
// Extraction is best effort: a bad file never produces a Go error for the
// caller. Instead every call returns a Result whose Reason tells "no text
// found" apart from "extraction failed", so callers can log the difference
// and carry on either way.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/studybuddy/internal/logger"
)

// Reason classifies the outcome of an extraction
type Reason string

const (
	ReasonOK          Reason = "ok"
	ReasonEmpty       Reason = "empty"
	ReasonUnsupported Reason = "unsupported"
	ReasonFailed      Reason = "failed"
)

// ErrOCRUnavailable is reported for images when no OCR backend is configured
var ErrOCRUnavailable = errors.New("ocr backend not configured")

// Result is the outcome of Extract. Text holds whatever was read for ReasonOK
// and ReasonEmpty, whitespace included, and is empty otherwise.
type Result struct {
	Text   string
	Reason Reason
	Err    error
}

// OK reports whether usable text was extracted
func (r Result) OK() bool {
	return r.Reason == ReasonOK
}

// PageReader returns the text of every page of a paged document, in page order
type PageReader interface {
	Name() string
	ReadPages(ctx context.Context, path string) ([]string, error)
}

// OCR recognizes the text in an encoded image
type OCR interface {
	RecognizeImage(ctx context.Context, image []byte) (string, error)
}

// Extractor dispatches on file extension
type Extractor struct {
	pdfReaders []PageReader
	ocr        OCR
	log        *logger.Logger
}

type Option func(*Extractor)

// WithPDFReaders replaces the PDF backends. They are tried in order until one opens the file.
func WithPDFReaders(readers ...PageReader) Option {
	return func(e *Extractor) {
		e.pdfReaders = readers
	}
}

// WithOCR sets the backend used for .png/.jpg/.jpeg files
func WithOCR(ocr OCR) Option {
	return func(e *Extractor) {
		e.ocr = ocr
	}
}

// New creates an Extractor using MuPDF with a pure-Go fallback for PDFs and no OCR
func New(log *logger.Logger, options ...Option) *Extractor {
	e := &Extractor{
		pdfReaders: []PageReader{FitzReader{}, PlainPDFReader{}},
		log:        log.With("component", "extractor"),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// SupportedExtensions lists the extensions Extract knows how to read
var SupportedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".txt"}

// Supported reports whether path has an extension Extract can read
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract reads path and returns its text. It never returns a Go error;
// failures are logged and reported through Result.Reason.
func (e *Extractor) Extract(ctx context.Context, path string) (res Result) {
	log := e.log.With("path", path)

	defer func() {
		if r := recover(); r != nil {
			res = Result{Reason: ReasonFailed, Err: fmt.Errorf("extractor panic: %v", r)}
		}
		switch res.Reason {
		case ReasonFailed:
			log.Warn("text extraction failed", "error", res.Err)
		case ReasonUnsupported:
			log.Info("unsupported file type, skipping extraction")
		case ReasonEmpty:
			log.Info("no text found in file")
		default:
			log.Debug("text extracted", "chars", len(res.Text))
		}
	}()

	if !Supported(path) {
		return Result{Reason: ReasonUnsupported}
	}

	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = e.extractPDF(ctx, path)
	case ".png", ".jpg", ".jpeg":
		text, err = e.extractImage(ctx, path)
	default:
		text, err = extractPlain(path)
	}

	if err != nil {
		return Result{Reason: ReasonFailed, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Result{Text: text, Reason: ReasonEmpty}
	}
	return Result{Text: text, Reason: ReasonOK}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	if len(e.pdfReaders) == 0 {
		return "", errors.New("no pdf reader configured")
	}
	var errs []error
	for _, r := range e.pdfReaders {
		pages, err := r.ReadPages(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			continue
		}
		return strings.Join(pages, ""), nil
	}
	return "", errors.Join(errs...)
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	if e.ocr == nil {
		return "", ErrOCRUnavailable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	text, err := e.ocr.RecognizeImage(ctx, data)
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}
