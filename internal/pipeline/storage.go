package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/example/studybuddy/internal/logger"
)

// StageFile copies src into uploadDir under a sanitized name that cannot
// collide with earlier uploads and returns the new path.
func StageFile(uploadDir, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()
	return StageUpload(uploadDir, filepath.Base(src), in)
}

// StageUpload writes r into uploadDir as <random prefix>_<sanitized name>
func StageUpload(uploadDir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	dst := filepath.Join(uploadDir, uuid.NewString()[:8]+"_"+SecureFilename(name))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to copy upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return dst, nil
}

// Unstage removes a staged file whose upload was not stored
func Unstage(path string, log *logger.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove staged upload", "path", path, "error", err)
	}
}

// SecureFilename keeps letters, digits, dots, dashes and underscores
func SecureFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}
