// Package server exposes materials, reviews and quizzes as a JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/quiz"
)

const shutdownTimeout = 5 * time.Second

// Config holds everything the router needs
type Config struct {
	DB             sqlx.ExtContext
	Uploader       Uploader
	UploadDir      string
	AllowedOrigins []string
	Now            func() time.Time
	Log            *logger.Logger
}

// NewHandlers builds the API handlers over cfg.DB
func NewHandlers(cfg Config) *Handlers {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		users:     database.NewUserRepository(cfg.DB),
		materials: database.NewMaterialRepository(cfg.DB),
		content:   database.NewContentRepository(cfg.DB),
		reviews:   database.NewReviewRepository(cfg.DB),
		uploader:  cfg.Uploader,
		quiz:      quiz.NewModule(cfg.DB),
		uploadDir: cfg.UploadDir,
		now:       now,
		log:       cfg.Log.With("component", "http"),
	}
}

// NewRouter wires every route
func NewRouter(cfg Config) *gin.Engine {
	h := NewHandlers(cfg)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLog(h.log))
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	// Public
	router.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.POST("/api/register", h.Register)

	// Protected
	api := router.Group("/api")
	api.Use(RequireAuth(h.users, h.log))
	api.GET("/materials", h.ListMaterials)
	api.POST("/materials", h.UploadMaterial)
	api.GET("/materials/:id", h.GetMaterial)
	api.GET("/materials/:id/quiz", h.GetQuiz)
	api.POST("/materials/:id/quiz", h.SubmitQuiz)
	api.GET("/reviews/due", h.DueReviews)
	api.POST("/reviews/:id/done", h.MarkReviewDone)
	api.GET("/stats", h.Stats)

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("http server stopped")
	return nil
}
