package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
)

const userIDKey = "user_id"

// RequireAuth resolves HTTP basic credentials to a user
func RequireAuth(users *database.UserRepository, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="studybuddy"`)
			RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing credentials"))
			return
		}
		user, err := users.Authenticate(c.Request.Context(), username, password)
		if errors.Is(err, database.ErrInvalidCredentials) {
			RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		if err != nil {
			log.Error("authentication failed", "error", err)
			RespondError(c, http.StatusInternalServerError, "internal", errors.New("authentication failed"))
			return
		}
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// RequestLog writes one line per request
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
