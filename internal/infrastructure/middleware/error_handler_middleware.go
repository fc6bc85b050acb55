package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

// ErrorHandlerMiddleware maps domain errors attached to the gin context to
// HTTP responses.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrPeerNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrPoolFull):
			status = http.StatusServiceUnavailable
		case errors.Is(err, domain.ErrAlreadyWaiting), errors.Is(err, domain.ErrNotRoomMember):
			status = http.StatusConflict
		}

		logger.Errorw("request failed",
			"error", err.Error(),
			"status", status,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)

		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
