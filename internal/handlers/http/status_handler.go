package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// HealthChecker reports backing store health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionCounter reports the number of open signaling connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

type StatusHandler struct {
	matchmaker  ports.Matchmaker
	health      HealthChecker
	connections ConnectionCounter
}

func NewStatusHandler(matchmaker ports.Matchmaker, health HealthChecker, connections ConnectionCounter) *StatusHandler {
	return &StatusHandler{
		matchmaker:  matchmaker,
		health:      health,
		connections: connections,
	}
}

func (h *StatusHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/api/v1/stats", h.Stats)
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (h *StatusHandler) Ready(c *gin.Context) {
	if h.health != nil {
		if err := h.health.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *StatusHandler) Stats(c *gin.Context) {
	waiting, err := h.matchmaker.WaitingCount(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	rooms, err := h.matchmaker.RoomCount(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	connections := 0
	if h.connections != nil {
		connections = h.connections.ConnectionCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"waiting":     waiting,
		"rooms":       rooms,
		"connections": connections,
		"timestamp":   time.Now().Unix(),
	})
}
