package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything that can report its reachability
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service status
type HealthHandler struct {
	db     Pinger
	models map[string]bool
}

// NewHealthHandler creates a new health handler. models maps each model name
// to whether it is loaded.
func NewHealthHandler(db Pinger, models map[string]bool) *HealthHandler {
	return &HealthHandler{db: db, models: models}
}

// Health reports whether the database answers and which models are loaded
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbOK := h.db != nil && h.db.PingContext(ctx) == nil

	status, code := "ok", http.StatusOK
	if !dbOK {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":        status,
		"database":      dbOK,
		"models_loaded": h.models,
		"timestamp":     time.Now().Unix(),
	})
}
