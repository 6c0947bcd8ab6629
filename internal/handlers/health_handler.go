package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readinessTimeout bounds the backend check behind the healthcheck
const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	ready func(ctx context.Context) error
}

// NewHealthHandler takes an optional readiness check, e.g. a database ping
func NewHealthHandler(ready func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		ready: ready,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			attachError(c, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "appointment store unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
