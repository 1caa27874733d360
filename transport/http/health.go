package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandlers reports liveness and dependency readiness.
type HealthHandlers struct {
	checks map[string]HealthCheck
}

// NewHealthHandlers creates health handlers over named dependency checks.
func NewHealthHandlers(checks map[string]HealthCheck) *HealthHandlers {
	return &HealthHandlers{checks: checks}
}

// Live always reports ok while the process is serving.
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every dependency with a short deadline.
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unreachable"
			healthy = false
			continue
		}
		deps[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": deps})
}
