package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	Checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{Checks: checks}
}

// Health answers {"status":"UP"} with one entry per dependency, or 503 with
// status DOWN when any check fails.
func (h *HealthHandler) Health(c *gin.Context) {
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "UP", http.StatusOK
	deps := gin.H{}
	for _, name := range names {
		if err := h.Checks[name](c.Request.Context()); err != nil {
			deps[name] = err.Error()
			status, code = "DOWN", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "UP"
	}
	c.JSON(code, gin.H{"status": status, "checks": deps})
}
