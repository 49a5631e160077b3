package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insighted/schoolprofile/internal/middleware"
	"github.com/insighted/schoolprofile/internal/reference"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout is the timeout for store health checks
	HealthCheckTimeout = 2 * time.Second
)

// Pinger checks connectivity to the profile store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	store     Pinger
	reference func() reference.Status
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
// referenceStatus may be nil when no reference loader is configured.
func NewHealthHandler(store Pinger, referenceStatus func() reference.Status, env string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		reference: referenceStatus,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Reference string `json:"reference"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

// Health handles GET /health endpoint.
// This is a basic health check that always returns 200 OK.
// It does not check any dependencies and is used for basic liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// The service is ready when the profile store answers. Missing reference
// data is reported but does not fail readiness: profile endpoints keep
// working without it.
func (h *HealthHandler) Ready(c *gin.Context) {
	refState := h.referenceState()

	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Database health check failed", err, map[string]interface{}{
				"timeout": HealthCheckTimeout.String(),
			})
		}

		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:    "not_ready",
			Database:  "disconnected",
			Reference: refState,
		})
		return
	}

	c.JSON(http.StatusOK, ReadyResponse{
		Status:    "ready",
		Database:  "connected",
		Reference: refState,
	})
}

func (h *HealthHandler) referenceState() string {
	if h.reference == nil {
		return "unconfigured"
	}
	st := h.reference()
	switch {
	case st.Loaded:
		return "loaded"
	case st.LastError != "":
		return "unavailable"
	default:
		return "pending"
	}
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, and uptime.
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(uptime),
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
