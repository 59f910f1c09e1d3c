package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/governed-notebook/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is a dependency that can report its own health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency names a HealthChecker for the readiness report
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	deps   []Dependency
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Only configured stores
// should be passed.
func NewHealthHandler(logger *zap.Logger, deps ...Dependency) *HealthHandler {
	return &HealthHandler{
		deps:   deps,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	allHealthy := true

	for _, dep := range h.deps {
		if err := dep.Checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("dependency health check failed",
				zap.String("dependency", dep.Name),
				zap.Error(err))
			checks[dep.Name] = "unhealthy"
			allHealthy = false
			continue
		}
		checks[dep.Name] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
