package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/governed-notebook/internal/kernel"
	"github.com/upb/governed-notebook/middleware"
	"github.com/upb/governed-notebook/services"
	"github.com/upb/governed-notebook/utils"
	"go.uber.org/zap"
)

// maxCellBytes bounds a submitted cell
const maxCellBytes = 1 << 20

// CellExecutor runs one execution unit
type CellExecutor interface {
	Execute(ctx context.Context, code string) (*kernel.Result, error)
}

// ExecuteCellRequest is the body of POST /api/v1/cells
type ExecuteCellRequest struct {
	Code string `json:"code" validate:"required"`
}

// CellError describes a failed unit
type CellError struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CellResponse is the outcome of one unit
type CellResponse struct {
	CellNumber *int64     `json:"cell_number,omitempty"`
	Status     string     `json:"status"`
	Output     string     `json:"output"`
	Value      *string    `json:"value,omitempty"`
	Error      *CellError `json:"error,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// CellHandler executes cells posted by the hub
type CellHandler struct {
	session CellExecutor
	logger  *zap.Logger
}

// NewCellHandler creates a new CellHandler
func NewCellHandler(session CellExecutor, logger *zap.Logger) *CellHandler {
	return &CellHandler{
		session: session,
		logger:  logger,
	}
}

// HandleExecute handles POST /api/v1/cells. A failed unit is still a 200:
// the failure is reported in the body and the session keeps running.
func (h *CellHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req ExecuteCellRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCellBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleValidationError(w, fmt.Errorf("invalid request body: %w", err), h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.session.Execute(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, kernel.ErrSessionClosed) {
			_ = utils.WriteServiceUnavailable(w, err.Error())
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	resp := newCellResponse(result)
	h.logger.Debug("cell executed",
		zap.String("request_id", requestID),
		zap.String("status", resp.Status))

	if err := utils.WriteOK(w, resp); err != nil {
		h.logger.Error("failed to write cell response", zap.Error(err))
	}
}

func newCellResponse(result *kernel.Result) CellResponse {
	resp := CellResponse{
		Status:     "success",
		Output:     result.Output,
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Record != nil {
		n := result.Record.CellNumber
		resp.CellNumber = &n
	}
	if result.Value != nil {
		v := fmt.Sprint(result.Value)
		resp.Value = &v
	}
	if result.Err != nil {
		resp.Status = "error"
		resp.Error = &CellError{
			Type:    errorTypeOf(result.Err),
			Message: result.Err.Error(),
			Details: services.GetErrorDetails(result.Err),
		}
	}
	return resp
}

func errorTypeOf(err error) string {
	if t := services.GetErrorType(err); t != "" {
		return string(t)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "interrupted"
	}
	return "runtime"
}
