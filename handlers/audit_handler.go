package handlers

import (
	"net/http"

	"github.com/upb/governed-notebook/services/audit"
	"github.com/upb/governed-notebook/utils"
	"go.uber.org/zap"
)

// AuditHandler serves the session user's execution history. Reads are
// always scoped to the owner of the session.
type AuditHandler struct {
	history  *audit.History
	username string
	logger   *zap.Logger
}

// NewAuditHandler creates a new AuditHandler. history may be nil when no
// audit store is configured; every endpoint then answers 503.
func NewAuditHandler(history *audit.History, username string, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		history:  history,
		username: username,
		logger:   logger,
	}
}

// HandleList handles GET /api/v1/audit/logs?limit=&offset=
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	logs, err := h.history.List(r.Context(), h.username, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, logs)
}

// HandleSearch handles GET /api/v1/audit/search?q=&limit=
func (h *AuditHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	limit, _, ok := h.page(w, r)
	if !ok {
		return
	}

	records, err := h.history.Search(r.Context(), h.username, r.URL.Query().Get("q"), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, records)
}

// HandleStats handles GET /api/v1/audit/stats
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}

	stats, err := h.history.Stats(r.Context(), h.username)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, stats)
}

// HandleDaily handles GET /api/v1/audit/daily?days=
func (h *AuditHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w) {
		return
	}
	days, err := utils.QueryInt(r, "days", audit.DefaultStatsDays)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	daily, err := h.history.Daily(r.Context(), h.username, days)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, daily)
}

func (h *AuditHandler) enabled(w http.ResponseWriter) bool {
	if h.history == nil {
		_ = utils.WriteServiceUnavailable(w, "execution auditing is not configured")
		return false
	}
	return true
}

func (h *AuditHandler) page(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, err := utils.QueryInt(r, "limit", audit.DefaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, 0, false
	}
	offset, err = utils.QueryInt(r, "offset", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, 0, false
	}
	return limit, offset, true
}

