package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nextup/arena-director/status"
)

// StatusHandler отдаёт сводку доступности внешних сервисов.
type StatusHandler struct {
	checker *status.Checker
	logger  *slog.Logger
}

func NewStatusHandler(checker *status.Checker, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		checker: checker,
		logger:  logger,
	}
}

// Status обрабатывает GET /api/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	if err := writeJSON(w, http.StatusOK, report); err != nil {
		h.logger.Error("failed to write status response", slog.Any("error", err))
	}
}
