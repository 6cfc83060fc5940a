package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/services"
)

// DirectorHandler — HTTP-поверхность координатора для пульта оператора.
type DirectorHandler struct {
	service services.DirectorService
	logger  *slog.Logger
}

func NewDirectorHandler(service services.DirectorService, logger *slog.Logger) *DirectorHandler {
	return &DirectorHandler{
		service: service,
		logger:  logger,
	}
}

// ListTournaments обрабатывает GET /api/tournaments.
func (h *DirectorHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.service.ListTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, tournaments); err != nil {
		h.logger.Error("failed to write tournaments response", slog.Any("error", err))
	}
}

// SelectTournament обрабатывает POST /api/tournaments/{tournamentID}/select.
func (h *DirectorHandler) SelectTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	if err := h.service.SelectTournament(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true, "tournamentId": tournamentID}); err != nil {
		h.logger.Error("failed to write select response", slog.Any("error", err))
	}
}

// DeselectTournament обрабатывает POST /api/tournaments/deselect.
func (h *DirectorHandler) DeselectTournament(w http.ResponseWriter, r *http.Request) {
	h.service.DeselectTournament()

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}); err != nil {
		h.logger.Error("failed to write deselect response", slog.Any("error", err))
	}
}

// View обрабатывает GET /api/view. Опциональный query-параметр bracket
// сужает набор готовых и подходящих матчей одной частью сетки.
func (h *DirectorHandler) View(w http.ResponseWriter, r *http.Request) {
	if bracket := r.URL.Query().Get("bracket"); bracket != "" {
		h.service.SetBracketFilter(models.BracketType(bracket))
	}

	if err := writeJSON(w, http.StatusOK, h.service.View()); err != nil {
		h.logger.Error("failed to write view response", slog.Any("error", err))
	}
}

type assignRequest struct {
	MatchID    string `json:"matchId"`
	ArenaID    string `json:"arenaId"`
	AssignedBy string `json:"assignedBy"`
}

// Assign обрабатывает POST /api/assignments: проверка занятости арены по
// кэшу, запись в леджер, внеочередное обновление и push в оверлей.
func (h *DirectorHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	resp, err := h.service.Assign(r.Context(), req.MatchID, req.ArenaID, req.AssignedBy)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write assignment response", slog.Any("error", err))
	}
}

// Unassign обрабатывает DELETE /api/assignments/{matchID}.
func (h *DirectorHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	if err := h.service.Unassign(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}); err != nil {
		h.logger.Error("failed to write unassign response", slog.Any("error", err))
	}
}
