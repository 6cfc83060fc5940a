package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/services"
)

type AssignmentHandler struct {
	service services.AssignmentService
	logger  *slog.Logger
}

func NewAssignmentHandler(service services.AssignmentService, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger,
	}
}

// List обрабатывает GET /api/assignments?tournamentId=...
// Всегда отвечает массивом; отсутствие назначений — пустой массив, не 404.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.URL.Query().Get("tournamentId")

	assignments, err := h.service.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, assignments); err != nil {
		h.logger.Error("failed to write assignments response", slog.Any("error", err))
	}
}

// Create обрабатывает POST /api/assignments. Семантика — upsert по ключу
// (tournamentId, matchId), см. AssignmentService.Create.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	assignment, err := h.service.Create(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	resp := models.AssignmentResponse{
		Success:   true,
		MatchID:   assignment.MatchID,
		ArenaID:   assignment.ArenaID,
		ArenaName: assignment.ArenaName,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write assignment response", slog.Any("error", err))
	}
}

// Delete обрабатывает DELETE /api/assignments/{matchID}?tournamentId=...
// Удаление несуществующей строки — не ошибка.
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	tournamentID := r.URL.Query().Get("tournamentId")

	if err := h.service.Delete(r.Context(), tournamentID, matchID); err != nil {
		mapServiceErrorToHTTP(w, h.logger, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"success": true}); err != nil {
		h.logger.Error("failed to write delete response", slog.Any("error", err))
	}
}
