package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nextup/arena-director/overlay"
)

// OverlayHandler управляет соединением с оверлеем по командам оператора.
// Если в запросе нет адреса или пароля, берутся значения из конфигурации.
type OverlayHandler struct {
	supervisor      *overlay.Supervisor
	defaultURL      string
	defaultPassword string
	logger          *slog.Logger
}

func NewOverlayHandler(supervisor *overlay.Supervisor, defaultURL, defaultPassword string, logger *slog.Logger) *OverlayHandler {
	return &OverlayHandler{
		supervisor:      supervisor,
		defaultURL:      defaultURL,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

type overlayConnectRequest struct {
	URL      string `json:"url"`
	Password string `json:"password"`
}

type overlayStatusResponse struct {
	State     string  `json:"state"`
	LastError *string `json:"last_error,omitempty"`
}

// Connect обрабатывает POST /api/overlay/connect. Попытка ручная: до
// следующего успеха фоновое переподключение выключено.
func (h *OverlayHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req overlayConnectRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err)
			return
		}
	}

	url := req.URL
	if url == "" {
		url = h.defaultURL
	}
	password := req.Password
	if password == "" {
		password = h.defaultPassword
	}
	if url == "" {
		errorResponse(w, http.StatusBadRequest, "overlay url is not configured")
		return
	}

	if err := h.supervisor.Connect(url, password, true); err != nil {
		errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeStatus(w)
}

// Disconnect обрабатывает POST /api/overlay/disconnect.
func (h *OverlayHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.supervisor.Disconnect()
	h.writeStatus(w)
}

// Status обрабатывает GET /api/overlay/status.
func (h *OverlayHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w)
}

func (h *OverlayHandler) writeStatus(w http.ResponseWriter) {
	resp := overlayStatusResponse{
		State:     string(h.supervisor.State()),
		LastError: h.supervisor.LastError(),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write overlay status response", slog.Any("error", err))
	}
}
