// Package provider реализует клиент read-only API провайдера турнирной сетки.
// Провайдер — единственный источник истины о составе и готовности матчей;
// этот клиент только переводит его ответы в доменные модели.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nextup/arena-director/models"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	userID     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент провайдера. httpClient может быть nil — тогда
// используется клиент с таймаутом по умолчанию.
func NewClient(baseURL, userID, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// CheckCredentials проверяет наличие учётных данных, не делая запросов.
func (c *Client) CheckCredentials() error {
	if c.userID == "" || c.apiKey == "" {
		return ErrCredentialsMissing
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, dst interface{}) error {
	if err := c.CheckCredentials(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("x-api-user-id", c.userID)
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode provider response for %s: %w", path, err)
	}
	return nil
}

// ListTournaments возвращает список турниров пользователя.
func (c *Client) ListTournaments(ctx context.Context) ([]models.TournamentListItem, error) {
	var wire []wireTournamentListItem
	if err := c.get(ctx, "/v1/user/tournaments", &wire); err != nil {
		return nil, err
	}

	items := make([]models.TournamentListItem, 0, len(wire))
	for _, t := range wire {
		items = append(items, t.toModel())
	}
	return items, nil
}

// GetTournament возвращает полный снимок турнира.
func (c *Client) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var wire wireTournamentDetail
	if err := c.get(ctx, "/v1/tournaments/"+id, &wire); err != nil {
		return nil, err
	}

	tournament := wire.toModel()
	return &tournament, nil
}

// --- wire-типы провайдера и их перевод в доменные модели ---

type wireTournamentListItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CreateTime int64  `json:"createTime"` // unix millis
	EndTime    *int64 `json:"endTime"`
}

func (w wireTournamentListItem) toModel() models.TournamentListItem {
	status := models.TournamentStatusInProgress
	if w.EndTime != nil {
		status = models.TournamentStatusComplete
	}
	return models.TournamentListItem{
		ID:        w.ID,
		Name:      w.Title,
		Status:    status,
		CreatedAt: time.UnixMilli(w.CreateTime),
	}
}

type wireSlot struct {
	PlayerID   *string `json:"playerID"`
	PrevGameID *string `json:"prevGameID"`
	Score      int     `json:"score"`
}

type wireGame struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	BracketID       string   `json:"bracketID"`
	Round           int      `json:"round"`
	ScoreToWin      int      `json:"scoreToWin"`
	Slots           []wireSlot `json:"slots"`
	State           string   `json:"state"`
	AvailableSince  *int64   `json:"availableSince"`
	NextGameSlotIDs []string `json:"nextGameSlotIDs"`
}

type wirePlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Seed        int    `json:"seed"`
	ProfileInfo *struct {
		Tag *string `json:"tag"`
	} `json:"profileInfo"`
}

type wireLocation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireTournamentDetail struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	EndTime   *int64         `json:"endTime"`
	Players   []wirePlayer   `json:"players"`
	Locations []wireLocation `json:"locations"`
	Games     []wireGame     `json:"games"`
}

func mapGameState(state string) models.MatchStatus {
	switch state {
	case "available":
		return models.MatchStatusReady
	case "active":
		return models.MatchStatusInProgress
	case "complete":
		return models.MatchStatusComplete
	default:
		return models.MatchStatusPending
	}
}

func mapBracket(bracketID string) models.BracketType {
	switch b := models.BracketType(bracketID); b {
	case models.BracketWinners, models.BracketLosers, models.BracketExhibition, models.BracketRoundRobin:
		return b
	}
	return models.BracketWinners
}

func mapSlot(w wireSlot) models.Slot {
	slot := models.Slot{
		PlayerID:      w.PlayerID,
		PrereqMatchID: w.PrevGameID,
	}
	if w.PrevGameID != nil {
		cond := models.PrereqWinner
		slot.PrereqCondition = &cond
	}
	return slot
}

// nextGameIDs извлекает ID следующих матчей из идентификаторов слотов
// вида "W-4+0" и убирает дубли, сохраняя порядок.
func nextGameIDs(slotIDs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, slotID := range slotIDs {
		gameID := slotID
		if i := strings.IndexByte(slotID, '+'); i >= 0 {
			gameID = slotID[:i]
		}
		if _, ok := seen[gameID]; ok {
			continue
		}
		seen[gameID] = struct{}{}
		out = append(out, gameID)
	}
	return out
}

func (w wireGame) toModel() models.Game {
	var slot0, slot1 wireSlot
	if len(w.Slots) > 0 {
		slot0 = w.Slots[0]
	}
	if len(w.Slots) > 1 {
		slot1 = w.Slots[1]
	}

	game := models.Game{
		ID:      w.ID,
		Name:    w.Name,
		Status:  mapGameState(w.State),
		Bracket: mapBracket(w.BracketID),
		Round:   w.Round,
		// scoreToWin 1 = Bo1, scoreToWin 2 = Bo3 и т.д.
		BestOf:         w.ScoreToWin*2 - 1,
		Slots:          [2]models.Slot{mapSlot(slot0), mapSlot(slot1)},
		AvailableSince: w.AvailableSince,
		NextGameIDs:    nextGameIDs(w.NextGameSlotIDs),
	}

	scores := [2]int{slot0.Score, slot1.Score}
	game.Scores = &scores

	if game.Status == models.MatchStatusComplete {
		if slot0.Score > slot1.Score {
			game.WinnerID = slot0.PlayerID
		} else {
			game.WinnerID = slot1.PlayerID
		}
	}

	return game
}

func (w wireTournamentDetail) toModel() models.Tournament {
	status := models.TournamentStatusInProgress
	if w.EndTime != nil {
		status = models.TournamentStatusComplete
	}

	tournament := models.Tournament{
		ID:     w.ID,
		Name:   w.Title,
		Status: status,
	}

	tournament.Players = make([]models.Player, 0, len(w.Players))
	for _, p := range w.Players {
		player := models.Player{ID: p.ID, Name: p.Name}
		if p.Seed != 0 {
			seed := p.Seed
			player.Seed = &seed
		}
		if p.ProfileInfo != nil && p.ProfileInfo.Tag != nil {
			player.Tag = p.ProfileInfo.Tag
		}
		tournament.Players = append(tournament.Players, player)
	}

	tournament.Games = make([]models.Game, 0, len(w.Games))
	for _, g := range w.Games {
		tournament.Games = append(tournament.Games, g.toModel())
	}

	tournament.Arenas = make([]models.Arena, 0, len(w.Locations))
	for _, l := range w.Locations {
		tournament.Arenas = append(tournament.Arenas, models.Arena{ID: l.ID, Name: l.Name})
	}

	return tournament
}
