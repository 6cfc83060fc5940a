// Package ledger — клиент сервиса леджера назначений. Клиент не хранит
// долговременного состояния: он типизированный доступ к удалённому леджеру
// плюс кэш последнего полученного списка.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nextup/arena-director/models"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	cached []models.Assignment
}

// NewClient создаёт клиент леджера. httpClient может быть nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// List возвращает все назначения турнира и обновляет кэш клиента.
func (c *Client) List(ctx context.Context, tournamentID string) ([]models.Assignment, error) {
	if c.baseURL == "" {
		return nil, ErrBaseURLMissing
	}
	if tournamentID == "" {
		return nil, ErrTournamentIDRequired
	}

	path := "/api/assignments?tournamentId=" + url.QueryEscape(tournamentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(http.MethodGet, path, resp)
	}

	var assignments []models.Assignment
	if err := json.NewDecoder(resp.Body).Decode(&assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	c.mu.Lock()
	c.cached = assignments
	c.mu.Unlock()

	return assignments, nil
}

// Assign создаёт назначение. На сервере это upsert по ключу
// (tournamentId, matchId): переназначение матча — одна идемпотентная
// операция. Уникальность арены клиент не проверяет; это обязанность
// вызывающего до обращения сюда.
func (c *Client) Assign(ctx context.Context, tournamentID, matchID, arenaID, arenaName, assignedBy string) (*models.AssignmentResponse, error) {
	if c.baseURL == "" {
		return nil, ErrBaseURLMissing
	}
	switch {
	case tournamentID == "":
		return nil, ErrTournamentIDRequired
	case matchID == "":
		return nil, ErrMatchIDRequired
	case arenaID == "":
		return nil, ErrArenaIDRequired
	case arenaName == "":
		return nil, ErrArenaNameRequired
	}

	body, err := json.Marshal(models.CreateAssignmentRequest{
		TournamentID: tournamentID,
		MatchID:      matchID,
		ArenaID:      arenaID,
		ArenaName:    arenaName,
		AssignedBy:   assignedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignment request: %w", err)
	}

	path := "/api/assignments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: http.MethodPost, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(http.MethodPost, path, resp)
	}

	var assignResp models.AssignmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&assignResp); err != nil {
		return nil, fmt.Errorf("failed to decode assignment response: %w", err)
	}
	return &assignResp, nil
}

// Unassign удаляет назначение матча. Отсутствие строки — не ошибка.
func (c *Client) Unassign(ctx context.Context, tournamentID, matchID string) error {
	if c.baseURL == "" {
		return ErrBaseURLMissing
	}
	if tournamentID == "" {
		return ErrTournamentIDRequired
	}
	if matchID == "" {
		return ErrMatchIDRequired
	}

	path := "/api/assignments/" + url.PathEscape(matchID) + "?tournamentId=" + url.QueryEscape(tournamentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodDelete, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(http.MethodDelete, path, resp)
	}
	return nil
}

// Ping проверяет доступность сервиса леджера.
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrBaseURLMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build ledger request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodGet, Path: "/healthz", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(http.MethodGet, "/healthz", resp)
	}
	return nil
}

// Cached возвращает последний успешно полученный список назначений.
// Кэш не патчится после мутаций: его обновляет только следующий List.
func (c *Client) Cached() []models.Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Assignment, len(c.cached))
	copy(out, c.cached)
	return out
}

// ClearCache сбрасывает кэш (при смене активного турнира).
func (c *Client) ClearCache() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func (c *Client) statusError(method, path string, resp *http.Response) error {
	transportErr := &TransportError{Method: method, Path: path, Status: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		transportErr.Message = body.Error
	}
	return transportErr
}
