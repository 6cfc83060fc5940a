package ledger

import (
	"errors"
	"fmt"
)

// Ошибки валидации: запрос с такими полями на сервер не отправляется.
var (
	ErrBaseURLMissing       = errors.New("ledger base URL is not configured")
	ErrTournamentIDRequired = errors.New("tournamentId is required")
	ErrMatchIDRequired      = errors.New("matchId is required")
	ErrArenaIDRequired      = errors.New("arenaId is required")
	ErrArenaNameRequired    = errors.New("arenaName is required")
)

// TransportError — сетевой сбой или не-2xx ответ леджера. Не ретраится
// внутри клиента: повтор — дело планировщика или оператора.
type TransportError struct {
	Method  string
	Path    string
	Status  int
	Message string // тело {error: ...}, если леджер его прислал
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("ledger request failed: %s %s -> %d: %s", e.Method, e.Path, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("ledger request failed: %s %s -> %d", e.Method, e.Path, e.Status)
	default:
		return fmt.Sprintf("ledger request failed: %s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }
