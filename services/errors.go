package services

import "errors"

// Общие ошибки, используемые в сервисах и маппинге HTTP.
var (
	// Ошибки валидации: запрос не уходит в хранилище
	ErrTournamentIDRequired = errors.New("tournamentId is required")
	ErrMatchIDRequired      = errors.New("matchId is required")
	ErrArenaIDRequired      = errors.New("arenaId is required")
	ErrArenaNameRequired    = errors.New("arenaName is required")

	// Ошибки оркестрации координатора
	ErrNoTournamentSelected = errors.New("no tournament is selected")
	ErrMatchNotFound        = errors.New("match not found in the current snapshot")
	ErrArenaNotFound        = errors.New("arena not found")
	ErrArenaOccupied        = errors.New("arena is already occupied by another match")
)

// IsValidationError сообщает, относится ли ошибка к валидации входных данных.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTournamentIDRequired) ||
		errors.Is(err, ErrMatchIDRequired) ||
		errors.Is(err, ErrArenaIDRequired) ||
		errors.Is(err, ErrArenaNameRequired)
}
