// Package brackets классифицирует матчи сетки по готовности к игре.
// Сам расчёт продвижения по сетке делает провайдер; здесь только чистые,
// тотальные функции над его снимком.
package brackets

import (
	"sort"

	"github.com/nextup/arena-director/models"
)

func isActive(status models.MatchStatus) bool {
	return status == models.MatchStatusReady || status == models.MatchStatusInProgress
}

func matchesBracket(game models.Game, filter models.BracketType) bool {
	return filter == models.BracketAll || filter == "" || game.Bracket == filter
}

// Ready возвращает матчи, которые можно играть прямо сейчас (ready или
// in_progress), отсортированные по возрастанию AvailableSince. Матчи без
// отметки времени всегда в конце: известное время ожидания приоритетнее
// неизвестного. Фильтр по части сетки опционален, BracketAll — без фильтра.
func Ready(games []models.Game, filter models.BracketType) []models.Game {
	ready := make([]models.Game, 0)
	for _, game := range games {
		if isActive(game.Status) && matchesBracket(game, filter) {
			ready = append(ready, game)
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i].AvailableSince, ready[j].AvailableSince
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	return ready
}

// Upcoming возвращает pending-матчи, хотя бы один слот которых ждёт исхода
// активного (ready/in_progress) матча, то есть матчи "на подходе".
// Сортировка по возрастанию раунда. Pending-матчи без такой зависимости
// не включаются.
func Upcoming(games []models.Game, filter models.BracketType) []models.Game {
	active := make(map[string]struct{})
	for _, game := range games {
		if isActive(game.Status) {
			active[game.ID] = struct{}{}
		}
	}

	upcoming := make([]models.Game, 0)
	for _, game := range games {
		if game.Status != models.MatchStatusPending || !matchesBracket(game, filter) {
			continue
		}
		if dependsOnActive(game, active) {
			upcoming = append(upcoming, game)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Round < upcoming[j].Round
	})

	return upcoming
}

func dependsOnActive(game models.Game, active map[string]struct{}) bool {
	for _, slot := range game.Slots {
		if slot.PrereqMatchID == nil {
			continue
		}
		if _, ok := active[*slot.PrereqMatchID]; ok {
			return true
		}
	}
	return false
}

// AvailableBrackets возвращает отсортированный список частей сетки,
// встречающихся в снимке.
func AvailableBrackets(games []models.Game) []models.BracketType {
	seen := make(map[models.BracketType]struct{})
	for _, game := range games {
		seen[game.Bracket] = struct{}{}
	}

	out := make([]models.BracketType, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
