package models

import (
	"fmt"
	"time"
)

var bracketNames = map[BracketType]string{
	BracketWinners:    "Winners Bracket",
	BracketLosers:     "Losers Bracket",
	BracketExhibition: "Exhibition",
	BracketRoundRobin: "Round Robin",
}

var bracketShortNames = map[BracketType]string{
	BracketWinners:    "Winners",
	BracketLosers:     "Losers",
	BracketExhibition: "Exhibition",
	BracketRoundRobin: "Round Robin",
}

// BracketName возвращает отображаемое имя части сетки.
func BracketName(b BracketType) string {
	if name, ok := bracketNames[b]; ok {
		return name
	}
	return string(b)
}

// BracketShortName возвращает краткое отображаемое имя части сетки.
func BracketShortName(b BracketType) string {
	if name, ok := bracketShortNames[b]; ok {
		return name
	}
	return string(b)
}

// FormatWaitTime форматирует время ожидания матча для оператора.
// Пустая строка, если матч ещё не доступен.
func FormatWaitTime(availableSince *int64, now time.Time) string {
	if availableSince == nil {
		return ""
	}

	wait := now.Sub(time.UnixMilli(*availableSince))
	if wait < 0 {
		return ""
	}

	minutes := int(wait.Minutes())
	hours := minutes / 60

	if hours > 0 {
		if rem := minutes % 60; rem > 0 {
			return fmt.Sprintf("%dh %dm waiting", hours, rem)
		}
		return fmt.Sprintf("%dh waiting", hours)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm waiting", minutes)
	}
	return "Just ready"
}
