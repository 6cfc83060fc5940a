package models

import "time"

// MatchStatus представляет статусы матча, как их отдаёт провайдер сетки.
type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusReady      MatchStatus = "ready"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusComplete   MatchStatus = "complete"
)

// BracketType — именованная часть сетки (winners/losers/exhibition/round-robin).
type BracketType string

const (
	BracketWinners    BracketType = "W"
	BracketLosers     BracketType = "L"
	BracketExhibition BracketType = "EX"
	BracketRoundRobin BracketType = "RR"

	// BracketAll используется как значение фильтра "без фильтра".
	BracketAll BracketType = "all"
)

// PrereqCondition описывает, какой исход предыдущего матча заполняет слот.
type PrereqCondition string

const (
	PrereqWinner PrereqCondition = "winner"
	PrereqLoser  PrereqCondition = "loser"
)

// Slot — одна из двух позиций участников в матче. Слот заполняется либо
// посевом (PlayerID известен сразу), либо исходом матча PrereqMatchID.
type Slot struct {
	PlayerID        *string          `json:"player_id"`
	PrereqMatchID   *string          `json:"prereq_match_id"`
	PrereqCondition *PrereqCondition `json:"prereq_condition"`
}

// Game представляет один матч сетки. Снимок неизменяемый: следующий опрос
// провайдера заменяет его целиком.
type Game struct {
	ID             string      `json:"id"`
	Name           string      `json:"name,omitempty"` // например "W:1-1"
	Status         MatchStatus `json:"status"`
	Bracket        BracketType `json:"bracket"`
	Round          int         `json:"round"`
	BestOf         int         `json:"best_of"`
	Slots          [2]Slot     `json:"slots"`
	Scores         *[2]int     `json:"scores,omitempty"`
	WinnerID       *string     `json:"winner_id,omitempty"`
	AvailableSince *int64      `json:"available_since,omitempty"` // unix millis
	NextGameIDs    []string    `json:"next_game_ids,omitempty"`
}

// ScoreToWin возвращает число побед, необходимое для победы в матче.
func (g Game) ScoreToWin() int {
	return (g.BestOf + 1) / 2
}

type Player struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Tag  *string `json:"tag,omitempty"`
	Seed *int    `json:"seed,omitempty"`
}

// Arena — физическая или виртуальная площадка, на которой играется матч.
type Arena struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TournamentStatus string

const (
	TournamentStatusPending    TournamentStatus = "pending"
	TournamentStatusInProgress TournamentStatus = "in_progress"
	TournamentStatusComplete   TournamentStatus = "complete"
)

// Tournament — полный снимок турнира от провайдера сетки.
type Tournament struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  TournamentStatus `json:"status"`
	Games   []Game           `json:"games"`
	Players []Player         `json:"players"`
	Arenas  []Arena          `json:"arenas"`
}

// PlayerByID ищет игрока в снимке; nil, если не найден.
func (t *Tournament) PlayerByID(id string) *Player {
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i]
		}
	}
	return nil
}

// GameByID ищет матч в снимке; nil, если не найден.
func (t *Tournament) GameByID(id string) *Game {
	for i := range t.Games {
		if t.Games[i].ID == id {
			return &t.Games[i]
		}
	}
	return nil
}

type TournamentListItem struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    TournamentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
