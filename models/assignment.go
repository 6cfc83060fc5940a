package models

// Assignment — привязка одного матча к одной арене. Для пары
// (tournament_id, match_id) в леджере существует не более одной строки.
type Assignment struct {
	ID           string  `json:"id" db:"id"`
	TournamentID string  `json:"tournament_id" db:"tournament_id"`
	MatchID      string  `json:"match_id" db:"match_id"`
	ArenaID      string  `json:"arena_id" db:"arena_id"`
	ArenaName    string  `json:"arena_name" db:"arena_name"`
	AssignedAt   int64   `json:"assigned_at" db:"assigned_at"` // seconds since epoch
	AssignedBy   *string `json:"assigned_by" db:"assigned_by"`
}

// CreateAssignmentRequest — тело POST /api/assignments.
type CreateAssignmentRequest struct {
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	ArenaID      string `json:"arenaId"`
	ArenaName    string `json:"arenaName"`
	AssignedBy   string `json:"assignedBy,omitempty"`
}

// AssignmentResponse — ответ леджера на успешный upsert.
type AssignmentResponse struct {
	Success   bool   `json:"success"`
	MatchID   string `json:"matchId"`
	ArenaID   string `json:"arenaId"`
	ArenaName string `json:"arenaName"`
}
