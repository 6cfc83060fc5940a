package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nextup/arena-director/models"
)

// AssignmentRepository — хранилище назначений матч↔арена. Ключ уникальности —
// пара (tournament_id, match_id): Upsert для уже назначенного матча
// перезаписывает строку, а не добавляет новую.
type AssignmentRepository interface {
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Assignment, error)
	Upsert(ctx context.Context, assignment *models.Assignment) error
	// Delete удаляет строку по ключу; отсутствие строки не считается ошибкой.
	Delete(ctx context.Context, tournamentID, matchID string) error
}

type postgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &postgresAssignmentRepository{db: db}
}

func (r *postgresAssignmentRepository) ListByTournament(ctx context.Context, tournamentID string) ([]models.Assignment, error) {
	query := `
		SELECT id, tournament_id, match_id, arena_id, arena_name, assigned_at, assigned_by
		FROM assignments
		WHERE tournament_id = $1
		ORDER BY assigned_at`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	assignments := make([]models.Assignment, 0)
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(
			&a.ID,
			&a.TournamentID,
			&a.MatchID,
			&a.ArenaID,
			&a.ArenaName,
			&a.AssignedAt,
			&a.AssignedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignment rows: %w", err)
	}

	return assignments, nil
}

func (r *postgresAssignmentRepository) Upsert(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, tournament_id, match_id, arena_id, arena_name, assigned_at, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, match_id)
		DO UPDATE SET arena_id = EXCLUDED.arena_id,
		              arena_name = EXCLUDED.arena_name,
		              assigned_at = EXCLUDED.assigned_at,
		              assigned_by = EXCLUDED.assigned_by`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.TournamentID,
		assignment.MatchID,
		assignment.ArenaID,
		assignment.ArenaName,
		assignment.AssignedAt,
		assignment.AssignedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment for match %s: %w", assignment.MatchID, err)
	}
	return nil
}

func (r *postgresAssignmentRepository) Delete(ctx context.Context, tournamentID, matchID string) error {
	query := `DELETE FROM assignments WHERE tournament_id = $1 AND match_id = $2`

	// Нулевое число затронутых строк — валидный исход: delete-if-exists.
	if _, err := r.db.ExecContext(ctx, query, tournamentID, matchID); err != nil {
		return fmt.Errorf("failed to delete assignment for match %s: %w", matchID, err)
	}
	return nil
}
