package repositories

import (
	"context"
	"sync"

	"github.com/nextup/arena-director/models"
)

type assignmentKey struct {
	tournamentID string
	matchID      string
}

// memoryAssignmentRepository — реализация хранилища в памяти с той же
// upsert-семантикой, что и у Postgres. Используется в тестах.
type memoryAssignmentRepository struct {
	mu    sync.RWMutex
	rows  map[assignmentKey]models.Assignment
	order []assignmentKey
}

func NewMemoryAssignmentRepository() AssignmentRepository {
	return &memoryAssignmentRepository{
		rows: make(map[assignmentKey]models.Assignment),
	}
}

func (r *memoryAssignmentRepository) ListByTournament(_ context.Context, tournamentID string) ([]models.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignments := make([]models.Assignment, 0)
	for _, key := range r.order {
		if key.tournamentID != tournamentID {
			continue
		}
		if row, ok := r.rows[key]; ok {
			assignments = append(assignments, row)
		}
	}
	return assignments, nil
}

func (r *memoryAssignmentRepository) Upsert(_ context.Context, assignment *models.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := assignmentKey{tournamentID: assignment.TournamentID, matchID: assignment.MatchID}
	if existing, ok := r.rows[key]; ok {
		// Идентичность строки сохраняется при перезаписи, как в БД.
		updated := *assignment
		updated.ID = existing.ID
		r.rows[key] = updated
		return nil
	}

	r.rows[key] = *assignment
	r.order = append(r.order, key)
	return nil
}

func (r *memoryAssignmentRepository) Delete(_ context.Context, tournamentID, matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := assignmentKey{tournamentID: tournamentID, matchID: matchID}
	if _, ok := r.rows[key]; !ok {
		return nil
	}
	delete(r.rows, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
