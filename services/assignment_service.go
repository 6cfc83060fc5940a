package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/repositories"
)

// AssignmentService — серверная сторона леджера назначений.
type AssignmentService interface {
	ListByTournament(ctx context.Context, tournamentID string) ([]models.Assignment, error)
	Create(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, tournamentID, matchID string) error
}

type assignmentService struct {
	repo repositories.AssignmentRepository
	now  func() time.Time
}

func NewAssignmentService(repo repositories.AssignmentRepository) AssignmentService {
	return &assignmentService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *assignmentService) ListByTournament(ctx context.Context, tournamentID string) ([]models.Assignment, error) {
	if tournamentID == "" {
		return nil, ErrTournamentIDRequired
	}

	assignments, err := s.repo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if assignments == nil {
		// Пустой список, а не null: контракт API — всегда массив
		return []models.Assignment{}, nil
	}
	return assignments, nil
}

// Create выполняет upsert по ключу (tournament_id, match_id): повторное
// назначение матча на другую арену перезаписывает прежнюю строку, второй
// строки для того же матча не появляется.
func (s *assignmentService) Create(ctx context.Context, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	switch {
	case req.TournamentID == "":
		return nil, ErrTournamentIDRequired
	case req.MatchID == "":
		return nil, ErrMatchIDRequired
	case req.ArenaID == "":
		return nil, ErrArenaIDRequired
	case req.ArenaName == "":
		return nil, ErrArenaNameRequired
	}

	now := s.now()
	assignment := &models.Assignment{
		ID:           fmt.Sprintf("%s-%s-%d", req.TournamentID, req.MatchID, now.UnixMilli()),
		TournamentID: req.TournamentID,
		MatchID:      req.MatchID,
		ArenaID:      req.ArenaID,
		ArenaName:    req.ArenaName,
		AssignedAt:   now.Unix(),
	}
	if req.AssignedBy != "" {
		assignedBy := req.AssignedBy
		assignment.AssignedBy = &assignedBy
	}

	if err := s.repo.Upsert(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, tournamentID, matchID string) error {
	if tournamentID == "" {
		return ErrTournamentIDRequired
	}
	if matchID == "" {
		return ErrMatchIDRequired
	}

	if err := s.repo.Delete(ctx, tournamentID, matchID); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}
