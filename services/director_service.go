package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextup/arena-director/metrics"
	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/overlay"
	"github.com/nextup/arena-director/scheduler"
)

type tournamentProvider interface {
	ListTournaments(ctx context.Context) ([]models.TournamentListItem, error)
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
}

type assignmentLedger interface {
	Assign(ctx context.Context, tournamentID, matchID, arenaID, arenaName, assignedBy string) (*models.AssignmentResponse, error)
	Unassign(ctx context.Context, tournamentID, matchID string) error
}

type overlayPusher interface {
	State() overlay.State
	UpdateMatch(ctx context.Context, game models.Game, players []models.Player, arenaName string) error
}

// DirectorService — оркестрация рабочего потока оператора: выбор турнира,
// назначение матчей на арены и выталкивание назначенного матча в оверлей.
type DirectorService interface {
	ListTournaments(ctx context.Context) ([]models.TournamentListItem, error)
	SelectTournament(ctx context.Context, tournamentID string) error
	DeselectTournament()
	SetBracketFilter(filter models.BracketType)
	View() scheduler.View
	Assign(ctx context.Context, matchID, arenaID, assignedBy string) (*models.AssignmentResponse, error)
	Unassign(ctx context.Context, matchID string) error
}

type directorService struct {
	provider  tournamentProvider
	ledger    assignmentLedger
	overlay   overlayPusher
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewDirectorService(p tournamentProvider, l assignmentLedger, o overlayPusher, s *scheduler.Scheduler, m *metrics.Metrics, logger *slog.Logger) DirectorService {
	return &directorService{
		provider:  p,
		ledger:    l,
		overlay:   o,
		scheduler: s,
		metrics:   m,
		logger:    logger,
	}
}

func (s *directorService) ListTournaments(ctx context.Context) ([]models.TournamentListItem, error) {
	tournaments, err := s.provider.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	if tournaments == nil {
		tournaments = []models.TournamentListItem{}
	}
	return tournaments, nil
}

// SelectTournament проверяет, что турнир существует у провайдера, и запускает
// опрос. Опрос прежнего турнира при этом останавливается.
func (s *directorService) SelectTournament(ctx context.Context, tournamentID string) error {
	if tournamentID == "" {
		return ErrTournamentIDRequired
	}

	if _, err := s.provider.GetTournament(ctx, tournamentID); err != nil {
		return fmt.Errorf("failed to load tournament %s: %w", tournamentID, err)
	}

	s.scheduler.Start(tournamentID)
	return nil
}

func (s *directorService) DeselectTournament() {
	s.scheduler.Stop()
}

func (s *directorService) SetBracketFilter(filter models.BracketType) {
	s.scheduler.SetBracketFilter(filter)
}

func (s *directorService) View() scheduler.View {
	return s.scheduler.View()
}

// Assign назначает матч на арену. Проверка занятости арены — консультативная,
// по последнему снимку: истинный арбитр уникальности по матчу — upsert
// леджера, а гонку двух операторов за одну арену протокол не исключает.
func (s *directorService) Assign(ctx context.Context, matchID, arenaID, assignedBy string) (*models.AssignmentResponse, error) {
	if matchID == "" {
		return nil, ErrMatchIDRequired
	}
	if arenaID == "" {
		return nil, ErrArenaIDRequired
	}

	view := s.scheduler.View()
	if view.TournamentID == "" {
		return nil, ErrNoTournamentSelected
	}
	if view.Tournament == nil {
		return nil, fmt.Errorf("tournament snapshot is not available yet")
	}

	game := view.Tournament.GameByID(matchID)
	if game == nil {
		return nil, ErrMatchNotFound
	}

	var arena *models.Arena
	for i := range view.ArenaOccupancy {
		occupancy := &view.ArenaOccupancy[i]
		if occupancy.Arena.ID != arenaID {
			continue
		}
		if occupancy.Assignment != nil && occupancy.Assignment.MatchID != matchID {
			return nil, ErrArenaOccupied
		}
		arena = &occupancy.Arena
		break
	}
	if arena == nil {
		return nil, ErrArenaNotFound
	}

	resp, err := s.ledger.Assign(ctx, view.TournamentID, matchID, arena.ID, arena.Name, assignedBy)
	if err != nil {
		s.metrics.AssignmentsTotal.WithLabelValues("assign", "fail").Inc()
		return nil, fmt.Errorf("failed to record assignment: %w", err)
	}
	s.metrics.AssignmentsTotal.WithLabelValues("assign", "success").Inc()

	if err := s.scheduler.RefreshAssignments(ctx); err != nil {
		s.logger.Warn("assignment refresh after create failed", slog.Any("error", err))
	}

	// Выталкивание в оверлей — best effort: назначение уже записано,
	// сбой оверлея его не откатывает.
	if s.overlay.State() == overlay.StateConnected {
		if err := s.overlay.UpdateMatch(ctx, *game, view.Tournament.Players, arena.Name); err != nil {
			s.logger.Warn("overlay update after assignment failed",
				slog.String("match_id", matchID),
				slog.Any("error", err),
			)
		}
	}

	return resp, nil
}

func (s *directorService) Unassign(ctx context.Context, matchID string) error {
	if matchID == "" {
		return ErrMatchIDRequired
	}

	tournamentID := s.scheduler.TournamentID()
	if tournamentID == "" {
		return ErrNoTournamentSelected
	}

	if err := s.ledger.Unassign(ctx, tournamentID, matchID); err != nil {
		s.metrics.AssignmentsTotal.WithLabelValues("unassign", "fail").Inc()
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	s.metrics.AssignmentsTotal.WithLabelValues("unassign", "success").Inc()

	if err := s.scheduler.RefreshAssignments(ctx); err != nil {
		s.logger.Warn("assignment refresh after delete failed", slog.Any("error", err))
	}
	return nil
}
