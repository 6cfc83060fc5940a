// Package scheduler управляет периодическим обновлением снимка турнира и
// списка назначений. Две независимые петли опроса: сбой одной не блокирует
// другую, последний удачный снимок продолжает отдаваться при ошибках
// (stale-but-available важнее, чем unavailable).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextup/arena-director/brackets"
	"github.com/nextup/arena-director/ledger"
	"github.com/nextup/arena-director/metrics"
	"github.com/nextup/arena-director/models"
)

type TournamentFetcher interface {
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
}

type AssignmentLister interface {
	List(ctx context.Context, tournamentID string) ([]models.Assignment, error)
}

var _ AssignmentLister = (*ledger.Client)(nil)

// ArenaOccupancy — арена с её текущим назначением и матчем, если есть.
type ArenaOccupancy struct {
	Arena      models.Arena       `json:"arena"`
	Assignment *models.Assignment `json:"assignment"`
	Game       *models.Game       `json:"game"`
}

// ReadyMatch — готовый матч с отображаемыми подписями для пульта оператора.
type ReadyMatch struct {
	models.Game
	WaitLabel    string `json:"wait_label"`
	BracketLabel string `json:"bracket_label"`
}

// View — объединённое производное представление двух лент. Турнирные данные
// и назначения могут быть сняты в чуть разные моменты; это принятая
// eventual consistency с окном не больше одного интервала опроса.
type View struct {
	TournamentID     string               `json:"tournament_id"`
	Tournament       *models.Tournament   `json:"tournament,omitempty"`
	Ready            []ReadyMatch         `json:"ready"`
	Upcoming         []models.Game        `json:"upcoming"`
	Brackets         []models.BracketType `json:"brackets"`
	Assignments      []models.Assignment  `json:"assignments"`
	ArenaOccupancy   []ArenaOccupancy     `json:"arena_occupancy"`
	UnassignedReady  []models.Game        `json:"unassigned_ready"`
	TournamentError  string               `json:"tournament_error,omitempty"`
	AssignmentsError string               `json:"assignments_error,omitempty"`
}

type Config struct {
	TournamentPollInterval time.Duration
	AssignmentPollInterval time.Duration
	// DefaultArenas подставляются, когда снимок турнира не несёт локаций.
	DefaultArenas []string
}

type Scheduler struct {
	provider TournamentFetcher
	ledger   AssignmentLister
	logger   *slog.Logger
	metrics  *metrics.Metrics

	tournamentInterval time.Duration
	assignmentInterval time.Duration
	defaultArenas      []string

	mu             sync.RWMutex
	tournamentID   string
	cancel         context.CancelFunc
	generation     int
	bracketFilter  models.BracketType
	snapshot       *models.Tournament
	snapshotErr    string
	assignments    []models.Assignment
	assignmentsErr string
}

func New(provider TournamentFetcher, lister AssignmentLister, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Scheduler {
	if cfg.TournamentPollInterval <= 0 {
		cfg.TournamentPollInterval = 2 * time.Second
	}
	if cfg.AssignmentPollInterval <= 0 {
		cfg.AssignmentPollInterval = 2 * time.Second
	}
	return &Scheduler{
		provider:           provider,
		ledger:             lister,
		logger:             logger,
		metrics:            m,
		tournamentInterval: cfg.TournamentPollInterval,
		assignmentInterval: cfg.AssignmentPollInterval,
		defaultArenas:      cfg.DefaultArenas,
		bracketFilter:      models.BracketAll,
	}
}

// Start запускает обе петли опроса для турнира. Активный опрос прежнего
// турнира отменяется первым: в каждый момент опрашивается не более одного
// турнира, а результаты отменённых циклов отбрасываются по номеру поколения.
func (s *Scheduler) Start(tournamentID string) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.generation++
	gen := s.generation
	s.tournamentID = tournamentID
	s.snapshot = nil
	s.snapshotErr = ""
	s.assignments = nil
	s.assignmentsErr = ""
	s.mu.Unlock()

	s.logger.Info("polling started", slog.String("tournament_id", tournamentID))

	go s.pollTournament(ctx, gen, tournamentID)
	go s.pollAssignments(ctx, gen, tournamentID)
}

// Stop останавливает опрос и очищает кэшированные снимок и список назначений.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.tournamentID = ""
	s.snapshot = nil
	s.snapshotErr = ""
	s.assignments = nil
	s.assignmentsErr = ""
	s.mu.Unlock()
}

// TournamentID возвращает идентификатор опрашиваемого турнира; пустая строка,
// если опрос не идёт.
func (s *Scheduler) TournamentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tournamentID
}

func (s *Scheduler) SetBracketFilter(filter models.BracketType) {
	s.mu.Lock()
	if filter == "" {
		filter = models.BracketAll
	}
	s.bracketFilter = filter
	s.mu.Unlock()
}

// pollTournament — петля опроса снимка турнира. Тики строго последовательны:
// следующий не планируется, пока не завершился текущий fetch.
func (s *Scheduler) pollTournament(ctx context.Context, gen int, tournamentID string) {
	for {
		s.refreshTournament(ctx, gen, tournamentID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.tournamentInterval):
		}
	}
}

func (s *Scheduler) pollAssignments(ctx context.Context, gen int, tournamentID string) {
	for {
		s.refreshAssignments(ctx, gen, tournamentID)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.assignmentInterval):
		}
	}
}

func (s *Scheduler) refreshTournament(ctx context.Context, gen int, tournamentID string) {
	snapshot, err := s.provider.GetTournament(ctx, tournamentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// Опрос с тех пор остановлен или перезапущен для другого турнира.
		return
	}

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.snapshotErr = err.Error()
		s.metrics.PollTicksTotal.WithLabelValues("tournament", "fail").Inc()
		s.logger.Warn("tournament poll failed",
			slog.String("tournament_id", tournamentID),
			slog.Any("error", err),
		)
		return
	}

	// Снимок заменяется целиком, без инкрементальных патчей.
	s.snapshot = snapshot
	s.snapshotErr = ""
	s.metrics.PollTicksTotal.WithLabelValues("tournament", "success").Inc()
}

func (s *Scheduler) refreshAssignments(ctx context.Context, gen int, tournamentID string) {
	assignments, err := s.ledger.List(ctx, tournamentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.assignmentsErr = err.Error()
		s.metrics.PollTicksTotal.WithLabelValues("assignments", "fail").Inc()
		s.logger.Warn("assignment poll failed",
			slog.String("tournament_id", tournamentID),
			slog.Any("error", err),
		)
		return
	}

	s.assignments = assignments
	s.assignmentsErr = ""
	s.metrics.PollTicksTotal.WithLabelValues("assignments", "success").Inc()
}

// RefreshAssignments — внеочередное обновление списка назначений после
// мутации; кэш не патчится оптимистично, истина всегда берётся из леджера.
func (s *Scheduler) RefreshAssignments(ctx context.Context) error {
	s.mu.RLock()
	gen := s.generation
	tournamentID := s.tournamentID
	s.mu.RUnlock()

	if tournamentID == "" {
		return fmt.Errorf("no tournament is being polled")
	}

	s.refreshAssignments(ctx, gen, tournamentID)
	return nil
}

func (s *Scheduler) arenasLocked() []models.Arena {
	if s.snapshot != nil && len(s.snapshot.Arenas) > 0 {
		return s.snapshot.Arenas
	}

	arenas := make([]models.Arena, 0, len(s.defaultArenas))
	for i, name := range s.defaultArenas {
		arenas = append(arenas, models.Arena{
			ID:   fmt.Sprintf("default-arena-%d", i+1),
			Name: name,
		})
	}
	return arenas
}

// View собирает объединённое представление: готовые и подходящие матчи,
// занятость арен и готовые матчи без назначения.
func (s *Scheduler) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := View{
		TournamentID:     s.tournamentID,
		Ready:            []ReadyMatch{},
		Upcoming:         []models.Game{},
		Brackets:         []models.BracketType{},
		Assignments:      []models.Assignment{},
		ArenaOccupancy:   []ArenaOccupancy{},
		UnassignedReady:  []models.Game{},
		TournamentError:  s.snapshotErr,
		AssignmentsError: s.assignmentsErr,
	}

	view.Assignments = append(view.Assignments, s.assignments...)

	byMatch := make(map[string]*models.Assignment, len(s.assignments))
	byArena := make(map[string]*models.Assignment, len(s.assignments))
	for i := range s.assignments {
		a := &s.assignments[i]
		byMatch[a.MatchID] = a
		byArena[a.ArenaID] = a
	}

	if s.snapshot == nil {
		return view
	}
	view.Tournament = s.snapshot

	now := time.Now()
	for _, game := range brackets.Ready(s.snapshot.Games, s.bracketFilter) {
		view.Ready = append(view.Ready, ReadyMatch{
			Game:         game,
			WaitLabel:    models.FormatWaitTime(game.AvailableSince, now),
			BracketLabel: models.BracketShortName(game.Bracket),
		})
	}
	view.Upcoming = brackets.Upcoming(s.snapshot.Games, s.bracketFilter)
	view.Brackets = brackets.AvailableBrackets(s.snapshot.Games)

	for _, arena := range s.arenasLocked() {
		occupancy := ArenaOccupancy{Arena: arena}
		if assignment, ok := byArena[arena.ID]; ok {
			copied := *assignment
			occupancy.Assignment = &copied
			occupancy.Game = s.snapshot.GameByID(assignment.MatchID)
		}
		view.ArenaOccupancy = append(view.ArenaOccupancy, occupancy)
	}

	for _, game := range brackets.Ready(s.snapshot.Games, models.BracketAll) {
		if _, assigned := byMatch[game.ID]; !assigned {
			view.UnassignedReady = append(view.UnassignedReady, game)
		}
	}

	return view
}
