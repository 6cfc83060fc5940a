package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nextup/arena-director/metrics"
	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/overlay"
	"github.com/nextup/arena-director/scheduler"
)

type fakeTournamentProvider struct {
	mu         sync.Mutex
	tournament *models.Tournament
	err        error
}

func (f *fakeTournamentProvider) ListTournaments(ctx context.Context) ([]models.TournamentListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []models.TournamentListItem{{ID: f.tournament.ID, Name: f.tournament.Name}}, nil
}

func (f *fakeTournamentProvider) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.tournament == nil || f.tournament.ID != id {
		return nil, errors.New("tournament not found")
	}
	return f.tournament, nil
}

// fakeAssignmentLedger держит назначения в памяти и отдаёт их же через List,
// так что RefreshAssignments планировщика видит мутации сразу.
type fakeAssignmentLedger struct {
	mu          sync.Mutex
	assignments map[string]models.Assignment // по matchID
	assignErr   error
}

func newFakeAssignmentLedger() *fakeAssignmentLedger {
	return &fakeAssignmentLedger{assignments: make(map[string]models.Assignment)}
}

func (f *fakeAssignmentLedger) List(ctx context.Context, tournamentID string) ([]models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Assignment, 0, len(f.assignments))
	for _, a := range f.assignments {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAssignmentLedger) Assign(ctx context.Context, tournamentID, matchID, arenaID, arenaName, assignedBy string) (*models.AssignmentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	f.assignments[matchID] = models.Assignment{
		ID:           tournamentID + "-" + matchID,
		TournamentID: tournamentID,
		MatchID:      matchID,
		ArenaID:      arenaID,
		ArenaName:    arenaName,
	}
	return &models.AssignmentResponse{Success: true, MatchID: matchID, ArenaID: arenaID, ArenaName: arenaName}, nil
}

func (f *fakeAssignmentLedger) Unassign(ctx context.Context, tournamentID, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments, matchID)
	return nil
}

type overlayUpdate struct {
	matchID   string
	arenaName string
}

type fakeOverlay struct {
	mu        sync.Mutex
	state     overlay.State
	updateErr error
	updates   []overlayUpdate
}

func (f *fakeOverlay) State() overlay.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeOverlay) UpdateMatch(ctx context.Context, game models.Game, players []models.Player, arenaName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, overlayUpdate{matchID: game.ID, arenaName: arenaName})
	return nil
}

func (f *fakeOverlay) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func directorTournament() *models.Tournament {
	return &models.Tournament{
		ID:   "tt1",
		Name: "Test Open",
		Games: []models.Game{
			{ID: "W-1", Status: models.MatchStatusReady, Bracket: models.BracketWinners, Round: 1},
			{ID: "W-2", Status: models.MatchStatusReady, Bracket: models.BracketWinners, Round: 1},
		},
		Players: []models.Player{{ID: "p1", Name: "Alice"}},
		Arenas: []models.Arena{
			{ID: "arena-a", Name: "Arena A"},
			{ID: "arena-b", Name: "Arena B"},
		},
	}
}

type serviceTestWriter struct{ t *testing.T }

func (w serviceTestWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestDirector(t *testing.T) (DirectorService, *fakeTournamentProvider, *fakeAssignmentLedger, *fakeOverlay) {
	t.Helper()
	provider := &fakeTournamentProvider{tournament: directorTournament()}
	ledgerClient := newFakeAssignmentLedger()
	overlayClient := &fakeOverlay{state: overlay.StateConnected}

	logger := slog.New(slog.NewTextHandler(serviceTestWriter{t}, nil))
	m := metrics.New(prometheus.NewRegistry())
	sched := scheduler.New(provider, ledgerClient, logger, m, scheduler.Config{
		TournamentPollInterval: 10 * time.Millisecond,
		AssignmentPollInterval: 10 * time.Millisecond,
	})
	t.Cleanup(sched.Stop)

	service := NewDirectorService(provider, ledgerClient, overlayClient, sched, m, logger)
	return service, provider, ledgerClient, overlayClient
}

func selectAndWait(t *testing.T, service DirectorService) {
	t.Helper()
	if err := service.SelectTournament(context.Background(), "tt1"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if service.View().Tournament != nil {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("snapshot never arrived")
}

func TestAssignRecordsAndPushesOverlay(t *testing.T) {
	service, _, ledgerClient, overlayClient := newTestDirector(t)
	selectAndWait(t, service)

	resp, err := service.Assign(context.Background(), "W-1", "arena-a", "operator")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if !resp.Success || resp.ArenaName != "Arena A" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	ledgerClient.mu.Lock()
	_, stored := ledgerClient.assignments["W-1"]
	ledgerClient.mu.Unlock()
	if !stored {
		t.Fatal("assignment was not recorded")
	}

	if overlayClient.updateCount() != 1 {
		t.Fatalf("expected one overlay update, got %d", overlayClient.updateCount())
	}
	overlayClient.mu.Lock()
	update := overlayClient.updates[0]
	overlayClient.mu.Unlock()
	if update.matchID != "W-1" || update.arenaName != "Arena A" {
		t.Fatalf("unexpected overlay update: %+v", update)
	}
}

func TestAssignOccupiedArena(t *testing.T) {
	service, _, _, _ := newTestDirector(t)
	selectAndWait(t, service)

	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	// Занятость видна после внеочередного обновления назначений.
	if _, err := service.Assign(context.Background(), "W-2", "arena-a", ""); !errors.Is(err, ErrArenaOccupied) {
		t.Fatalf("expected ErrArenaOccupied, got %v", err)
	}
}

func TestReassignSameMatchSameArena(t *testing.T) {
	service, _, _, _ := newTestDirector(t)
	selectAndWait(t, service)

	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	// Повтор того же матча на ту же арену — не конфликт, а идемпотентный upsert.
	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}
}

func TestAssignWithoutSelection(t *testing.T) {
	service, _, _, _ := newTestDirector(t)

	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); !errors.Is(err, ErrNoTournamentSelected) {
		t.Fatalf("expected ErrNoTournamentSelected, got %v", err)
	}
}

func TestAssignUnknownMatchAndArena(t *testing.T) {
	service, _, _, _ := newTestDirector(t)
	selectAndWait(t, service)

	if _, err := service.Assign(context.Background(), "missing", "arena-a", ""); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if _, err := service.Assign(context.Background(), "W-1", "missing", ""); !errors.Is(err, ErrArenaNotFound) {
		t.Fatalf("expected ErrArenaNotFound, got %v", err)
	}
}

func TestOverlayFailureDoesNotFailAssign(t *testing.T) {
	service, _, ledgerClient, overlayClient := newTestDirector(t)
	selectAndWait(t, service)

	overlayClient.mu.Lock()
	overlayClient.updateErr = errors.New("overlay write failed")
	overlayClient.mu.Unlock()

	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); err != nil {
		t.Fatalf("assign must succeed despite overlay failure: %v", err)
	}

	ledgerClient.mu.Lock()
	_, stored := ledgerClient.assignments["W-1"]
	ledgerClient.mu.Unlock()
	if !stored {
		t.Fatal("assignment must be recorded even when overlay push fails")
	}
}

func TestUnassignRemovesAssignment(t *testing.T) {
	service, _, ledgerClient, _ := newTestDirector(t)
	selectAndWait(t, service)

	if _, err := service.Assign(context.Background(), "W-1", "arena-a", ""); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := service.Unassign(context.Background(), "W-1"); err != nil {
		t.Fatalf("unassign failed: %v", err)
	}

	ledgerClient.mu.Lock()
	_, stored := ledgerClient.assignments["W-1"]
	ledgerClient.mu.Unlock()
	if stored {
		t.Fatal("assignment should be removed")
	}
}

func TestSelectUnknownTournament(t *testing.T) {
	service, _, _, _ := newTestDirector(t)

	if err := service.SelectTournament(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown tournament")
	}
	if service.View().TournamentID != "" {
		t.Fatal("failed select must not start polling")
	}
}
