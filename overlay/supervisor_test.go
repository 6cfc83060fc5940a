package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nextup/arena-director/metrics"
	"github.com/nextup/arena-director/models"
)

type fakeOverlayServer struct {
	t        *testing.T
	password string
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu          sync.Mutex
	conns       []*websocket.Conn
	connCount   int
	requests    []string
	textSources []string
	failScene   bool
	failSources map[string]bool
}

func newFakeOverlayServer(t *testing.T, password string) *fakeOverlayServer {
	s := &fakeOverlayServer{
		t:           t,
		password:    password,
		failSources: make(map[string]bool),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeOverlayServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *fakeOverlayServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.connCount++
	s.conns = append(s.conns, ws)
	s.mu.Unlock()

	hello := helloData{RPCVersion: rpcVersion}
	if s.password != "" {
		hello.Authentication = &helloAuth{Challenge: "challenge", Salt: "salt"}
	}
	if !s.send(ws, opHello, hello) {
		return
	}

	var identify identifyData
	env, ok := s.read(ws)
	if !ok || env.Op != opIdentify {
		ws.Close()
		return
	}
	if err := json.Unmarshal(env.D, &identify); err != nil {
		ws.Close()
		return
	}
	if s.password != "" {
		want := authResponse(s.password, helloAuth{Challenge: "challenge", Salt: "salt"})
		if identify.Authentication != want {
			ws.Close()
			return
		}
	}
	if !s.send(ws, opIdentified, map[string]int{"negotiatedRpcVersion": rpcVersion}) {
		return
	}

	for {
		env, ok := s.read(ws)
		if !ok {
			return
		}
		if env.Op != opRequest {
			continue
		}
		var req requestData
		if err := json.Unmarshal(env.D, &req); err != nil {
			continue
		}

		result := true
		comment := ""
		switch req.RequestType {
		case "SetInputSettings":
			var data struct {
				InputName string `json:"inputName"`
			}
			raw, _ := json.Marshal(req.RequestData)
			json.Unmarshal(raw, &data)
			s.mu.Lock()
			s.textSources = append(s.textSources, data.InputName)
			if s.failSources[data.InputName] {
				result = false
				comment = "no such input"
			}
			s.mu.Unlock()
		case "SetCurrentProgramScene":
			s.mu.Lock()
			if s.failScene {
				result = false
				comment = "no such scene"
			}
			s.mu.Unlock()
		}

		s.mu.Lock()
		s.requests = append(s.requests, req.RequestType)
		s.mu.Unlock()

		code := 100
		if !result {
			code = 600
		}
		resp := requestResponseData{
			RequestType:   req.RequestType,
			RequestID:     req.RequestID,
			RequestStatus: requestStatus{Result: result, Code: code, Comment: comment},
		}
		if !s.send(ws, opRequestResponse, resp) {
			return
		}
	}
}

func (s *fakeOverlayServer) send(ws *websocket.Conn, op int, d interface{}) bool {
	msg, err := marshalEnvelope(op, d)
	if err != nil {
		return false
	}
	return ws.WriteMessage(websocket.TextMessage, msg) == nil
}

func (s *fakeOverlayServer) read(ws *websocket.Conn) (envelope, bool) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false
	}
	return env, true
}

func (s *fakeOverlayServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connCount
}

func (s *fakeOverlayServer) dropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (s *fakeOverlayServer) sourceUpdates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.textSources))
	copy(out, s.textSources)
	return out
}

func (s *fakeOverlayServer) requestTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	m := metrics.New(prometheus.NewRegistry())
	return NewSupervisor(logger, m, Config{
		ConnectTimeout: 500 * time.Millisecond,
		ReconnectDelay: 50 * time.Millisecond,
	})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestConnect_ReplaysStateToNewSubscriber(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	var mu sync.Mutex
	var states []State
	unsubscribe := sup.OnStateChange(func(state State) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})
	defer unsubscribe()

	mu.Lock()
	if len(states) != 1 || states[0] != StateDisconnected {
		t.Fatalf("new subscriber must be replayed the current state, got %v", states)
	}
	mu.Unlock()

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	mu.Lock()
	got := append([]State(nil), states...)
	mu.Unlock()
	want := []State{StateDisconnected, StateConnecting, StateConnected}
	if len(got) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, got)
		}
	}
	if sup.LastError() != nil {
		t.Fatalf("error must be cleared on success, got %v", *sup.LastError())
	}
}

func TestConnect_WithAuthentication(t *testing.T) {
	srv := newFakeOverlayServer(t, "secret")
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	if err := sup.Connect(srv.url(), "secret", false); err != nil {
		t.Fatalf("authenticated connect failed: %v", err)
	}
	if sup.State() != StateConnected {
		t.Fatalf("expected connected, got %s", sup.State())
	}
}

func TestConnect_TearsDownPriorConnection(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	first := sup.conn

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}
	if srv.connections() != 2 {
		t.Fatalf("expected two dials, got %d", srv.connections())
	}

	// Старое соединение должно быть закрыто, живой хэндл ровно один.
	if !waitFor(t, time.Second, func() bool {
		select {
		case <-first.done:
			return true
		default:
			return false
		}
	}) {
		t.Fatal("prior connection was not torn down")
	}
	if sup.State() != StateConnected {
		t.Fatalf("expected connected after reconnect, got %s", sup.State())
	}
}

func TestManualConnectFailure_DoesNotAutoReconnect(t *testing.T) {
	sup := newTestSupervisor(t)

	err := sup.Connect("ws://127.0.0.1:1", "", true)
	if err == nil {
		t.Fatal("expected connect error")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if sup.LastError() == nil {
		t.Fatal("last error must be recorded")
	}

	if sup.reconnectPending() {
		t.Fatal("manual connect failure must not schedule a reconnect")
	}
	time.Sleep(200 * time.Millisecond) // 4 задержки реконнекта
	if sup.reconnectPending() || sup.State() != StateDisconnected {
		t.Fatalf("no background retries expected, state=%s", sup.State())
	}
}

func TestDrop_AfterSuccessfulConnectSchedulesSingleReconnect(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	// Ручная попытка, завершившаяся успехом, снова включает автореконнект.
	if err := sup.Connect(srv.url(), "", true); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	srv.dropConnections()

	if !waitFor(t, time.Second, func() bool { return sup.reconnectPending() || srv.connections() >= 2 }) {
		t.Fatal("reconnect was not scheduled after connection drop")
	}
	if !waitFor(t, time.Second, func() bool { return sup.State() == StateConnected }) {
		t.Fatalf("expected automatic reconnect, state=%s", sup.State())
	}
	if srv.connections() != 2 {
		t.Fatalf("expected exactly one reconnect attempt, got %d dials", srv.connections())
	}
}

func TestDisconnect_CancelsPendingReconnect(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	sup := newTestSupervisor(t)

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	srv.srv.Close()
	srv.dropConnections()

	if !waitFor(t, time.Second, func() bool { return sup.State() == StateDisconnected }) {
		t.Fatal("state did not transition to disconnected")
	}

	sup.Disconnect()
	if sup.reconnectPending() {
		t.Fatal("disconnect must cancel the pending reconnect timer")
	}
	time.Sleep(150 * time.Millisecond)
	if sup.State() != StateDisconnected {
		t.Fatalf("expected to stay disconnected, got %s", sup.State())
	}
}

func testGame() (models.Game, []models.Player) {
	p1, p2 := "p1", "p2"
	tag := "AL"
	seed := 3
	game := models.Game{
		ID:      "W-1",
		Status:  models.MatchStatusReady,
		Bracket: models.BracketWinners,
		Round:   2,
		BestOf:  5,
		Slots: [2]models.Slot{
			{PlayerID: &p1},
			{PlayerID: &p2},
		},
	}
	players := []models.Player{
		{ID: "p1", Name: "Alice", Tag: &tag, Seed: &seed},
		{ID: "p2", Name: "Bob"},
	}
	return game, players
}

func TestUpdateMatch_PushesFieldsThenScene(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	game, players := testGame()
	if err := sup.UpdateMatch(context.Background(), game, players, "Arena 1"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	sources := srv.sourceUpdates()
	wantSources := map[string]bool{
		"MatchName": true, "BracketName": true, "RoundNumber": true, "ScoreToWin": true,
		"Player1Name": true, "Player1Tag": true, "Player1Seed": true,
		"Player2Name": true, "Player2Tag": true, "Player2Seed": true,
	}
	if len(sources) != len(wantSources) {
		t.Fatalf("expected %d field updates, got %d: %v", len(wantSources), len(sources), sources)
	}
	for _, source := range sources {
		if !wantSources[source] {
			t.Fatalf("unexpected source update %q", source)
		}
	}

	types := srv.requestTypes()
	if len(types) == 0 || types[len(types)-1] != "SetCurrentProgramScene" {
		t.Fatalf("scene switch must be issued after field updates: %v", types)
	}
}

func TestUpdateMatch_NotConnected(t *testing.T) {
	sup := newTestSupervisor(t)

	game, players := testGame()
	err := sup.UpdateMatch(context.Background(), game, players, "Arena 1")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestUpdateMatch_PartialFieldFailureIsTolerated(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	srv.failSources["Player1Tag"] = true
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	game, players := testGame()
	if err := sup.UpdateMatch(context.Background(), game, players, "Arena 1"); err != nil {
		t.Fatalf("per-field failure must not fail the update, got %v", err)
	}
}

func TestUpdateMatch_SceneFailureSurfaces(t *testing.T) {
	srv := newFakeOverlayServer(t, "")
	srv.failScene = true
	sup := newTestSupervisor(t)
	defer sup.Disconnect()

	if err := sup.Connect(srv.url(), "", false); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	game, players := testGame()
	err := sup.UpdateMatch(context.Background(), game, players, "Missing Scene")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError from scene switch, got %v", err)
	}
	if reqErr.RequestType != "SetCurrentProgramScene" {
		t.Fatalf("unexpected request type: %+v", reqErr)
	}
}

func TestUpdateMatch_SubstitutesPlaceholderForUnresolvedPlayer(t *testing.T) {
	game, players := testGame()
	game.Slots[1].PlayerID = nil

	fields := matchFields(game, players)
	found := false
	for _, f := range fields {
		if f.source == "Player2Name" {
			found = true
			if f.text != placeholderPlayer {
				t.Fatalf("expected placeholder for unresolved player, got %q", f.text)
			}
		}
	}
	if !found {
		t.Fatal("Player2Name field missing")
	}
}
