// Package overlay владеет единственным живым соединением с точкой управления
// трансляцией и сериализует все операции обновления оверлея. Машина
// состояний с автоматическим переподключением: не более одного отложенного
// таймера реконнекта, ручная попытка подключения не порождает фоновых
// повторов до первого успеха.
package overlay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nextup/arena-director/metrics"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReconnectDelay = 5 * time.Second
)

type Config struct {
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
}

type Supervisor struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	connectTimeout time.Duration
	reconnectDelay time.Duration

	mu             sync.Mutex
	state          State
	lastErr        *string
	conn           *liveConn
	url            string
	password       string
	autoReconnect  bool
	reconnectTimer *time.Timer
	dialGen        int
	stateSubs      map[int]func(State)
	errSubs        map[int]func(*string)
	nextSub        int
}

func NewSupervisor(logger *slog.Logger, m *metrics.Metrics, cfg Config) *Supervisor {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Supervisor{
		logger:         logger,
		metrics:        m,
		connectTimeout: cfg.ConnectTimeout,
		reconnectDelay: cfg.ReconnectDelay,
		state:          StateDisconnected,
		autoReconnect:  true,
		stateSubs:      make(map[int]func(State)),
		errSubs:        make(map[int]func(*string)),
	}
}

// State возвращает текущее состояние соединения.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError возвращает последнюю ошибку соединения; nil, если её нет.
func (s *Supervisor) LastError() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// OnStateChange подписывает наблюдателя на смену состояния. Текущее состояние
// проигрывается подписчику сразу, отдельный "get current" не нужен.
// Возвращает функцию отписки. Колбэк не должен обращаться к Supervisor.
func (s *Supervisor) OnStateChange(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.stateSubs[id] = fn
	fn(s.state)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.stateSubs, id)
		s.mu.Unlock()
	}
}

// OnError подписывает наблюдателя на смену последней ошибки; семантика
// как у OnStateChange.
func (s *Supervisor) OnError(fn func(*string)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.errSubs[id] = fn
	fn(s.lastErr)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.errSubs, id)
		s.mu.Unlock()
	}
}

func (s *Supervisor) setStateLocked(state State) {
	s.state = state
	if s.state == StateConnected {
		s.metrics.OverlayConnected.Set(1)
	} else {
		s.metrics.OverlayConnected.Set(0)
	}
	for _, fn := range s.stateSubs {
		fn(state)
	}
}

func (s *Supervisor) setErrorLocked(message *string) {
	s.lastErr = message
	for _, fn := range s.errSubs {
		fn(message)
	}
}

// Connect переводит машину в connecting, предварительно снеся прежнее
// соединение (ошибки сноса глотаются) и отменив отложенный реконнект.
// manual=true — явная попытка оператора: до следующего успеха автоматическое
// переподключение выключено, чтобы неудачный "test connection" не ретраился
// в фоне. Успех снова включает автопереподключение.
func (s *Supervisor) Connect(url, password string, manual bool) error {
	s.mu.Lock()
	if manual {
		s.autoReconnect = false
	}
	s.cancelReconnectLocked()
	s.dialGen++
	gen := s.dialGen
	prev := s.conn
	s.conn = nil
	s.url, s.password = url, password
	s.setStateLocked(StateConnecting)
	s.setErrorLocked(nil)
	s.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	s.logger.Info("connecting to overlay", slog.String("url", url))

	ws, err := s.dialAndIdentify(url, password)
	if err != nil {
		s.mu.Lock()
		if gen == s.dialGen {
			s.setStateLocked(StateDisconnected)
			message := err.Error()
			s.setErrorLocked(&message)
			if s.autoReconnect {
				s.scheduleReconnectLocked()
			}
		}
		s.mu.Unlock()
		s.logger.Error("overlay connection failed", slog.Any("error", err))
		return err
	}

	conn := newLiveConn(ws)

	s.mu.Lock()
	if gen != s.dialGen {
		// Пока шло рукопожатие, случился Disconnect или новый Connect.
		s.mu.Unlock()
		conn.close()
		return &ConnectionError{Stage: "dial", Err: fmt.Errorf("connection attempt superseded")}
	}
	s.conn = conn
	s.autoReconnect = true
	s.setStateLocked(StateConnected)
	s.setErrorLocked(nil)
	s.mu.Unlock()

	go conn.readPump(func(closeErr error) {
		s.handleClosed(conn, closeErr)
	})

	s.logger.Info("overlay connected", slog.String("url", url))
	return nil
}

// Disconnect отменяет отложенный реконнект, рвёт соединение и не планирует
// нового подключения.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	s.cancelReconnectLocked()
	s.dialGen++
	conn := s.conn
	s.conn = nil
	s.setStateLocked(StateDisconnected)
	s.setErrorLocked(nil)
	s.mu.Unlock()

	if conn != nil {
		conn.close()
	}
}

// handleClosed обрабатывает асинхронное закрытие живого соединения.
func (s *Supervisor) handleClosed(conn *liveConn, closeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != conn {
		// Закрылось уже не наше соединение (снесено при Connect/Disconnect).
		return
	}

	s.conn = nil
	s.setStateLocked(StateDisconnected)
	message := "connection closed unexpectedly"
	if closeErr != nil {
		message = closeErr.Error()
	}
	s.setErrorLocked(&message)
	s.logger.Warn("overlay connection lost", slog.String("reason", message))

	if s.autoReconnect {
		s.scheduleReconnectLocked()
	}
}

// scheduleReconnectLocked ставит ровно один таймер реконнекта с постоянной
// задержкой. Повторный вызов при уже отложенном таймере — no-op.
func (s *Supervisor) scheduleReconnectLocked() {
	if s.reconnectTimer != nil {
		return
	}

	s.metrics.OverlayReconnects.Inc()
	gen := s.dialGen
	s.reconnectTimer = time.AfterFunc(s.reconnectDelay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		// Пока таймер ждал, случился Connect или Disconnect — попытка отменена.
		if gen != s.dialGen || s.state == StateConnected {
			s.mu.Unlock()
			return
		}
		url, password := s.url, s.password
		s.mu.Unlock()

		if err := s.Connect(url, password, false); err != nil {
			s.logger.Warn("overlay reconnect attempt failed", slog.Any("error", err))
		}
	})
}

func (s *Supervisor) cancelReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

func (s *Supervisor) reconnectPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectTimer != nil
}

// dialAndIdentify устанавливает соединение и проходит рукопожатие
// Hello → Identify → Identified. Жёсткий таймаут распространяется на всё
// рукопожатие: не уложились — попытка считается неудачной.
func (s *Supervisor) dialAndIdentify(url, password string) (*websocket.Conn, error) {
	deadline := time.Now().Add(s.connectTimeout)

	dialer := websocket.Dialer{HandshakeTimeout: s.connectTimeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, &ConnectionError{Stage: "dial", Err: err}
	}

	fail := func(err error) (*websocket.Conn, error) {
		ws.Close()
		return nil, &ConnectionError{Stage: "handshake", Err: err}
	}

	ws.SetReadDeadline(deadline)
	ws.SetWriteDeadline(deadline)

	var hello helloData
	if err := readEnvelope(ws, opHello, &hello); err != nil {
		return fail(err)
	}

	identify := identifyData{RPCVersion: rpcVersion}
	if hello.Authentication != nil {
		identify.Authentication = authResponse(password, *hello.Authentication)
	}
	msg, err := marshalEnvelope(opIdentify, identify)
	if err != nil {
		return fail(err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fail(err)
	}

	if err := readEnvelope(ws, opIdentified, &struct{}{}); err != nil {
		return fail(err)
	}

	// Рукопожатие завершено; дальше дедлайнами управляют call и readPump.
	ws.SetReadDeadline(time.Time{})
	ws.SetWriteDeadline(time.Time{})
	return ws, nil
}

func readEnvelope(ws *websocket.Conn, wantOp int, dst interface{}) error {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("malformed overlay message: %w", err)
	}
	if env.Op != wantOp {
		return fmt.Errorf("unexpected overlay opcode %d, want %d", env.Op, wantOp)
	}
	if err := json.Unmarshal(env.D, dst); err != nil {
		return fmt.Errorf("malformed overlay payload: %w", err)
	}
	return nil
}
