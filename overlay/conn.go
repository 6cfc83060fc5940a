package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// liveConn — единственный живой хэндл соединения с оверлеем. Им владеет
// исключительно Supervisor; все запросы идут через call, ссылка наружу
// не отдаётся.
type liveConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan requestResponseData
	closed  bool

	// done закрывается, когда читающий цикл завершился; err — причина.
	done chan struct{}
	err  error
}

func newLiveConn(ws *websocket.Conn) *liveConn {
	return &liveConn{
		ws:      ws,
		pending: make(map[string]chan requestResponseData),
		done:    make(chan struct{}),
	}
}

// readPump различает ответы на запросы, события и закрытие соединения.
// Ответ находит ожидающий канал по requestId; событие игнорируется;
// ошибка чтения означает закрытие и будит всех ожидающих.
func (c *liveConn) readPump(onClosed func(err error)) {
	var closeErr error
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			closeErr = err
			break
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Op != opRequestResponse {
			continue
		}

		var resp requestResponseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.RequestID]
		if ok {
			delete(c.pending, resp.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.closed = true
	c.err = closeErr
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.done)

	onClosed(closeErr)
}

// call отправляет запрос и ждёт ответ с тем же requestId.
func (c *liveConn) call(ctx context.Context, requestType string, payload interface{}) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan requestResponseData, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &ConnectionError{Stage: "request", Err: c.err}
	}
	c.pending[id] = ch
	c.mu.Unlock()

	msg, err := marshalEnvelope(opRequest, requestData{
		RequestType: requestType,
		RequestID:   id,
		RequestData: payload,
	})
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("failed to encode overlay request: %w", err)
	}

	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.ws.WriteMessage(websocket.TextMessage, msg)
	c.writeMu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, &ConnectionError{Stage: "request", Err: err}
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, &ConnectionError{Stage: "closed", Err: c.err}
		}
		if !resp.RequestStatus.Result {
			return nil, &RequestError{
				RequestType: requestType,
				Code:        resp.RequestStatus.Code,
				Comment:     resp.RequestStatus.Comment,
			}
		}
		return resp.ResponseData, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	}
}

func (c *liveConn) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// close рвёт соединение; ошибки закрытия глотаются, повторный вызов безопасен.
func (c *liveConn) close() {
	_ = c.ws.Close()
}
