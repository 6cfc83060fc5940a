package overlay

import (
	"errors"
	"fmt"
)

// ErrNotConnected возвращается операциями, требующими живого соединения.
var ErrNotConnected = errors.New("overlay is not connected")

// ConnectionError — сбой живого соединения: таймаут, ошибка рукопожатия
// или неожиданное закрытие.
type ConnectionError struct {
	Stage string // dial | handshake | request | closed
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("overlay connection %s failed: %v", e.Stage, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError — сервер оверлея отверг запрос (ответ получен, но result=false).
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("overlay request %s rejected (code %d): %s", e.RequestType, e.Code, e.Comment)
	}
	return fmt.Sprintf("overlay request %s rejected (code %d)", e.RequestType, e.Code)
}
