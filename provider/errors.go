package provider

import (
	"errors"
	"fmt"
)

// ErrCredentialsMissing возвращается до любого сетевого вызова, если учётные
// данные провайдера не настроены.
var ErrCredentialsMissing = errors.New("tournament provider credentials are not configured")

// TransportError — не-2xx ответ или сетевой сбой при запросе к провайдеру.
type TransportError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider request failed: %s %s -> %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("provider request failed: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
