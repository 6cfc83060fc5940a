// Package status собирает сводку доступности внешних сервисов: провайдера
// сетки, леджера назначений и оверлея. Сводка информационная, на поток
// работы не влияет.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/nextup/arena-director/ledger"
	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/overlay"
	"github.com/nextup/arena-director/provider"
)

const probeTimeout = 5 * time.Second

type providerProbe interface {
	CheckCredentials() error
	ListTournaments(ctx context.Context) ([]models.TournamentListItem, error)
}

type ledgerProbe interface {
	Ping(ctx context.Context) error
}

type overlayProbe interface {
	State() overlay.State
	LastError() *string
}

// ServiceStatus — состояние одного внешнего сервиса.
type ServiceStatus struct {
	Configured bool   `json:"configured"`
	Available  bool   `json:"available"`
	Message    string `json:"message,omitempty"`
}

// OverlayStatus отражает состояние супервизора оверлея, без сетевых проб:
// супервизор и так знает своё состояние соединения.
type OverlayStatus struct {
	Configured bool   `json:"configured"`
	State      string `json:"state"`
	LastError  string `json:"last_error,omitempty"`
}

type Report struct {
	Provider  ServiceStatus `json:"provider"`
	Ledger    ServiceStatus `json:"ledger"`
	Overlay   OverlayStatus `json:"overlay"`
	CheckedAt time.Time     `json:"checked_at"`
}

type Checker struct {
	provider          providerProbe
	ledger            ledgerProbe
	overlay           overlayProbe
	overlayConfigured bool
}

func NewChecker(p providerProbe, l ledgerProbe, o overlayProbe, overlayConfigured bool) *Checker {
	return &Checker{
		provider:          p,
		ledger:            l,
		overlay:           o,
		overlayConfigured: overlayConfigured,
	}
}

// Check опрашивает все три сервиса. Пробы провайдера и леджера сетевые,
// ограничены общим коротким таймаутом.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	report := Report{CheckedAt: time.Now().UTC()}
	report.Provider = c.checkProvider(ctx)
	report.Ledger = c.checkLedger(ctx)
	report.Overlay = c.checkOverlay()
	return report
}

func (c *Checker) checkProvider(ctx context.Context) ServiceStatus {
	if err := c.provider.CheckCredentials(); err != nil {
		return ServiceStatus{Configured: false, Message: err.Error()}
	}

	if _, err := c.provider.ListTournaments(ctx); err != nil {
		status := ServiceStatus{Configured: true, Message: err.Error()}
		var transportErr *provider.TransportError
		if errors.As(err, &transportErr) && (transportErr.Status == 401 || transportErr.Status == 403) {
			status.Message = "credentials rejected by provider"
		}
		return status
	}
	return ServiceStatus{Configured: true, Available: true}
}

func (c *Checker) checkLedger(ctx context.Context) ServiceStatus {
	if err := c.ledger.Ping(ctx); err != nil {
		if errors.Is(err, ledger.ErrBaseURLMissing) {
			return ServiceStatus{Configured: false, Message: err.Error()}
		}
		return ServiceStatus{Configured: true, Message: err.Error()}
	}
	return ServiceStatus{Configured: true, Available: true}
}

func (c *Checker) checkOverlay() OverlayStatus {
	status := OverlayStatus{
		Configured: c.overlayConfigured,
		State:      string(c.overlay.State()),
	}
	if lastErr := c.overlay.LastError(); lastErr != nil {
		status.LastError = *lastErr
	}
	return status
}
