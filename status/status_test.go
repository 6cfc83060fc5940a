package status

import (
	"context"
	"errors"
	"testing"

	"github.com/nextup/arena-director/ledger"
	"github.com/nextup/arena-director/models"
	"github.com/nextup/arena-director/overlay"
	"github.com/nextup/arena-director/provider"
)

type fakeProviderProbe struct {
	credentialsErr error
	listErr        error
}

func (f *fakeProviderProbe) CheckCredentials() error { return f.credentialsErr }

func (f *fakeProviderProbe) ListTournaments(ctx context.Context) ([]models.TournamentListItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []models.TournamentListItem{}, nil
}

type fakeLedgerProbe struct{ err error }

func (f *fakeLedgerProbe) Ping(ctx context.Context) error { return f.err }

type fakeOverlayProbe struct {
	state   overlay.State
	lastErr *string
}

func (f *fakeOverlayProbe) State() overlay.State { return f.state }
func (f *fakeOverlayProbe) LastError() *string   { return f.lastErr }

func TestCheckAllHealthy(t *testing.T) {
	checker := NewChecker(
		&fakeProviderProbe{},
		&fakeLedgerProbe{},
		&fakeOverlayProbe{state: overlay.StateConnected},
		true,
	)

	report := checker.Check(context.Background())

	if !report.Provider.Configured || !report.Provider.Available {
		t.Fatalf("provider should be configured and available: %+v", report.Provider)
	}
	if !report.Ledger.Available {
		t.Fatalf("ledger should be available: %+v", report.Ledger)
	}
	if report.Overlay.State != string(overlay.StateConnected) || !report.Overlay.Configured {
		t.Fatalf("unexpected overlay status: %+v", report.Overlay)
	}
}

func TestCheckMissingCredentials(t *testing.T) {
	checker := NewChecker(
		&fakeProviderProbe{credentialsErr: provider.ErrCredentialsMissing},
		&fakeLedgerProbe{},
		&fakeOverlayProbe{state: overlay.StateDisconnected},
		false,
	)

	report := checker.Check(context.Background())

	if report.Provider.Configured {
		t.Fatal("provider without credentials must report not configured")
	}
	if report.Provider.Available {
		t.Fatal("provider without credentials must not report available")
	}
}

func TestCheckRejectedCredentials(t *testing.T) {
	checker := NewChecker(
		&fakeProviderProbe{listErr: &provider.TransportError{Status: 401}},
		&fakeLedgerProbe{},
		&fakeOverlayProbe{state: overlay.StateDisconnected},
		false,
	)

	report := checker.Check(context.Background())

	if !report.Provider.Configured || report.Provider.Available {
		t.Fatalf("rejected credentials: configured but unavailable, got %+v", report.Provider)
	}
	if report.Provider.Message != "credentials rejected by provider" {
		t.Fatalf("unexpected message %q", report.Provider.Message)
	}
}

func TestCheckLedgerDown(t *testing.T) {
	checker := NewChecker(
		&fakeProviderProbe{},
		&fakeLedgerProbe{err: &ledger.TransportError{Err: errors.New("connection refused")}},
		&fakeOverlayProbe{state: overlay.StateDisconnected},
		false,
	)

	report := checker.Check(context.Background())

	if !report.Ledger.Configured || report.Ledger.Available {
		t.Fatalf("unexpected ledger status: %+v", report.Ledger)
	}
	if report.Ledger.Message == "" {
		t.Fatal("ledger failure should carry a message")
	}
}

func TestCheckOverlayError(t *testing.T) {
	lastErr := "dial timeout"
	checker := NewChecker(
		&fakeProviderProbe{},
		&fakeLedgerProbe{},
		&fakeOverlayProbe{state: overlay.StateDisconnected, lastErr: &lastErr},
		true,
	)

	report := checker.Check(context.Background())

	if report.Overlay.LastError != "dial timeout" {
		t.Fatalf("unexpected overlay error %q", report.Overlay.LastError)
	}
}
