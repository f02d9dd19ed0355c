package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace/internal/app/ledger/ledgertest"
	"marketplace/internal/domain"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newSweeper(l Ledger, horizon time.Duration) *Sweeper {
	s := New(l, horizon, time.Minute, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestSweepExpiresOnlyStalePending(t *testing.T) {
	l := ledgertest.NewMemory()
	confirmedAt := now.Add(-2 * time.Hour)
	l.Seed(domain.Payment{ID: "stale", Status: domain.PaymentStatusPending, CreatedAt: now.Add(-2 * time.Hour)})
	l.Seed(domain.Payment{ID: "fresh", Status: domain.PaymentStatusPending, CreatedAt: now.Add(-10 * time.Minute)})
	l.Seed(domain.Payment{ID: "paid", Status: domain.PaymentStatusConfirmed, CreatedAt: now.Add(-3 * time.Hour), ConfirmedAt: &confirmedAt})

	n, err := newSweeper(l, time.Hour).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale, _ := l.Snapshot("stale")
	assert.Equal(t, domain.PaymentStatusFailed, stale.Status)
	fresh, _ := l.Snapshot("fresh")
	assert.Equal(t, domain.PaymentStatusPending, fresh.Status)
	paid, _ := l.Snapshot("paid")
	assert.Equal(t, domain.PaymentStatusConfirmed, paid.Status)

	events := l.Events()
	require.Len(t, events, 1)
	assert.Equal(t, string(domain.PaymentStatusFailed), events[0].Status)

	n, err = newSweeper(l, time.Hour).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepDisabledWithZeroHorizon(t *testing.T) {
	l := ledgertest.NewMemory()
	l.Seed(domain.Payment{ID: "stale", Status: domain.PaymentStatusPending, CreatedAt: now.Add(-48 * time.Hour)})

	s := newSweeper(l, 0)
	assert.False(t, s.Enabled())
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
}

func TestSweepStorageError(t *testing.T) {
	l := ledgertest.NewMemory()
	l.Err = errors.New("db down")

	_, err := newSweeper(l, time.Hour).Sweep(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSweeper(ledgertest.NewMemory(), time.Hour)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
