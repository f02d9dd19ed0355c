// Package sweeper expires checkouts that were abandoned before the
// processor reported any outcome.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"marketplace/internal/domain"
)

const batchLimit = 100

type Ledger interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error)
	Apply(ctx context.Context, p *domain.Payment, tr domain.Transition) (bool, error)
}

type Sweeper struct {
	ledger   Ledger
	horizon  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New returns a sweeper that fails PENDING payments older than horizon.
// A zero horizon disables it.
func New(ledger Ledger, horizon, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		horizon:  horizon,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Sweeper) Enabled() bool {
	return s.horizon > 0 && s.interval > 0
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("Pending sweeper disabled")
		return
	}
	s.logger.Info("Starting pending sweeper", zap.Duration("horizon", s.horizon), zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Pending sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep moves one batch of stale PENDING payments to FAILED and returns
// how many it moved. Payments that settled meanwhile are skipped by the
// conditional update.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	now := s.now()
	stale, err := s.ledger.ListStalePending(ctx, now.Add(-s.horizon), batchLimit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range stale {
		p := &stale[i]
		tr, err := domain.NewTransition(p, domain.PaymentStatusFailed, now)
		if err != nil {
			continue
		}
		applied, err := s.ledger.Apply(ctx, p, tr)
		if err != nil {
			return expired, err
		}
		if applied {
			expired++
			s.logger.Info("Expired abandoned payment", zap.String("payment_id", p.ID))
		}
	}
	return expired, nil
}
