package service

import (
	"context"
	"sync"
	"time"

	"wanderly/internal/intents/repository"
	"wanderly/pkg/config"
	"wanderly/pkg/logger"
	"wanderly/pkg/metrics"
	"wanderly/pkg/model"
)

// HoldReleaser releases inventory holds. Implemented by the inventory ledger.
type HoldReleaser interface {
	Release(ctx context.Context, token string) error
}

// PaymentFailer marks a payment as failed. Implemented by the payment store;
// used when a bank transfer never settles.
type PaymentFailer interface {
	MarkFailed(ctx context.Context, paymentID, reason string) error
}

const (
	cancelReasonSettlementTimeout = "settlement_timeout"
	sweepTimeout                  = 30 * time.Second
)

// Sweeper periodically expires overdue held intents and cancels
// pending-settlement intents whose settlement window has elapsed. Multiple
// instances can sweep concurrently: the release and state transitions are
// idempotent, so at most one instance wins each intent.
type Sweeper struct {
	cfg      *config.Config
	repo     repository.IntentRepository
	holds    HoldReleaser
	payments PaymentFailer
	log      *logger.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewSweeper(cfg *config.Config, repo repository.IntentRepository, holds HoldReleaser, payments PaymentFailer) *Sweeper {
	return &Sweeper{
		cfg:      cfg,
		repo:     repo,
		holds:    holds,
		payments: payments,
		log:      cfg.Log,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info("Expiry sweeper started",
		"interval", s.cfg.SweepInterval,
		"batch_size", s.cfg.SweepBatchSize,
	)
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("Expiry sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			expired, timedOut := s.SweepOnce(ctx)
			cancel()
			if expired > 0 || timedOut > 0 {
				s.log.Info("Sweep pass finished", "expired", expired, "settlement_timeouts", timedOut)
			}
		case <-s.stopCh:
			return
		}
	}
}

// SweepOnce runs a single pass and returns how many intents were expired and
// how many were cancelled for settlement timeout.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, int) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	return s.expireHeld(ctx, now), s.cancelTimedOut(ctx, now)
}

func (s *Sweeper) expireHeld(ctx context.Context, now time.Time) int {
	stale, err := s.repo.FindExpiredHeld(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.Error("Failed to query expired intents", "error", err)
		return 0
	}

	expired := 0
	for _, intent := range stale {
		// Win the intent first: once it is expired no payment attempt can
		// confirm it, so releasing the hold afterwards cannot race a
		// slow charge that checked the deadline before we did.
		ok, err := s.repo.MarkExpired(ctx, intent.ID)
		if err != nil {
			s.log.Error("Failed to mark intent expired", "intent_id", intent.ID, "error", err)
			continue
		}
		if !ok {
			// A concurrent confirm or cancel got there first.
			continue
		}

		if err := s.holds.Release(ctx, intent.HoldToken); err != nil {
			s.log.Error("Failed to release hold for expired intent",
				"intent_id", intent.ID,
				"hold_token", intent.HoldToken,
				"error", err,
			)
		}

		expired++
		metrics.IntentsExpired.Inc()
	}
	return expired
}

func (s *Sweeper) cancelTimedOut(ctx context.Context, now time.Time) int {
	stale, err := s.repo.FindSettlementTimedOut(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.Error("Failed to query settlement-timed-out intents", "error", err)
		return 0
	}

	timedOut := 0
	for _, intent := range stale {
		// Same ordering as expiry: cancel first so a late settlement
		// notification cannot confirm an intent whose hold we released.
		ok, err := s.repo.MarkCancelled(ctx, intent.ID, model.IntentStatePendingSettlement, cancelReasonSettlementTimeout)
		if err != nil {
			s.log.Error("Failed to cancel timed-out intent", "intent_id", intent.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if err := s.holds.Release(ctx, intent.HoldToken); err != nil {
			s.log.Error("Failed to release hold for timed-out intent",
				"intent_id", intent.ID,
				"hold_token", intent.HoldToken,
				"error", err,
			)
		}

		if intent.PaymentID != "" {
			if err := s.payments.MarkFailed(ctx, intent.PaymentID, cancelReasonSettlementTimeout); err != nil {
				s.log.Error("Failed to mark payment failed after settlement timeout",
					"intent_id", intent.ID,
					"payment_id", intent.PaymentID,
					"error", err,
				)
			}
		}

		timedOut++
		metrics.BookingsCancelled.Inc()
		s.log.Warn("Intent cancelled after settlement timeout",
			"intent_id", intent.ID,
			"payment_id", intent.PaymentID,
		)
	}
	return timedOut
}
