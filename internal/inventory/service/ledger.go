package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	inventoryerrors "wanderly/internal/inventory/errors"
	"wanderly/internal/inventory/repository"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/metrics"
	"wanderly/pkg/model"
)

// Ledger is the inventory authority. TryHold either reserves capacity on
// every requested date or reserves nothing; Commit and Release are the only
// ways out of a hold and both are idempotent.
type Ledger interface {
	TryHold(ctx context.Context, listing *model.Listing, dates model.DateRange, guests int) (*model.Hold, error)
	Commit(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
	Availability(ctx context.Context, listingID string, dates model.DateRange) ([]*model.AvailabilityDay, error)
}

type ledgerService struct {
	repo repository.AvailabilityRepository
	log  *logger.Logger
}

func NewLedger(cfg *config.Config, repo repository.AvailabilityRepository) Ledger {
	return &ledgerService{
		repo: repo,
		log:  cfg.Log,
	}
}

func (s *ledgerService) TryHold(ctx context.Context, listing *model.Listing, dates model.DateRange, guests int) (*model.Hold, error) {
	if !dates.IsValid() {
		return nil, apperrors.InvalidInput("check-out must be after check-in")
	}
	if guests < 1 {
		return nil, apperrors.InvalidInput("at least one guest is required")
	}

	days := dates.Dates()
	if err := s.repo.EnsureDays(ctx, listing.ID, days, listing.Capacity); err != nil {
		return nil, apperrors.StorageUnavailable("availability initialization", err)
	}

	// Reserve day by day; on the first full day roll back what we already
	// took so a partial stay never lingers.
	for i, day := range days {
		err := s.repo.ReserveDay(ctx, listing.ID, day, guests)
		if err == nil {
			continue
		}

		s.rollbackDays(ctx, listing.ID, days[:i], guests)

		if errors.Is(err, inventoryerrors.ErrInsufficientCapacity) {
			metrics.HoldsRejected.Inc()
			s.log.Info("Hold rejected, capacity exhausted",
				"listing_id", listing.ID,
				"date", day.Format("2006-01-02"),
				"guests", guests,
			)
			return nil, apperrors.SoldOut(listing.ID)
		}
		return nil, apperrors.StorageUnavailable("capacity reservation", err)
	}

	hold := &model.Hold{
		Token:     uuid.New().String(),
		ListingID: listing.ID,
		Dates:     days,
		Guests:    guests,
		State:     model.HoldStateHeld,
	}
	if err := s.repo.CreateHold(ctx, hold); err != nil {
		s.rollbackDays(ctx, listing.ID, days, guests)
		return nil, apperrors.StorageUnavailable("hold creation", err)
	}

	metrics.HoldsGranted.Inc()
	s.log.Info("Hold granted",
		"hold_token", hold.Token,
		"listing_id", listing.ID,
		"nights", len(days),
		"guests", guests,
	)
	return hold, nil
}

func (s *ledgerService) rollbackDays(ctx context.Context, listingID string, days []time.Time, guests int) {
	for _, day := range days {
		if err := s.repo.ReleaseDay(ctx, listingID, day, guests); err != nil {
			s.log.Error("Failed to roll back reserved day",
				"listing_id", listingID,
				"date", day.Format("2006-01-02"),
				"error", err,
			)
		}
	}
}

// Commit converts held capacity into committed capacity. Calling it again on
// an already committed hold is a no-op.
func (s *ledgerService) Commit(ctx context.Context, token string) error {
	return s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.TransitionHold(ctx, token, model.HoldStateHeld, model.HoldStateCommitted)
		if err != nil {
			return apperrors.StorageUnavailable("hold commit", err)
		}
		if !ok {
			return s.resolveStaleTransition(ctx, token, model.HoldStateCommitted)
		}

		hold, err := s.repo.FindHold(ctx, token)
		if err != nil {
			return apperrors.StorageUnavailable("hold lookup", err)
		}

		for _, day := range hold.Dates {
			if err := s.repo.CommitDay(ctx, hold.ListingID, day, hold.Guests); err != nil {
				return apperrors.StorageUnavailable("capacity commit", err)
			}
		}
		return nil
	})
}

// Release returns held capacity to the pool. Idempotent like Commit.
func (s *ledgerService) Release(ctx context.Context, token string) error {
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.TransitionHold(ctx, token, model.HoldStateHeld, model.HoldStateReleased)
		if err != nil {
			return apperrors.StorageUnavailable("hold release", err)
		}
		if !ok {
			return s.resolveStaleTransition(ctx, token, model.HoldStateReleased)
		}

		hold, err := s.repo.FindHold(ctx, token)
		if err != nil {
			return apperrors.StorageUnavailable("hold lookup", err)
		}

		for _, day := range hold.Dates {
			if err := s.repo.ReleaseDay(ctx, hold.ListingID, day, hold.Guests); err != nil {
				return apperrors.StorageUnavailable("capacity release", err)
			}
		}
		return nil
	})
	if err == nil {
		metrics.HoldsReleased.Inc()
	}
	return err
}

// resolveStaleTransition decides what a failed CAS means: a repeat of the
// same transition is fine, a conflicting one is not.
func (s *ledgerService) resolveStaleTransition(ctx context.Context, token, wantState string) error {
	hold, err := s.repo.FindHold(ctx, token)
	if err != nil {
		if errors.Is(err, inventoryerrors.ErrHoldNotFound) {
			return apperrors.NotFoundWithID("hold", token)
		}
		return apperrors.StorageUnavailable("hold lookup", err)
	}
	if hold.State == wantState {
		return nil
	}
	return apperrors.Conflict("hold is already " + hold.State)
}

func (s *ledgerService) Availability(ctx context.Context, listingID string, dates model.DateRange) ([]*model.AvailabilityDay, error) {
	if !dates.IsValid() {
		return nil, apperrors.InvalidInput("check-out must be after check-in")
	}

	days, err := s.repo.FindDays(ctx, listingID, dates.Dates())
	if err != nil {
		return nil, apperrors.StorageUnavailable("availability query", err)
	}
	return days, nil
}
