package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	intenterrors "wanderly/internal/intents/errors"
	"wanderly/internal/intents/repository"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// Service is the reservation intent store. It owns the intent state machine:
// held -> pending_settlement -> confirmed, with expired and cancelled as the
// terminal exits. Transitions from the wrong state surface as
// INTENT_NOT_ACTIVE conflicts.
type Service interface {
	Create(ctx context.Context, intent *model.ReservationIntent) (*model.ReservationIntent, error)
	Get(ctx context.Context, id string) (*model.ReservationIntent, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*model.ReservationIntent, error)
	ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ReservationIntent, error)

	MarkPendingSettlement(ctx context.Context, id, paymentID string) error
	Confirm(ctx context.Context, id, fromState, paymentID, bookingID string) error
	Cancel(ctx context.Context, id, fromState, reason string) error
}

type intentService struct {
	cfg  *config.Config
	repo repository.IntentRepository
	log  *logger.Logger
}

func NewService(cfg *config.Config, repo repository.IntentRepository) Service {
	return &intentService{
		cfg:  cfg,
		repo: repo,
		log:  cfg.Log,
	}
}

func (s *intentService) Create(ctx context.Context, intent *model.ReservationIntent) (*model.ReservationIntent, error) {
	now := time.Now().UTC()
	intent.ID = uuid.New().String()
	intent.State = model.IntentStateHeld
	intent.ExpiresAt = now.Add(s.cfg.HoldWindow)

	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, apperrors.StorageUnavailable("intent creation", err)
	}

	s.log.Info("Reservation intent created",
		"intent_id", intent.ID,
		"listing_id", intent.ListingID,
		"user_id", intent.UserID,
		"expires_at", intent.ExpiresAt,
	)
	return intent, nil
}

func (s *intentService) Get(ctx context.Context, id string) (*model.ReservationIntent, error) {
	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, intenterrors.ErrNotFound) || errors.Is(err, intenterrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("intent", id)
		}
		return nil, apperrors.StorageUnavailable("intent lookup", err)
	}
	return intent, nil
}

func (s *intentService) GetByPaymentID(ctx context.Context, paymentID string) (*model.ReservationIntent, error) {
	intent, err := s.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, intenterrors.ErrNotFound) {
			return nil, apperrors.NotFound("intent for payment " + paymentID)
		}
		return nil, apperrors.StorageUnavailable("intent lookup", err)
	}
	return intent, nil
}

func (s *intentService) ListByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.ReservationIntent, error) {
	intents, err := s.repo.FindByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.StorageUnavailable("intent query", err)
	}
	return intents, nil
}

// MarkPendingSettlement parks the intent while an asynchronous payment
// settles. The deadline moves from the hold window to the settlement window.
func (s *intentService) MarkPendingSettlement(ctx context.Context, id, paymentID string) error {
	deadline := time.Now().UTC().Add(s.cfg.SettlementTimeout)
	ok, err := s.repo.MarkPendingSettlement(ctx, id, paymentID, deadline)
	if err != nil {
		return apperrors.StorageUnavailable("intent update", err)
	}
	if !ok {
		return apperrors.IntentNotActive(id)
	}
	return nil
}

func (s *intentService) Confirm(ctx context.Context, id, fromState, paymentID, bookingID string) error {
	ok, err := s.repo.MarkConfirmed(ctx, id, fromState, paymentID, bookingID)
	if err != nil {
		return apperrors.StorageUnavailable("intent confirmation", err)
	}
	if !ok {
		return apperrors.IntentNotActive(id)
	}

	s.log.Info("Reservation intent confirmed",
		"intent_id", id,
		"payment_id", paymentID,
		"booking_id", bookingID,
	)
	return nil
}

func (s *intentService) Cancel(ctx context.Context, id, fromState, reason string) error {
	ok, err := s.repo.MarkCancelled(ctx, id, fromState, reason)
	if err != nil {
		return apperrors.StorageUnavailable("intent cancellation", err)
	}
	if !ok {
		return apperrors.IntentNotActive(id)
	}

	s.log.Info("Reservation intent cancelled", "intent_id", id, "reason", reason)
	return nil
}
