package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	bookingerrors "wanderly/internal/bookings/errors"
	"wanderly/internal/bookings/repository"
	catalogservice "wanderly/internal/catalog/service"
	intentsservice "wanderly/internal/intents/service"
	inventoryservice "wanderly/internal/inventory/service"
	paymentsservice "wanderly/internal/payments/service"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/kafka"
	"wanderly/pkg/logger"
	"wanderly/pkg/metrics"
	"wanderly/pkg/model"
)

// EventPublisher emits booking lifecycle events. Satisfied by kafka.Producer;
// nil disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// StartBookingRequest begins checkout for a stay.
type StartBookingRequest struct {
	UserID    string          `json:"userId" validate:"required"`
	ListingID string          `json:"listingId" validate:"required"`
	Dates     model.DateRange `json:"dates"`
	Guests    int             `json:"guests" validate:"min=1"`
}

// CompletePaymentRequest attaches a payment attempt to a held intent.
type CompletePaymentRequest struct {
	IntentID string
	Method   string
	Card     *model.CardDetails
	Bank     *model.BankDetails
}

// PaymentOutcome is what the traveller sees after completePayment: the
// payment record, the booking when one exists, and the intent state.
type PaymentOutcome struct {
	Payment     *model.PaymentRecord `json:"payment"`
	Booking     *model.Booking       `json:"booking,omitempty"`
	IntentState string               `json:"intent_state"`
}

// Coordinator is the only component that drives cross-store transitions.
// It serializes nothing itself; all races are resolved by the ledger's
// conditional updates and the intent store's compare-and-set transitions.
type Coordinator interface {
	StartBooking(ctx context.Context, req *StartBookingRequest) (*model.ReservationIntent, error)
	CompletePayment(ctx context.Context, req *CompletePaymentRequest) (*PaymentOutcome, error)
	MarkSettled(ctx context.Context, paymentID string) error
	FailSettlement(ctx context.Context, paymentID, reason string) error
	CancelBooking(ctx context.Context, intentID, reason string) error

	GetIntent(ctx context.Context, intentID string) (*model.ReservationIntent, error)
	GetBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (*model.PaymentRecord, error)
	ListBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountBookings(ctx context.Context) (int64, error)
	UpdateBookingStatus(ctx context.Context, bookingID, status string) (*model.Booking, error)
	GetAvailability(ctx context.Context, listingID string, dates model.DateRange) ([]*model.AvailabilityDay, error)
}

type coordinator struct {
	cfg      *config.Config
	catalog  catalogservice.Service
	ledger   inventoryservice.Ledger
	intents  intentsservice.Service
	payments paymentsservice.Service
	repo     repository.BookingRepository
	events   EventPublisher
	log      *logger.Logger
}

func NewCoordinator(
	cfg *config.Config,
	catalog catalogservice.Service,
	ledger inventoryservice.Ledger,
	intents intentsservice.Service,
	payments paymentsservice.Service,
	repo repository.BookingRepository,
	events EventPublisher,
) Coordinator {
	return &coordinator{
		cfg:      cfg,
		catalog:  catalog,
		ledger:   ledger,
		intents:  intents,
		payments: payments,
		repo:     repo,
		events:   events,
		log:      cfg.Log,
	}
}

// StartBooking holds capacity first; no intent exists unless the hold
// succeeded, so a SOLD_OUT answer leaves no state behind.
func (c *coordinator) StartBooking(ctx context.Context, req *StartBookingRequest) (*model.ReservationIntent, error) {
	if req.UserID == "" || req.ListingID == "" {
		return nil, apperrors.InvalidInput("userId and listingId are required")
	}
	if req.Guests < 1 {
		return nil, apperrors.InvalidInput("at least one guest is required")
	}
	if !req.Dates.IsValid() {
		return nil, apperrors.InvalidInput("check-out must be after check-in")
	}

	listing, err := c.catalog.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if req.Guests > listing.Capacity {
		return nil, apperrors.SoldOut(listing.ID)
	}

	hold, err := c.ledger.TryHold(ctx, listing, req.Dates, req.Guests)
	if err != nil {
		return nil, err
	}

	quote := PriceStay(c.cfg, listing, req.Dates, req.Guests)
	intent, err := c.intents.Create(ctx, &model.ReservationIntent{
		ListingID:  req.ListingID,
		UserID:     req.UserID,
		Dates:      req.Dates,
		Guests:     req.Guests,
		HoldToken:  hold.Token,
		TotalPrice: quote.Total,
		Currency:   quote.Currency,
	})
	if err != nil {
		// The hold would otherwise leak until a manual sweep.
		if releaseErr := c.ledger.Release(ctx, hold.Token); releaseErr != nil {
			c.log.Error("Failed to release hold after intent creation failure",
				"hold_token", hold.Token,
				"error", releaseErr,
			)
		}
		return nil, err
	}

	return intent, nil
}

func (c *coordinator) CompletePayment(ctx context.Context, req *CompletePaymentRequest) (*PaymentOutcome, error) {
	intent, err := c.intents.Get(ctx, req.IntentID)
	if err != nil {
		return nil, err
	}

	// A repeated confirm returns the existing booking instead of charging
	// again.
	if intent.State == model.IntentStateConfirmed {
		return c.existingOutcome(ctx, intent)
	}
	if !intent.Active(time.Now().UTC()) {
		return nil, apperrors.IntentNotActive(intent.ID)
	}

	payment, err := c.payments.Charge(ctx, &paymentsservice.ChargeRequest{
		IntentID: intent.ID,
		UserID:   intent.UserID,
		Amount:   intent.TotalPrice,
		Currency: intent.Currency,
		Method:   req.Method,
		Card:     req.Card,
		Bank:     req.Bank,
	})
	if err != nil {
		// Intent stays held: the traveller may retry until expiry.
		return nil, err
	}

	if payment.Status == model.PaymentStatusPending {
		if err := c.intents.MarkPendingSettlement(ctx, intent.ID, payment.ID); err != nil {
			return nil, err
		}
		return &PaymentOutcome{
			Payment:     payment,
			IntentState: model.IntentStatePendingSettlement,
		}, nil
	}

	booking, err := c.confirm(ctx, intent, payment, model.IntentStateHeld)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		Payment:     payment,
		Booking:     booking,
		IntentState: model.IntentStateConfirmed,
	}, nil
}

// confirm wins the intent via compare-and-set before touching anything else,
// so exactly one caller creates the booking. Losing the race falls back to
// the existing booking.
func (c *coordinator) confirm(ctx context.Context, intent *model.ReservationIntent, payment *model.PaymentRecord, fromState string) (*model.Booking, error) {
	bookingID := uuid.New().String()

	if err := c.intents.Confirm(ctx, intent.ID, fromState, payment.ID, bookingID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeIntentNotActive) {
			refreshed, getErr := c.intents.Get(ctx, intent.ID)
			if getErr == nil && refreshed.State == model.IntentStateConfirmed {
				return c.recoverConfirmed(ctx, refreshed)
			}
		}
		return nil, err
	}

	if err := c.ledger.Commit(ctx, intent.HoldToken); err != nil {
		c.log.Error("Failed to commit hold for confirmed intent",
			"intent_id", intent.ID,
			"hold_token", intent.HoldToken,
			"error", err,
		)
		return nil, err
	}

	booking := c.bookingFor(intent, bookingID, payment.ID)
	if err := c.repo.Create(ctx, booking); err != nil {
		return nil, apperrors.StorageUnavailable("booking creation", err)
	}

	metrics.BookingsConfirmed.Inc()
	c.publishEvent(ctx, kafka.EventBookingConfirmed, booking)
	c.log.Info("Booking confirmed",
		"booking_id", booking.ID,
		"intent_id", intent.ID,
		"payment_id", payment.ID,
	)
	return booking, nil
}

// recoverConfirmed finishes the confirm sequence for an intent that already
// won the CAS. Commit is idempotent and the booking insert is keyed by the
// booking ID recorded on the intent, so a transient failure or crash after
// the CAS heals here on the next attempt instead of stranding the charge.
func (c *coordinator) recoverConfirmed(ctx context.Context, intent *model.ReservationIntent) (*model.Booking, error) {
	if err := c.ledger.Commit(ctx, intent.HoldToken); err != nil {
		return nil, err
	}

	booking, err := c.repo.FindByIntentID(ctx, intent.ID)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, bookingerrors.ErrNotFound) {
		return nil, apperrors.StorageUnavailable("booking lookup", err)
	}

	booking = c.bookingFor(intent, intent.BookingID, intent.PaymentID)
	if err := c.repo.Create(ctx, booking); err != nil {
		// A concurrent recovery may have inserted it first.
		if existing, findErr := c.repo.FindByIntentID(ctx, intent.ID); findErr == nil {
			return existing, nil
		}
		return nil, apperrors.StorageUnavailable("booking creation", err)
	}

	metrics.BookingsConfirmed.Inc()
	c.publishEvent(ctx, kafka.EventBookingConfirmed, booking)
	c.log.Warn("Booking recovered for confirmed intent",
		"booking_id", booking.ID,
		"intent_id", intent.ID,
	)
	return booking, nil
}

func (c *coordinator) bookingFor(intent *model.ReservationIntent, bookingID, paymentID string) *model.Booking {
	return &model.Booking{
		ID:         bookingID,
		IntentID:   intent.ID,
		ListingID:  intent.ListingID,
		UserID:     intent.UserID,
		Dates:      intent.Dates,
		Guests:     intent.Guests,
		TotalPrice: intent.TotalPrice,
		Currency:   intent.Currency,
		PaymentID:  paymentID,
		Status:     model.BookingStatusConfirmed,
	}
}

// MarkSettled finishes a bank transfer once the reconciliation job reports
// settlement. A retried notification is not dropped just because the payment
// is already completed: if an earlier run died between settling the payment
// and confirming the intent, the retry re-drives the confirm sequence.
func (c *coordinator) MarkSettled(ctx context.Context, paymentID string) error {
	settled, err := c.payments.MarkSettled(ctx, paymentID)
	if err != nil {
		return err
	}

	intent, err := c.intents.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	if !settled {
		switch intent.State {
		case model.IntentStatePendingSettlement:
			// The previous notification settled the payment but never won
			// the intent; fall through and confirm now.
		case model.IntentStateConfirmed:
			_, err = c.recoverConfirmed(ctx, intent)
			return err
		default:
			c.log.Info("Duplicate settlement notification ignored",
				"payment_id", paymentID,
				"intent_state", intent.State,
			)
			return nil
		}
	}

	payment, err := c.payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}

	_, err = c.confirm(ctx, intent, payment, model.IntentStatePendingSettlement)
	return err
}

// FailSettlement cancels a pending-settlement booking after the bank reports
// a failed transfer.
func (c *coordinator) FailSettlement(ctx context.Context, paymentID, reason string) error {
	intent, err := c.intents.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	if err := c.intents.Cancel(ctx, intent.ID, model.IntentStatePendingSettlement, reason); err != nil {
		return err
	}
	if err := c.ledger.Release(ctx, intent.HoldToken); err != nil {
		return err
	}
	if err := c.payments.MarkFailed(ctx, paymentID, reason); err != nil {
		return err
	}

	metrics.BookingsCancelled.Inc()
	c.publishEvent(ctx, kafka.EventBookingCancelled, intent)
	return nil
}

// CancelBooking is the traveller-initiated exit for a not-yet-confirmed
// intent: same release as expiry, just immediate.
func (c *coordinator) CancelBooking(ctx context.Context, intentID, reason string) error {
	intent, err := c.intents.Get(ctx, intentID)
	if err != nil {
		return err
	}

	switch intent.State {
	case model.IntentStateHeld, model.IntentStatePendingSettlement:
	case model.IntentStateCancelled:
		return nil
	default:
		return apperrors.Conflict("intent is already " + intent.State)
	}

	if err := c.intents.Cancel(ctx, intentID, intent.State, reason); err != nil {
		return err
	}
	if err := c.ledger.Release(ctx, intent.HoldToken); err != nil {
		return err
	}
	if intent.State == model.IntentStatePendingSettlement && intent.PaymentID != "" {
		if err := c.payments.MarkFailed(ctx, intent.PaymentID, reason); err != nil {
			return err
		}
	}

	metrics.BookingsCancelled.Inc()
	c.publishEvent(ctx, kafka.EventBookingCancelled, intent)
	c.log.Info("Booking cancelled", "intent_id", intentID, "reason", reason)
	return nil
}

func (c *coordinator) existingOutcome(ctx context.Context, intent *model.ReservationIntent) (*PaymentOutcome, error) {
	booking, err := c.recoverConfirmed(ctx, intent)
	if err != nil {
		return nil, err
	}
	payment, err := c.payments.Get(ctx, intent.PaymentID)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		Payment:     payment,
		Booking:     booking,
		IntentState: intent.State,
	}, nil
}

func (c *coordinator) publishEvent(ctx context.Context, eventType string, payload any) {
	if c.events == nil {
		return
	}

	var key string
	switch v := payload.(type) {
	case *model.Booking:
		key = v.ID
	case *model.ReservationIntent:
		key = v.ID
	default:
		key = uuid.New().String()
	}

	msg, err := kafka.NewEvent(eventType, key, payload)
	if err != nil {
		c.log.Error("Failed to build booking event", "event_type", eventType, "error", err)
		return
	}
	if err := c.events.Publish(ctx, msg); err != nil {
		c.log.Error("Failed to publish booking event", "event_type", eventType, "error", err)
	}
}

func (c *coordinator) GetIntent(ctx context.Context, intentID string) (*model.ReservationIntent, error) {
	return c.intents.Get(ctx, intentID)
}

func (c *coordinator) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := c.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingerrors.ErrNotFound) || errors.Is(err, bookingerrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("booking", bookingID)
		}
		return nil, apperrors.StorageUnavailable("booking lookup", err)
	}
	return booking, nil
}

func (c *coordinator) GetPaymentByIntent(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	return c.payments.GetByIntentID(ctx, intentID)
}

// UpdateBookingStatus is the dashboard's status override for a terminal
// booking record. It never touches inventory; the coordinator flows do that.
func (c *coordinator) UpdateBookingStatus(ctx context.Context, bookingID, status string) (*model.Booking, error) {
	switch status {
	case model.BookingStatusPending, model.BookingStatusConfirmed, model.BookingStatusCancelled:
	default:
		return nil, apperrors.InvalidInput("unknown booking status: " + status)
	}

	if err := c.repo.UpdateStatus(ctx, bookingID, status); err != nil {
		if errors.Is(err, bookingerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("booking", bookingID)
		}
		return nil, apperrors.StorageUnavailable("booking update", err)
	}
	return c.GetBooking(ctx, bookingID)
}

func (c *coordinator) ListBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	var (
		bookings []*model.Booking
		err      error
	)
	if userID != "" {
		bookings, err = c.repo.FindByUser(ctx, userID, limit, offset)
	} else {
		bookings, err = c.repo.FindAll(ctx, limit, offset)
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("booking query", err)
	}
	return bookings, nil
}

func (c *coordinator) CountBookings(ctx context.Context) (int64, error) {
	count, err := c.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.StorageUnavailable("booking count", err)
	}
	return count, nil
}

func (c *coordinator) GetAvailability(ctx context.Context, listingID string, dates model.DateRange) ([]*model.AvailabilityDay, error) {
	return c.ledger.Availability(ctx, listingID, dates)
}
