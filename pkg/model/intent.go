package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation intent states. Held and PendingSettlement are the only live
// states; everything else is terminal.
const (
	IntentStateHeld              = "held"
	IntentStatePendingSettlement = "pending_settlement"
	IntentStateConfirmed         = "confirmed"
	IntentStateExpired           = "expired"
	IntentStateCancelled         = "cancelled"
)

// ReservationIntent records an in-progress booking attempt between checkout
// start and confirmation. It is owned exclusively by the booking coordinator
// until it reaches a terminal state.
type ReservationIntent struct {
	ID           string          `json:"id" bson:"_id"`
	ListingID    string          `json:"listing_id" bson:"listing_id" validate:"required"`
	UserID       string          `json:"user_id" bson:"user_id" validate:"required"`
	Dates        DateRange       `json:"dates" bson:",inline"`
	Guests       int             `json:"guests" bson:"guests" validate:"min=1"`
	HoldToken    string          `json:"-" bson:"hold_token"`
	TotalPrice   decimal.Decimal `json:"total_price" bson:"total_price"`
	Currency     string          `json:"currency" bson:"currency"`
	PaymentID    string          `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	BookingID    string          `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	State        string          `json:"state" bson:"state"`
	CancelReason string          `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at" bson:"expires_at"`
}

// Active reports whether the intent can still accept a payment attempt.
func (i *ReservationIntent) Active(now time.Time) bool {
	return i.State == IntentStateHeld && now.Before(i.ExpiresAt)
}
