package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is the terminal record of a confirmed reservation, created only
// when an intent transitions to confirmed. Dashboards and reporting read
// this collection; availability never does.
type Booking struct {
	ID         string          `json:"id,omitempty" bson:"_id,omitempty"`
	IntentID   string          `json:"intent_id" bson:"intent_id"`
	ListingID  string          `json:"listing_id" bson:"listing_id" validate:"required"`
	UserID     string          `json:"user_id" bson:"user_id" validate:"required"`
	Email      string          `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Dates      DateRange       `json:"dates" bson:",inline"`
	Guests     int             `json:"guests" bson:"guests" validate:"min=1"`
	TotalPrice decimal.Decimal `json:"total_price" bson:"total_price"`
	Currency   string          `json:"currency" bson:"currency"`
	PaymentID  string          `json:"payment_id" bson:"payment_id"`
	Status     string          `json:"status" bson:"status" validate:"oneof=pending confirmed cancelled"`
	CreatedAt  time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" bson:"updated_at"`
}
