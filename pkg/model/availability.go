package model

import "time"

// AvailabilityDay is one occupancy counter row: a single (listing, date) pair.
// Invariant: Committed + Held <= Capacity at all times. The only writers are
// the inventory ledger's conditional updates.
type AvailabilityDay struct {
	ID        string    `json:"id" bson:"_id"`
	ListingID string    `json:"listing_id" bson:"listing_id"`
	Date      time.Time `json:"date" bson:"date"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	Committed int       `json:"committed" bson:"committed"`
	Held      int       `json:"held" bson:"held"`
}

// Hold states. A hold is a tentative, time-bounded capacity reservation; only
// held entries can be committed or released, and both transitions are
// idempotent once terminal.
const (
	HoldStateHeld      = "held"
	HoldStateCommitted = "committed"
	HoldStateReleased  = "released"
)

// Hold is the token record for a tentative capacity reservation across a
// date range. Its state field is the guard for idempotent commit/release.
type Hold struct {
	Token     string      `json:"token" bson:"_id"`
	ListingID string      `json:"listing_id" bson:"listing_id"`
	Dates     []time.Time `json:"dates" bson:"dates"`
	Guests    int         `json:"guests" bson:"guests"`
	State     string      `json:"state" bson:"state"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at"`
}
