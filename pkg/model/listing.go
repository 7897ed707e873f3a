package model

import "github.com/shopspring/decimal"

const (
	ListingTypeTour    = "tour"
	ListingTypeHotel   = "hotel"
	ListingTypePackage = "package"
)

// Listing is immutable reference data owned by the catalog. The coordinator
// only reads capacity, base price and type from it.
type Listing struct {
	ID        string          `json:"id" bson:"_id"`
	Title     string          `json:"title" bson:"title"`
	Type      string          `json:"type" bson:"type" validate:"oneof=tour hotel package"`
	Location  string          `json:"location" bson:"location"`
	Capacity  int             `json:"capacity" bson:"capacity" validate:"min=1"`
	BasePrice decimal.Decimal `json:"base_price" bson:"base_price"`
	Currency  string          `json:"currency" bson:"currency"`
	HostID    string          `json:"host_id,omitempty" bson:"host_id,omitempty"`
}

// PricedPerPerson reports whether the base price applies per guest rather
// than per night.
func (l *Listing) PricedPerPerson() bool {
	return l.Type == ListingTypeTour || l.Type == ListingTypePackage
}
