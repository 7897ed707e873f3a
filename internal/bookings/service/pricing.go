package service

import (
	"github.com/shopspring/decimal"

	"wanderly/pkg/config"
	"wanderly/pkg/model"
)

// Quote is the price breakdown shown at checkout and frozen onto the intent.
type Quote struct {
	Base       decimal.Decimal `json:"base"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Taxes      decimal.Decimal `json:"taxes"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

var oneHundred = decimal.NewFromInt(100)

// PriceStay computes the total for a stay. Tours and packages price per
// guest; hotels price per night. Taxes apply to the base component only,
// the service fee is flat.
func PriceStay(cfg *config.Config, listing *model.Listing, dates model.DateRange, guests int) Quote {
	var base decimal.Decimal
	if listing.PricedPerPerson() {
		base = listing.BasePrice.Mul(decimal.NewFromInt(int64(guests)))
	} else {
		base = listing.BasePrice.Mul(decimal.NewFromInt(int64(dates.Nights())))
	}

	taxes := base.Mul(cfg.TaxRatePercent).Div(oneHundred)
	return Quote{
		Base:       base,
		ServiceFee: cfg.ServiceFee,
		Taxes:      taxes,
		Total:      base.Add(cfg.ServiceFee).Add(taxes),
		Currency:   cfg.Currency,
	}
}
