package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodDemo         = "demo"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// PaymentRecord is the persisted outcome of a charge attempt, linked 1:1 to a
// reservation intent. Card and account numbers are stored masked only.
type PaymentRecord struct {
	ID            string          `json:"id" bson:"_id"`
	IntentID      string          `json:"intent_id" bson:"intent_id"`
	UserID        string          `json:"user_id" bson:"user_id"`
	Amount        decimal.Decimal `json:"amount" bson:"amount"`
	Currency      string          `json:"currency" bson:"currency"`
	Method        string          `json:"method" bson:"method"`
	Status        string          `json:"status" bson:"status"`
	TransactionID string          `json:"transaction_id" bson:"transaction_id"`
	CardDetails   *MaskedCard     `json:"card_details,omitempty" bson:"card_details,omitempty"`
	BankDetails   *MaskedBank     `json:"bank_details,omitempty" bson:"bank_details,omitempty"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
}

// MaskedCard keeps only what is safe to persist. The CVV is never stored in
// any form.
type MaskedCard struct {
	Number      string `json:"number" bson:"number"`
	Holder      string `json:"holder" bson:"holder"`
	ExpiryMonth int    `json:"expiry_month" bson:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year" bson:"expiry_year"`
}

type MaskedBank struct {
	AccountNumber string `json:"account_number" bson:"account_number"`
	AccountHolder string `json:"account_holder" bson:"account_holder"`
	BankCode      string `json:"bank_code" bson:"bank_code"`
	IFSCCode      string `json:"ifsc_code" bson:"ifsc_code"`
}

// CardDetails is the unmasked payment input. It only ever lives in request
// scope; repositories accept the masked form exclusively.
type CardDetails struct {
	Number      string `json:"cardNumber" validate:"required"`
	Holder      string `json:"cardHolder" validate:"required,min=2,max=100"`
	ExpiryMonth int    `json:"expiryMonth" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiryYear" validate:"required"`
	CVV         string `json:"cvv" validate:"required"`
}

type BankDetails struct {
	AccountHolder string `json:"accountHolder" validate:"required,min=2,max=100"`
	AccountNumber string `json:"accountNumber" validate:"required"`
	BankCode      string `json:"bankCode" validate:"required"`
	IFSCCode      string `json:"ifscCode" validate:"required"`
}
