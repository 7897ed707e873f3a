package validator

import (
	"testing"
	"time"

	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/model"
)

// 4111111111111111 and 5555555555554444 are standard Luhn-valid test PANs.
func validCard() *model.CardDetails {
	return &model.CardDetails{
		Number:      "4111 1111 1111 1111",
		Holder:      "Asha Verma",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().UTC().Year() + 2,
		CVV:         "123",
	}
}

func validBank() *model.BankDetails {
	return &model.BankDetails{
		AccountHolder: "Asha Verma",
		AccountNumber: "123456789012",
		BankCode:      "HDFC",
		IFSCCode:      "HDFC0001234",
	}
}

func TestValidateCard_AcceptsValidCard(t *testing.T) {
	pv := NewPaymentValidator()
	card := validCard()

	if err := pv.ValidateCard(card); err != nil {
		t.Fatalf("expected valid card, got %v", err)
	}
	if card.Number != "4111111111111111" {
		t.Errorf("expected normalized number, got %q", card.Number)
	}
}

func TestValidateCard_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.CardDetails)
	}{
		{
			name:   "too short",
			mutate: func(c *model.CardDetails) { c.Number = "411111111111" },
		},
		{
			name:   "luhn failure",
			mutate: func(c *model.CardDetails) { c.Number = "4111111111111112" },
		},
		{
			name:   "expired year",
			mutate: func(c *model.CardDetails) { c.ExpiryYear = time.Now().UTC().Year() - 1 },
		},
		{
			name: "expired month this year",
			mutate: func(c *model.CardDetails) {
				now := time.Now().UTC()
				if now.Month() == time.January {
					c.ExpiryYear = now.Year() - 1
					c.ExpiryMonth = 12
				} else {
					c.ExpiryYear = now.Year()
					c.ExpiryMonth = int(now.Month()) - 1
				}
			},
		},
		{
			name:   "bad cvv",
			mutate: func(c *model.CardDetails) { c.CVV = "12" },
		},
		{
			name:   "missing holder",
			mutate: func(c *model.CardDetails) { c.Holder = "" },
		},
	}

	pv := NewPaymentValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(card)
			err := pv.ValidateCard(card)
			if !apperrors.HasCode(err, apperrors.CodeInvalidPaymentDetails) {
				t.Errorf("expected INVALID_PAYMENT_DETAILS, got %v", err)
			}
		})
	}
}

func TestValidateCard_MonthValidThroughEndOfMonth(t *testing.T) {
	pv := NewPaymentValidator()
	now := time.Now().UTC()
	card := validCard()
	card.ExpiryMonth = int(now.Month())
	card.ExpiryYear = now.Year()

	if err := pv.ValidateCard(card); err != nil {
		t.Errorf("card expiring this month must still be valid, got %v", err)
	}
}

func TestValidateBank_AcceptsValidDetails(t *testing.T) {
	pv := NewPaymentValidator()
	bank := validBank()
	bank.IFSCCode = " hdfc0001234 "

	if err := pv.ValidateBank(bank); err != nil {
		t.Fatalf("expected valid bank details, got %v", err)
	}
	if bank.IFSCCode != "HDFC0001234" {
		t.Errorf("expected normalized IFSC, got %q", bank.IFSCCode)
	}
}

func TestValidateBank_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.BankDetails)
	}{
		{
			name:   "short account number",
			mutate: func(b *model.BankDetails) { b.AccountNumber = "12345678" },
		},
		{
			name:   "ifsc wrong length",
			mutate: func(b *model.BankDetails) { b.IFSCCode = "HDFC000123" },
		},
		{
			name:   "ifsc missing zero",
			mutate: func(b *model.BankDetails) { b.IFSCCode = "HDFC1001234" },
		},
		{
			name:   "missing holder",
			mutate: func(b *model.BankDetails) { b.AccountHolder = "" },
		},
	}

	pv := NewPaymentValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := validBank()
			tt.mutate(bank)
			err := pv.ValidateBank(bank)
			if !apperrors.HasCode(err, apperrors.CodeInvalidPaymentDetails) {
				t.Errorf("expected INVALID_PAYMENT_DETAILS, got %v", err)
			}
		})
	}
}

func TestLuhnValid(t *testing.T) {
	valid := []string{"4111111111111111", "5555555555554444", "378282246310005"}
	for _, number := range valid {
		if !luhnValid(number) {
			t.Errorf("expected %s to pass Luhn", number)
		}
	}
	if luhnValid("4111111111111112") {
		t.Error("expected altered PAN to fail Luhn")
	}
}
