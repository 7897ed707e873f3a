package validator

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/model"
	"wanderly/pkg/sanitizer"
)

var ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

// PaymentValidator checks card and bank details before they reach the
// gateway. All failures surface as INVALID_PAYMENT_DETAILS with a per-field
// details map; raw numbers never appear in the details.
type PaymentValidator struct {
	validate *validator.Validate
}

func NewPaymentValidator() *PaymentValidator {
	v := validator.New()
	return &PaymentValidator{validate: v}
}

// ValidateCard normalizes and checks card details in place.
func (pv *PaymentValidator) ValidateCard(card *model.CardDetails) error {
	if card == nil {
		return apperrors.InvalidPaymentDetails("card details are required", nil)
	}

	card.Number = sanitizer.DigitsOnly(card.Number)
	card.CVV = sanitizer.DigitsOnly(card.CVV)
	card.Holder = sanitizer.NormalizeName(card.Holder)

	if err := pv.validate.Struct(card); err != nil {
		return apperrors.InvalidPaymentDetails("invalid card details", fieldDetails(err))
	}

	details := map[string]any{}
	if len(card.Number) < 13 || len(card.Number) > 19 {
		details["cardNumber"] = "must be 13-19 digits"
	} else if !luhnValid(card.Number) {
		details["cardNumber"] = "failed checksum validation"
	}
	if len(card.CVV) < 3 || len(card.CVV) > 4 {
		details["cvv"] = "must be 3 or 4 digits"
	}
	if expired(card.ExpiryMonth, card.ExpiryYear) {
		details["expiry"] = "card has expired"
	}

	if len(details) > 0 {
		return apperrors.InvalidPaymentDetails("invalid card details", details)
	}
	return nil
}

// ValidateBank normalizes and checks bank transfer details in place.
func (pv *PaymentValidator) ValidateBank(bank *model.BankDetails) error {
	if bank == nil {
		return apperrors.InvalidPaymentDetails("bank details are required", nil)
	}

	bank.AccountNumber = sanitizer.DigitsOnly(bank.AccountNumber)
	bank.IFSCCode = sanitizer.NormalizeCode(bank.IFSCCode)
	bank.AccountHolder = sanitizer.NormalizeName(bank.AccountHolder)

	if err := pv.validate.Struct(bank); err != nil {
		return apperrors.InvalidPaymentDetails("invalid bank details", fieldDetails(err))
	}

	details := map[string]any{}
	if len(bank.AccountNumber) < 9 {
		details["accountNumber"] = "must be at least 9 digits"
	}
	if !ifscPattern.MatchString(bank.IFSCCode) {
		details["ifscCode"] = "format must be XXXX0XXXXXX"
	}

	if len(details) > 0 {
		return apperrors.InvalidPaymentDetails("invalid bank details", details)
	}
	return nil
}

// luhnValid implements the Luhn checksum over a digits-only string.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

// expired checks the month/year pair against the current month. A card is
// valid through the last day of its expiry month.
func expired(month, year int) bool {
	now := time.Now().UTC()
	if year < now.Year() {
		return true
	}
	if year == now.Year() && month < int(now.Month()) {
		return true
	}
	return false
}

func fieldDetails(err error) map[string]any {
	details := map[string]any{}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			details[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return details
}
