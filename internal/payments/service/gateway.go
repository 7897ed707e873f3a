package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wanderly/pkg/model"
)

// ChargeRequest carries everything the gateway needs for one charge attempt.
// Card and bank details are already validated and normalized.
type ChargeRequest struct {
	IntentID string
	UserID   string
	Amount   decimal.Decimal
	Currency string
	Method   string
	Card     *model.CardDetails
	Bank     *model.BankDetails
}

// ChargeResult is the gateway's answer. Status is completed for synchronous
// methods and pending for asynchronous ones (bank transfer).
type ChargeResult struct {
	TransactionID string
	Status        string
}

// Gateway processes charges. The production build would back this with
// Stripe or Razorpay; the simulated gateway mirrors their response shapes.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

type simulatedGateway struct{}

// NewSimulatedGateway returns a gateway that accepts every validated charge.
// Card and demo charges settle immediately; bank transfers stay pending
// until the settlement notification arrives.
func NewSimulatedGateway() Gateway {
	return &simulatedGateway{}
}

func (g *simulatedGateway) Charge(_ context.Context, req *ChargeRequest) (*ChargeResult, error) {
	switch req.Method {
	case model.PaymentMethodCard:
		return &ChargeResult{
			TransactionID: transactionID("TXN"),
			Status:        model.PaymentStatusCompleted,
		}, nil
	case model.PaymentMethodBankTransfer:
		return &ChargeResult{
			TransactionID: transactionID("BANK"),
			Status:        model.PaymentStatusPending,
		}, nil
	case model.PaymentMethodDemo:
		return &ChargeResult{
			TransactionID: transactionID("DEMO"),
			Status:        model.PaymentStatusCompleted,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported payment method: %s", req.Method)
	}
}

// transactionID produces IDs like TXN_1756500000000_a1b2c3d4e, matching the
// format the reconciliation job expects.
func transactionID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}
