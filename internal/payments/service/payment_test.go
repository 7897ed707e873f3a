package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	paymenterrors "wanderly/internal/payments/errors"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.PaymentRecord
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*model.PaymentRecord)}
}

func (f *fakePaymentRepo) Create(_ context.Context, payment *model.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *payment
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id string) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[id]
	if !ok {
		return nil, paymenterrors.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func (f *fakePaymentRepo) FindByIntentID(_ context.Context, intentID string) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, payment := range f.payments {
		if payment.IntentID == intentID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, paymenterrors.ErrNotFound
}

func (f *fakePaymentRepo) MarkSettled(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[id]
	if !ok || payment.Status != model.PaymentStatusPending {
		return false, nil
	}
	payment.Status = model.PaymentStatusCompleted
	return true, nil
}

func (f *fakePaymentRepo) MarkFailed(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if payment, ok := f.payments[id]; ok && payment.Status == model.PaymentStatusPending {
		payment.Status = model.PaymentStatusFailed
	}
	return nil
}

// flakyGateway fails transiently a fixed number of times before delegating.
type flakyGateway struct {
	failures int
	calls    int
	inner    Gateway
}

func (g *flakyGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	g.calls++
	if g.calls <= g.failures {
		return nil, paymenterrors.ErrGatewayTransient
	}
	return g.inner.Charge(ctx, req)
}

func paymentTestConfig() *config.Config {
	return &config.Config{
		ChargeMaxAttempts: 3,
		Log:               logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func cardRequest() *ChargeRequest {
	return &ChargeRequest{
		IntentID: "intent-1",
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(12800),
		Currency: "INR",
		Method:   model.PaymentMethodCard,
		Card: &model.CardDetails{
			Number:      "4111111111111111",
			Holder:      "Asha Verma",
			ExpiryMonth: 12,
			ExpiryYear:  time.Now().UTC().Year() + 2,
			CVV:         "123",
		},
	}
}

func bankRequest() *ChargeRequest {
	return &ChargeRequest{
		IntentID: "intent-2",
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(30000),
		Currency: "INR",
		Method:   model.PaymentMethodBankTransfer,
		Bank: &model.BankDetails{
			AccountHolder: "Asha Verma",
			AccountNumber: "123456789012",
			BankCode:      "HDFC",
			IFSCCode:      "HDFC0001234",
		},
	}
}

func TestCharge_CardCompletesImmediately(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	payment, err := svc.Charge(context.Background(), cardRequest())
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}

	if payment.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %q", payment.Status)
	}
	if !strings.HasPrefix(payment.TransactionID, "TXN_") {
		t.Errorf("expected TXN_ transaction ID, got %q", payment.TransactionID)
	}
	if payment.CardDetails == nil || payment.CardDetails.Number != "****1111" {
		t.Errorf("expected masked card number ****1111, got %+v", payment.CardDetails)
	}
}

func TestCharge_BankTransferStaysPending(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	payment, err := svc.Charge(context.Background(), bankRequest())
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}

	if payment.Status != model.PaymentStatusPending {
		t.Errorf("expected pending, got %q", payment.Status)
	}
	if !strings.HasPrefix(payment.TransactionID, "BANK_") {
		t.Errorf("expected BANK_ transaction ID, got %q", payment.TransactionID)
	}
	if payment.BankDetails == nil || payment.BankDetails.AccountNumber != "****9012" {
		t.Errorf("expected masked account ****9012, got %+v", payment.BankDetails)
	}
}

func TestCharge_DemoCompletes(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	payment, err := svc.Charge(context.Background(), &ChargeRequest{
		IntentID: "intent-3",
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(5000),
		Currency: "INR",
		Method:   model.PaymentMethodDemo,
	})
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if payment.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %q", payment.Status)
	}
	if !strings.HasPrefix(payment.TransactionID, "DEMO_") {
		t.Errorf("expected DEMO_ transaction ID, got %q", payment.TransactionID)
	}
}

func TestCharge_RejectsInvalidCard(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	req := cardRequest()
	req.Card.ExpiryYear = time.Now().UTC().Year() - 1

	_, err := svc.Charge(context.Background(), req)
	if !apperrors.HasCode(err, apperrors.CodeInvalidPaymentDetails) {
		t.Fatalf("expected INVALID_PAYMENT_DETAILS, got %v", err)
	}
	if len(repo.payments) != 0 {
		t.Error("rejected charge must not persist a payment record")
	}
}

func TestCharge_RetriesTransientFailures(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &flakyGateway{failures: 2, inner: NewSimulatedGateway()}
	svc := NewService(paymentTestConfig(), repo, gateway)

	payment, err := svc.Charge(context.Background(), cardRequest())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if gateway.calls != 3 {
		t.Errorf("expected 3 gateway calls, got %d", gateway.calls)
	}
	if payment.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %q", payment.Status)
	}
}

func TestCharge_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := newFakePaymentRepo()
	gateway := &flakyGateway{failures: 10, inner: NewSimulatedGateway()}
	svc := NewService(paymentTestConfig(), repo, gateway)

	_, err := svc.Charge(context.Background(), cardRequest())
	if !apperrors.HasCode(err, apperrors.CodePaymentFailed) {
		t.Fatalf("expected PAYMENT_FAILED, got %v", err)
	}
	if gateway.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", gateway.calls)
	}
}

func TestMarkSettled_IsIdempotent(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	payment, err := svc.Charge(context.Background(), bankRequest())
	if err != nil {
		t.Fatal(err)
	}

	settled, err := svc.MarkSettled(context.Background(), payment.ID)
	if err != nil || !settled {
		t.Fatalf("first settle: settled=%v err=%v", settled, err)
	}

	settled, err = svc.MarkSettled(context.Background(), payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if settled {
		t.Error("second settle must report already settled")
	}
}

func TestMarkFailed_DoesNotClobberSettledPayment(t *testing.T) {
	repo := newFakePaymentRepo()
	svc := NewService(paymentTestConfig(), repo, NewSimulatedGateway())

	payment, err := svc.Charge(context.Background(), bankRequest())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkSettled(context.Background(), payment.ID); err != nil {
		t.Fatal(err)
	}

	// A late failure report must not flip money that already settled.
	if err := svc.MarkFailed(context.Background(), payment.ID, "settlement_timeout"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	refreshed, err := svc.Get(context.Background(), payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.Status != model.PaymentStatusCompleted {
		t.Errorf("expected completed, got %q", refreshed.Status)
	}
}
