package service

import (
	"context"
	"sync"
	"testing"
	"time"

	intenterrors "wanderly/internal/intents/errors"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// fakeIntentRepo is an in-memory IntentRepository with the same CAS
// semantics as the Mongo implementation.
type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*model.ReservationIntent
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[string]*model.ReservationIntent)}
}

func (f *fakeIntentRepo) Create(_ context.Context, intent *model.ReservationIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *intent
	f.intents[intent.ID] = &copied
	return nil
}

func (f *fakeIntentRepo) FindByID(_ context.Context, id string) (*model.ReservationIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok {
		return nil, intenterrors.ErrNotFound
	}
	copied := *intent
	return &copied, nil
}

func (f *fakeIntentRepo) FindByPaymentID(_ context.Context, paymentID string) (*model.ReservationIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, intent := range f.intents {
		if intent.PaymentID == paymentID {
			copied := *intent
			return &copied, nil
		}
	}
	return nil, intenterrors.ErrNotFound
}

func (f *fakeIntentRepo) FindByUser(_ context.Context, userID string, limit int, offset int64) ([]*model.ReservationIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.ReservationIntent{}
	for _, intent := range f.intents {
		if intent.UserID == userID {
			copied := *intent
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeIntentRepo) cas(id, fromState string, apply func(*model.ReservationIntent)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok || intent.State != fromState {
		return false, nil
	}
	apply(intent)
	return true, nil
}

func (f *fakeIntentRepo) MarkPendingSettlement(_ context.Context, id, paymentID string, deadline time.Time) (bool, error) {
	return f.cas(id, model.IntentStateHeld, func(i *model.ReservationIntent) {
		i.State = model.IntentStatePendingSettlement
		i.PaymentID = paymentID
		i.ExpiresAt = deadline
	})
}

func (f *fakeIntentRepo) MarkConfirmed(_ context.Context, id, fromState, paymentID, bookingID string) (bool, error) {
	return f.cas(id, fromState, func(i *model.ReservationIntent) {
		i.State = model.IntentStateConfirmed
		i.PaymentID = paymentID
		i.BookingID = bookingID
	})
}

func (f *fakeIntentRepo) MarkExpired(_ context.Context, id string) (bool, error) {
	return f.cas(id, model.IntentStateHeld, func(i *model.ReservationIntent) {
		i.State = model.IntentStateExpired
	})
}

func (f *fakeIntentRepo) MarkCancelled(_ context.Context, id, fromState, reason string) (bool, error) {
	return f.cas(id, fromState, func(i *model.ReservationIntent) {
		i.State = model.IntentStateCancelled
		i.CancelReason = reason
	})
}

func (f *fakeIntentRepo) findStale(state string, now time.Time, limit int) []*model.ReservationIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.ReservationIntent{}
	for _, intent := range f.intents {
		if len(out) >= limit {
			break
		}
		if intent.State == state && intent.ExpiresAt.Before(now) {
			copied := *intent
			out = append(out, &copied)
		}
	}
	return out
}

func (f *fakeIntentRepo) FindExpiredHeld(_ context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error) {
	return f.findStale(model.IntentStateHeld, now, limit), nil
}

func (f *fakeIntentRepo) FindSettlementTimedOut(_ context.Context, now time.Time, limit int) ([]*model.ReservationIntent, error) {
	return f.findStale(model.IntentStatePendingSettlement, now, limit), nil
}

func intentTestConfig() *config.Config {
	return &config.Config{
		HoldWindow:        15 * time.Minute,
		SettlementTimeout: 48 * time.Hour,
		SweepInterval:     time.Minute,
		SweepBatchSize:    100,
		Log:               logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func TestCreate_SetsStateAndDeadline(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := NewService(intentTestConfig(), repo)

	before := time.Now().UTC()
	intent, err := svc.Create(context.Background(), &model.ReservationIntent{
		ListingID: "listing-1",
		UserID:    "user-1",
		Guests:    2,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if intent.ID == "" {
		t.Error("expected a generated intent ID")
	}
	if intent.State != model.IntentStateHeld {
		t.Errorf("expected state %q, got %q", model.IntentStateHeld, intent.State)
	}

	wantMin := before.Add(15 * time.Minute)
	if intent.ExpiresAt.Before(wantMin.Add(-time.Second)) {
		t.Errorf("expires_at %v is before the hold window minimum %v", intent.ExpiresAt, wantMin)
	}
}

func TestConfirm_WrongStateIsConflict(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := NewService(intentTestConfig(), repo)

	intent, err := svc.Create(context.Background(), &model.ReservationIntent{
		ListingID: "listing-1",
		UserID:    "user-1",
		Guests:    1,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Cancel(context.Background(), intent.ID, model.IntentStateHeld, "traveller_cancelled"); err != nil {
		t.Fatal(err)
	}

	err = svc.Confirm(context.Background(), intent.ID, model.IntentStateHeld, "pay-1", "book-1")
	if !apperrors.HasCode(err, apperrors.CodeIntentNotActive) {
		t.Fatalf("expected INTENT_NOT_ACTIVE, got %v", err)
	}
}

func TestMarkPendingSettlement_ExtendsDeadline(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := NewService(intentTestConfig(), repo)

	intent, err := svc.Create(context.Background(), &model.ReservationIntent{
		ListingID: "listing-1",
		UserID:    "user-1",
		Guests:    1,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.MarkPendingSettlement(context.Background(), intent.ID, "pay-1"); err != nil {
		t.Fatalf("MarkPendingSettlement failed: %v", err)
	}

	updated, err := svc.Get(context.Background(), intent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.State != model.IntentStatePendingSettlement {
		t.Errorf("expected state %q, got %q", model.IntentStatePendingSettlement, updated.State)
	}
	if !updated.ExpiresAt.After(time.Now().UTC().Add(47 * time.Hour)) {
		t.Errorf("expected deadline pushed to the settlement window, got %v", updated.ExpiresAt)
	}
}

func TestGet_UnknownIntent(t *testing.T) {
	repo := newFakeIntentRepo()
	svc := NewService(intentTestConfig(), repo)

	_, err := svc.Get(context.Background(), "missing")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
