package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	inventoryerrors "wanderly/internal/inventory/errors"
	"wanderly/pkg/config"
	mongotx "wanderly/pkg/db/mongo"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// fakeAvailabilityRepo reproduces the conditional-update semantics of the
// Mongo repository in memory so ledger behavior can be tested under real
// concurrency.
type fakeAvailabilityRepo struct {
	mu    sync.Mutex
	days  map[string]*model.AvailabilityDay
	holds map[string]*model.Hold

	failCreateHold bool
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{
		days:  make(map[string]*model.AvailabilityDay),
		holds: make(map[string]*model.Hold),
	}
}

func dayKey(listingID string, date time.Time) string {
	return listingID + ":" + date.UTC().Format("2006-01-02")
}

func (f *fakeAvailabilityRepo) EnsureDays(_ context.Context, listingID string, dates []time.Time, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, date := range dates {
		key := dayKey(listingID, date)
		if _, ok := f.days[key]; !ok {
			f.days[key] = &model.AvailabilityDay{
				ID:        key,
				ListingID: listingID,
				Date:      date,
				Capacity:  capacity,
			}
		}
	}
	return nil
}

func (f *fakeAvailabilityRepo) ReserveDay(_ context.Context, listingID string, date time.Time, guests int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.days[dayKey(listingID, date)]
	if !ok || day.Committed+day.Held+guests > day.Capacity {
		return inventoryerrors.ErrInsufficientCapacity
	}
	day.Held += guests
	return nil
}

func (f *fakeAvailabilityRepo) ReleaseDay(_ context.Context, listingID string, date time.Time, guests int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if day, ok := f.days[dayKey(listingID, date)]; ok && day.Held >= guests {
		day.Held -= guests
	}
	return nil
}

func (f *fakeAvailabilityRepo) CommitDay(_ context.Context, listingID string, date time.Time, guests int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.days[dayKey(listingID, date)]
	if !ok || day.Held < guests {
		return errors.New("no held capacity to commit")
	}
	day.Held -= guests
	day.Committed += guests
	return nil
}

func (f *fakeAvailabilityRepo) FindDays(_ context.Context, listingID string, dates []time.Time) ([]*model.AvailabilityDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.AvailabilityDay{}
	for _, date := range dates {
		if day, ok := f.days[dayKey(listingID, date)]; ok {
			copied := *day
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) CreateHold(_ context.Context, hold *model.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateHold {
		return errors.New("insert failed")
	}
	copied := *hold
	f.holds[hold.Token] = &copied
	return nil
}

func (f *fakeAvailabilityRepo) FindHold(_ context.Context, token string) (*model.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[token]
	if !ok {
		return nil, inventoryerrors.ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (f *fakeAvailabilityRepo) TransitionHold(_ context.Context, token, fromState, toState string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[token]
	if !ok || hold.State != fromState {
		return false, nil
	}
	hold.State = toState
	return true, nil
}

func (f *fakeAvailabilityRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func testListing(capacity int) *model.Listing {
	return &model.Listing{
		ID:       "listing-1",
		Type:     model.ListingTypeHotel,
		Capacity: capacity,
	}
}

func testRange(nights int) model.DateRange {
	checkIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	return model.DateRange{
		CheckIn:  checkIn,
		CheckOut: checkIn.AddDate(0, 0, nights),
	}
}

func TestTryHold_GrantsCapacity(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	hold, err := ledger.TryHold(context.Background(), testListing(4), testRange(3), 2)
	if err != nil {
		t.Fatalf("TryHold failed: %v", err)
	}
	if hold.Token == "" {
		t.Error("expected a hold token")
	}
	if len(hold.Dates) != 3 {
		t.Errorf("expected 3 held dates, got %d", len(hold.Dates))
	}
	if hold.State != model.HoldStateHeld {
		t.Errorf("expected state %q, got %q", model.HoldStateHeld, hold.State)
	}

	for _, day := range repo.days {
		if day.Held != 2 {
			t.Errorf("day %s: expected held=2, got %d", day.ID, day.Held)
		}
	}
}

func TestTryHold_SoldOutRollsBackPartialReservation(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)
	listing := testListing(2)
	dates := testRange(3)

	// Exhaust the middle night only.
	middle := dates.CheckIn.AddDate(0, 0, 1)
	if err := repo.EnsureDays(context.Background(), listing.ID, []time.Time{middle}, listing.Capacity); err != nil {
		t.Fatal(err)
	}
	repo.days[dayKey(listing.ID, middle)].Committed = 2

	_, err := ledger.TryHold(context.Background(), listing, dates, 1)
	if !apperrors.HasCode(err, apperrors.CodeSoldOut) {
		t.Fatalf("expected SOLD_OUT, got %v", err)
	}

	// The first night's tentative reservation must have been released.
	for _, day := range repo.days {
		if day.Held != 0 {
			t.Errorf("day %s: expected held=0 after rollback, got %d", day.ID, day.Held)
		}
	}
}

func TestTryHold_CapacityOneUnderConcurrency(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)
	listing := testListing(1)
	dates := testRange(1)

	const attempts = 20
	var wg sync.WaitGroup
	granted := make(chan *model.Hold, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hold, err := ledger.TryHold(context.Background(), listing, dates, 1); err == nil {
				granted <- hold
			}
		}()
	}
	wg.Wait()
	close(granted)

	wins := 0
	for range granted {
		wins++
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winner for capacity 1, got %d", wins)
	}
}

func TestTryHold_RollsBackWhenHoldInsertFails(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	repo.failCreateHold = true
	ledger := NewLedger(testConfig(), repo)

	_, err := ledger.TryHold(context.Background(), testListing(4), testRange(2), 2)
	if err == nil {
		t.Fatal("expected error when hold insert fails")
	}

	for _, day := range repo.days {
		if day.Held != 0 {
			t.Errorf("day %s: expected held=0 after rollback, got %d", day.ID, day.Held)
		}
	}
}

func TestTryHold_RejectsInvalidInput(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	if _, err := ledger.TryHold(context.Background(), testListing(4), testRange(0), 1); err == nil {
		t.Error("expected error for empty date range")
	}
	if _, err := ledger.TryHold(context.Background(), testListing(4), testRange(1), 0); err == nil {
		t.Error("expected error for zero guests")
	}
}

func TestCommit_MovesHeldToCommitted(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	hold, err := ledger.TryHold(context.Background(), testListing(4), testRange(2), 3)
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Commit(context.Background(), hold.Token); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	for _, day := range repo.days {
		if day.Held != 0 || day.Committed != 3 {
			t.Errorf("day %s: expected held=0 committed=3, got held=%d committed=%d",
				day.ID, day.Held, day.Committed)
		}
	}
}

func TestCommit_IsIdempotent(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	hold, err := ledger.TryHold(context.Background(), testListing(4), testRange(2), 2)
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Commit(context.Background(), hold.Token); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Commit(context.Background(), hold.Token); err != nil {
		t.Fatalf("second Commit should be a no-op, got %v", err)
	}

	for _, day := range repo.days {
		if day.Committed != 2 {
			t.Errorf("day %s: double commit changed counters, committed=%d", day.ID, day.Committed)
		}
	}
}

func TestRelease_RestoresCapacity(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)
	listing := testListing(1)
	dates := testRange(1)

	hold, err := ledger.TryHold(context.Background(), listing, dates, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Sold out while the hold is live.
	if _, err := ledger.TryHold(context.Background(), listing, dates, 1); !apperrors.HasCode(err, apperrors.CodeSoldOut) {
		t.Fatalf("expected SOLD_OUT while held, got %v", err)
	}

	if err := ledger.Release(context.Background(), hold.Token); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Full capacity available again.
	if _, err := ledger.TryHold(context.Background(), listing, dates, 1); err != nil {
		t.Fatalf("expected hold to succeed after release, got %v", err)
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	hold, err := ledger.TryHold(context.Background(), testListing(2), testRange(1), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Release(context.Background(), hold.Token); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Release(context.Background(), hold.Token); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}

	for _, day := range repo.days {
		if day.Held != 0 {
			t.Errorf("day %s: double release corrupted counters, held=%d", day.ID, day.Held)
		}
	}
}

func TestCommitAfterRelease_Conflicts(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	hold, err := ledger.TryHold(context.Background(), testListing(2), testRange(1), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Release(context.Background(), hold.Token); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Commit(context.Background(), hold.Token); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected CONFLICT committing a released hold, got %v", err)
	}
}

func TestCommit_UnknownHold(t *testing.T) {
	repo := newFakeAvailabilityRepo()
	ledger := NewLedger(testConfig(), repo)

	if err := ledger.Commit(context.Background(), "no-such-token"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
