package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"wanderly/internal/bookings/service"
	apperrors "wanderly/pkg/errors"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

type mockCoordinator struct {
	startBookingFunc  func(ctx context.Context, req *service.StartBookingRequest) (*model.ReservationIntent, error)
	completeFunc      func(ctx context.Context, req *service.CompletePaymentRequest) (*service.PaymentOutcome, error)
	cancelFunc        func(ctx context.Context, intentID, reason string) error
	listBookingsFunc  func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	countBookingsFunc func(ctx context.Context) (int64, error)
}

func (m *mockCoordinator) StartBooking(ctx context.Context, req *service.StartBookingRequest) (*model.ReservationIntent, error) {
	if m.startBookingFunc != nil {
		return m.startBookingFunc(ctx, req)
	}
	return &model.ReservationIntent{ID: "intent-1"}, nil
}

func (m *mockCoordinator) CompletePayment(ctx context.Context, req *service.CompletePaymentRequest) (*service.PaymentOutcome, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return &service.PaymentOutcome{IntentState: model.IntentStateConfirmed}, nil
}

func (m *mockCoordinator) MarkSettled(ctx context.Context, paymentID string) error {
	return nil
}

func (m *mockCoordinator) FailSettlement(ctx context.Context, paymentID, reason string) error {
	return nil
}

func (m *mockCoordinator) CancelBooking(ctx context.Context, intentID, reason string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, intentID, reason)
	}
	return nil
}

func (m *mockCoordinator) GetIntent(ctx context.Context, intentID string) (*model.ReservationIntent, error) {
	return &model.ReservationIntent{ID: intentID}, nil
}

func (m *mockCoordinator) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	return &model.Booking{ID: bookingID}, nil
}

func (m *mockCoordinator) GetPaymentByIntent(ctx context.Context, intentID string) (*model.PaymentRecord, error) {
	return &model.PaymentRecord{IntentID: intentID}, nil
}

func (m *mockCoordinator) ListBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.listBookingsFunc != nil {
		return m.listBookingsFunc(ctx, userID, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockCoordinator) CountBookings(ctx context.Context) (int64, error) {
	if m.countBookingsFunc != nil {
		return m.countBookingsFunc(ctx)
	}
	return 0, nil
}

func (m *mockCoordinator) UpdateBookingStatus(ctx context.Context, bookingID, status string) (*model.Booking, error) {
	return &model.Booking{ID: bookingID, Status: status}, nil
}

func (m *mockCoordinator) GetAvailability(ctx context.Context, listingID string, dates model.DateRange) ([]*model.AvailabilityDay, error) {
	return []*model.AvailabilityDay{}, nil
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	})
}

func postBookings(t *testing.T, h *BookingHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	h.Handle(w, req, httprouter.Params{})
	return w
}

func TestBookingHandlerCreateReturns201(t *testing.T) {
	mock := &mockCoordinator{
		startBookingFunc: func(ctx context.Context, req *service.StartBookingRequest) (*model.ReservationIntent, error) {
			if req.UserID != "user-1" || req.ListingID != "listing-1" {
				t.Errorf("unexpected request: %+v", req)
			}
			return &model.ReservationIntent{ID: "intent-1", State: model.IntentStateHeld}, nil
		},
	}
	handler := NewBookingHandler(mock, testLog())

	w := postBookings(t, handler, map[string]any{
		"action":    "create",
		"userId":    "user-1",
		"listingId": "listing-1",
		"checkIn":   "2026-09-10T00:00:00Z",
		"checkOut":  "2026-09-12T00:00:00Z",
		"guests":    2,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Data model.ReservationIntent `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.ID != "intent-1" {
		t.Errorf("expected intent-1, got %q", response.Data.ID)
	}
}

func TestBookingHandlerSoldOutMapsToConflict(t *testing.T) {
	mock := &mockCoordinator{
		startBookingFunc: func(ctx context.Context, req *service.StartBookingRequest) (*model.ReservationIntent, error) {
			return nil, apperrors.SoldOut(req.ListingID)
		},
	}
	handler := NewBookingHandler(mock, testLog())

	w := postBookings(t, handler, map[string]any{
		"action":    "create",
		"userId":    "user-1",
		"listingId": "listing-1",
		"checkIn":   "2026-09-10T00:00:00Z",
		"checkOut":  "2026-09-12T00:00:00Z",
		"guests":    2,
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	var response struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Details["listing_id"] != "listing-1" {
		t.Errorf("expected listing_id detail, got %v", response.Details)
	}
}

func TestBookingHandlerUnknownActionRejected(t *testing.T) {
	handler := NewBookingHandler(&mockCoordinator{}, testLog())

	w := postBookings(t, handler, map[string]any{"action": "explode"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestBookingHandlerMalformedBodyRejected(t *testing.T) {
	handler := NewBookingHandler(&mockCoordinator{}, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.Handle(w, req, httprouter.Params{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestBookingHandlerGetAllPaginates(t *testing.T) {
	mock := &mockCoordinator{
		listBookingsFunc: func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
			if limit != 20 || offset != 10 {
				t.Errorf("expected limit=20 offset=10, got limit=%d offset=%d", limit, offset)
			}
			return []*model.Booking{{ID: "bk-1"}, {ID: "bk-2"}}, nil
		},
		countBookingsFunc: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}
	handler := NewBookingHandler(mock, testLog())

	w := postBookings(t, handler, map[string]any{
		"action": "getAll",
		"limit":  20,
		"offset": 10,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response struct {
		Data       []model.Booking `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.TotalCount != 42 {
		t.Errorf("expected total_count 42, got %d", response.TotalCount)
	}
	if len(response.Data) != 2 {
		t.Errorf("expected 2 bookings, got %d", len(response.Data))
	}
}

func TestBookingHandlerCancelReturns204(t *testing.T) {
	cancelled := ""
	mock := &mockCoordinator{
		cancelFunc: func(ctx context.Context, intentID, reason string) error {
			cancelled = intentID
			return nil
		},
	}
	handler := NewBookingHandler(mock, testLog())

	w := postBookings(t, handler, map[string]any{
		"action":   "cancel",
		"intentId": "intent-1",
	})

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}
	if cancelled != "intent-1" {
		t.Errorf("expected intent-1 cancelled, got %q", cancelled)
	}
}
