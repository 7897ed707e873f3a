package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"wanderly/internal/bookings/service"
	"wanderly/pkg/config"
	apperrors "wanderly/pkg/errors"
	httputil "wanderly/pkg/http"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// Booking actions multiplexed over POST /api/v1/bookings, keeping the route
// shape the storefront already speaks.
const (
	ActionCreate       = "create"
	ActionGet          = "get"
	ActionGetAll       = "getAll"
	ActionGetByID      = "getById"
	ActionUpdate       = "update"
	ActionCancel       = "cancel"
	ActionAvailability = "availability"
)

type BookingHandler struct {
	coordinator service.Coordinator
	log         *logger.Logger
}

func NewBookingHandler(coordinator service.Coordinator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		coordinator: coordinator,
		log:         log,
	}
}

type bookingRequest struct {
	Action string `json:"action"`

	UserID    string    `json:"userId,omitempty"`
	ListingID string    `json:"listingId,omitempty"`
	CheckIn   time.Time `json:"checkIn,omitempty"`
	CheckOut  time.Time `json:"checkOut,omitempty"`
	Guests    int       `json:"guests,omitempty"`

	IntentID  string `json:"intentId,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`

	Limit  int   `json:"limit,omitempty"`
	Offset int64 `json:"offset,omitempty"`
}

func (h *BookingHandler) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Handle", "error", writeErr)
		}
		return
	}

	switch req.Action {
	case ActionCreate:
		h.create(w, r, &req)
	case ActionGet:
		h.getIntent(w, r, &req)
	case ActionGetByID:
		h.getBooking(w, r, &req)
	case ActionGetAll:
		h.getAll(w, r, &req)
	case ActionUpdate:
		h.update(w, r, &req)
	case ActionCancel:
		h.cancel(w, r, &req)
	case ActionAvailability:
		h.availability(w, r, &req)
	default:
		h.writeError(w, "Handle", apperrors.InvalidInput("unknown action: "+req.Action))
	}
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	intent, err := h.coordinator.StartBooking(r.Context(), &service.StartBookingRequest{
		UserID:    req.UserID,
		ListingID: req.ListingID,
		Dates:     model.DateRange{CheckIn: req.CheckIn, CheckOut: req.CheckOut},
		Guests:    req.Guests,
	})
	if err != nil {
		h.writeError(w, "create", err)
		return
	}

	if err := httputil.WriteCreated(w, intent); err != nil {
		h.log.Error("failed to write created response", "handler", "create", "error", err)
	}
}

func (h *BookingHandler) getIntent(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	intent, err := h.coordinator.GetIntent(r.Context(), req.IntentID)
	if err != nil {
		h.writeError(w, "getIntent", err)
		return
	}

	if err := httputil.WriteSuccess(w, intent); err != nil {
		h.log.Error("failed to write success response", "handler", "getIntent", "error", err)
	}
}

func (h *BookingHandler) getBooking(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	booking, err := h.coordinator.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		h.writeError(w, "getBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "getBooking", "error", err)
	}
}

func (h *BookingHandler) getAll(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	limit := config.NormalizePaginationLimit(req.Limit)
	offset := config.NormalizeOffset(req.Offset)

	bookings, err := h.coordinator.ListBookings(r.Context(), req.UserID, limit, offset)
	if err != nil {
		h.writeError(w, "getAll", err)
		return
	}

	total, err := h.coordinator.CountBookings(r.Context())
	if err != nil {
		h.writeError(w, "getAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "getAll", "error", err)
	}
}

func (h *BookingHandler) update(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	booking, err := h.coordinator.UpdateBookingStatus(r.Context(), req.BookingID, req.Status)
	if err != nil {
		h.writeError(w, "update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "update", "error", err)
	}
}

func (h *BookingHandler) cancel(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	reason := req.Reason
	if reason == "" {
		reason = "traveller_cancelled"
	}

	if err := h.coordinator.CancelBooking(r.Context(), req.IntentID, reason); err != nil {
		h.writeError(w, "cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) availability(w http.ResponseWriter, r *http.Request, req *bookingRequest) {
	days, err := h.coordinator.GetAvailability(r.Context(), req.ListingID, model.DateRange{
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
	})
	if err != nil {
		h.writeError(w, "availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "availability", "error", err)
	}
}

// GetAll serves GET listings with query-string pagination for dashboards and
// scripts that prefer it over the action body.
func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, err := h.coordinator.ListBookings(r.Context(), r.URL.Query().Get("userId"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	total, err := h.coordinator.CountBookings(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Handle)
	router.GET("/api/v1/bookings", h.GetAll)
}
