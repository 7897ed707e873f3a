package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"wanderly/internal/bookings/service"
	apperrors "wanderly/pkg/errors"
	httputil "wanderly/pkg/http"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

// Payment actions multiplexed over POST /api/v1/payments. The action names
// double as the payment method names, as the storefront sends them.
const (
	PaymentActionGet = "get"
)

type PaymentHandler struct {
	coordinator service.Coordinator
	log         *logger.Logger
}

func NewPaymentHandler(coordinator service.Coordinator, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		coordinator: coordinator,
		log:         log,
	}
}

type paymentRequest struct {
	Action   string `json:"action"`
	IntentID string `json:"intentId"`

	Card *model.CardDetails `json:"cardDetails,omitempty"`
	Bank *model.BankDetails `json:"bankDetails,omitempty"`
}

func (h *PaymentHandler) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Handle", "error", writeErr)
		}
		return
	}

	switch req.Action {
	case model.PaymentMethodCard, model.PaymentMethodBankTransfer, model.PaymentMethodDemo:
		h.complete(w, r, &req)
	case PaymentActionGet:
		h.get(w, r, &req)
	default:
		h.writeError(w, "Handle", apperrors.InvalidInput("unknown action: "+req.Action))
	}
}

func (h *PaymentHandler) complete(w http.ResponseWriter, r *http.Request, req *paymentRequest) {
	outcome, err := h.coordinator.CompletePayment(r.Context(), &service.CompletePaymentRequest{
		IntentID: req.IntentID,
		Method:   req.Action,
		Card:     req.Card,
		Bank:     req.Bank,
	})
	if err != nil {
		h.writeError(w, "complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, outcome); err != nil {
		h.log.Error("failed to write success response", "handler", "complete", "error", err)
	}
}

func (h *PaymentHandler) get(w http.ResponseWriter, r *http.Request, req *paymentRequest) {
	payment, err := h.coordinator.GetPaymentByIntent(r.Context(), req.IntentID)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "get", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments", h.Handle)
}
