package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"wanderly/internal/users/service"
	apperrors "wanderly/pkg/errors"
	httputil "wanderly/pkg/http"
	"wanderly/pkg/logger"
	"wanderly/pkg/model"
)

const (
	ActionCreate = "create"
	ActionGet    = "get"
	ActionUpdate = "update"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

type userRequest struct {
	Action string `json:"action"`
	UID    string `json:"uid,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (h *UserHandler) Handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req userRequest
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
		h.get(w, r, &req)
	case ActionUpdate:
		h.update(w, r, &req)
	default:
		h.writeError(w, "Handle", apperrors.InvalidInput("unknown action: "+req.Action))
	}
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request, req *userRequest) {
	user, err := h.service.Create(r.Context(), &model.User{
		UID:   req.UID,
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(w, "create", err)
		return
	}

	if err := httputil.WriteCreated(w, user); err != nil {
		h.log.Error("failed to write created response", "handler", "create", "error", err)
	}
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request, req *userRequest) {
	user, err := h.service.GetByUID(r.Context(), req.UID)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "get", "error", err)
	}
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request, req *userRequest) {
	user, err := h.service.Update(r.Context(), req.UID, &model.UserUpdate{
		Email: req.Email,
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(w, "update", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "update", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/users", h.Handle)
}
