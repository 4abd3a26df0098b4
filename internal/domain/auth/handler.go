package auth

import (
	"errors"
	"net/http"

	"github.com/moim/moim-api/internal/domain/user"
	"github.com/moim/moim-api/internal/pkg/errorhandler"
	"github.com/moim/moim-api/internal/pkg/response"
	"github.com/moim/moim-api/internal/pkg/validator"
)

// Handler serves register/login endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailAlreadyExists):
			response.Conflict(w, "Email already registered")
		case errors.Is(err, user.ErrNicknameTaken):
			response.Conflict(w, "Nickname already in use")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed", err)
		}
		return
	}

	response.Created(w, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Unauthorized(w, "Invalid email or password")
		case errors.Is(err, ErrAccountBanned):
			response.Forbidden(w, "Your account has been banned")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed", err)
		}
		return
	}

	response.OK(w, result)
}
