package gifticon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moim/moim-api/internal/domain/point"
	"github.com/moim/moim-api/internal/middleware"
	"github.com/moim/moim-api/internal/pkg/errorhandler"
	"github.com/moim/moim-api/internal/pkg/pagination"
	"github.com/moim/moim-api/internal/pkg/response"
	"github.com/moim/moim-api/internal/pkg/validator"
)

// Handler serves gifticon catalog and redemption endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the gifticon handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListCatalog handles GET /gifticons
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.service.Catalog(
		r.Context(),
		r.URL.Query().Get("sort"),
		r.URL.Query().Get("cursor"),
		limit,
	)
	if err != nil {
		switch {
		case errors.Is(err, pagination.ErrMalformedCursor):
			errorhandler.HandleError(r.Context(), w, http.StatusBadRequest, "MALFORMED_CURSOR", "Invalid pagination cursor", err)
		case errors.Is(err, ErrInvalidSortKey):
			response.BadRequest(w, "Unknown sort key")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list gifticons", err)
		}
		return
	}

	response.OK(w, page)
}

// Create handles POST /gifticons (admin)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGifticonRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	g := &Gifticon{
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
		PricePoints: req.PricePoints,
		Stock:       req.Stock,
	}
	if err := h.service.Create(r.Context(), g); err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create gifticon", err)
		return
	}

	response.Created(w, g)
}

// Redeem handles POST /gifticons/{id}/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	gifticonID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid gifticon id")
		return
	}

	userID := middleware.GetUserID(r.Context())

	red, err := h.service.Redeem(r.Context(), userID, gifticonID)
	if err != nil {
		h.handleRedemptionError(w, r, err)
		return
	}

	response.Created(w, ToRedemptionResponse(red))
}

// Approve handles POST /gifticons/redemptions/{id}/approve (admin)
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /gifticons/redemptions/{id}/reject (admin)
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decideFn func(ctx context.Context, id uuid.UUID) (*Redemption, error)) {
	redemptionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid redemption id")
		return
	}

	red, err := decideFn(r.Context(), redemptionID)
	if err != nil {
		h.handleRedemptionError(w, r, err)
		return
	}

	response.OK(w, ToRedemptionResponse(red))
}

// ListMyRedemptions handles GET /gifticons/redemptions
func (h *Handler) ListMyRedemptions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.service.History(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, pagination.ErrMalformedCursor) {
			errorhandler.HandleError(r.Context(), w, http.StatusBadRequest, "MALFORMED_CURSOR", "Invalid pagination cursor", err)
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list redemptions", err)
		return
	}

	response.OK(w, page)
}

func (h *Handler) handleRedemptionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, point.ErrInsufficientPoints):
		errorhandler.HandleError(r.Context(), w, http.StatusUnprocessableEntity, "INSUFFICIENT_POINTS", "Not enough points", err)
	case errors.Is(err, point.ErrProfileNotFound):
		errorhandler.HandleError(r.Context(), w, http.StatusNotFound, "USER_PROFILE_NOT_FOUND", "User profile not found", err)
	case errors.Is(err, point.ErrLockTimeout):
		errorhandler.HandleError(r.Context(), w, http.StatusServiceUnavailable, "LOCK_TIMEOUT", "Balance busy, please retry", err)
	case errors.Is(err, ErrGifticonNotFound):
		response.NotFound(w, "Gifticon not found")
	case errors.Is(err, ErrRedemptionNotFound):
		response.NotFound(w, "Redemption not found")
	case errors.Is(err, ErrOutOfStock):
		response.Conflict(w, "Gifticon out of stock")
	case errors.Is(err, ErrAlreadyDecided):
		response.Conflict(w, "Redemption already decided")
	default:
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Redemption operation failed", err)
	}
}
