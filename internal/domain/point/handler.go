package point

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/moim/moim-api/internal/middleware"
	"github.com/moim/moim-api/internal/pkg/errorhandler"
	"github.com/moim/moim-api/internal/pkg/pagination"
	"github.com/moim/moim-api/internal/pkg/response"
)

// Handler serves the point balance and ledger history endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the point handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetBalance handles GET /points/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			errorhandler.HandleError(r.Context(), w, http.StatusNotFound, "USER_PROFILE_NOT_FOUND", "User profile not found", err)
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get balance", err)
		return
	}

	response.OK(w, ToBalanceResponse(balance))
}

// ListTransactions handles GET /points/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")

	page, err := h.service.History(r.Context(), userID, cursor, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrMalformedCursor) {
			errorhandler.HandleError(r.Context(), w, http.StatusBadRequest, "MALFORMED_CURSOR", "Invalid pagination cursor", err)
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list transactions", err)
		return
	}

	response.OK(w, page)
}
