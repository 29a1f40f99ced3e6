// internal/distribution/handler.go
package distribution

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"perknexus/internal/catalog"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the distribution endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/distributions", h.handleDistribute)
	r.Post("/distributions/bulk", h.handleDistributeBulk)
	r.Post("/redemptions", h.handleRedeem)
	r.Post("/codes/copy", h.handleCopyCode)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDistributionNotFound), errors.Is(err, catalog.ErrCouponNotFound):
		http.Error(w, "coupon not found or expired", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyRedeemed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrCouponExpiredOrInactive):
		http.Error(w, "coupon not found or expired", http.StatusGone)
	case errors.Is(err, ErrUsageLimitReached):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponID   uuid.UUID `json:"coupon_id"`
		BusinessID uuid.UUID `json:"business_id"`
		CustomerID uuid.UUID `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dist, err := h.service.Distribute(r.Context(), req.CouponID, req.BusinessID, req.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dist)
}

func (h *Handler) handleDistributeBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponID    uuid.UUID   `json:"coupon_id"`
		BusinessID  uuid.UUID   `json:"business_id"`
		CustomerIDs []uuid.UUID `json:"customer_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := h.service.DistributeBulk(r.Context(), req.CouponID, req.BusinessID, req.CustomerIDs)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(results)
}

// handleRedeem accepts either a redemption code (scan entry, with business
// id) or a coupon id (button entry).
func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CouponID   uuid.UUID `json:"coupon_id,omitempty"`
		BusinessID uuid.UUID `json:"business_id,omitempty"`
		Code       string    `json:"code,omitempty"`
		CustomerID uuid.UUID `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		dist *Distribution
		err  error
	)
	switch {
	case req.Code != "":
		dist, err = h.service.RedeemByCode(r.Context(), req.BusinessID, req.Code, req.CustomerID)
	case req.CouponID != uuid.Nil:
		dist, err = h.service.RedeemByCouponID(r.Context(), req.CouponID, req.CustomerID)
	default:
		http.Error(w, "either code or coupon_id is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(dist)
}

func (h *Handler) handleCopyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok := h.service.CopyCode(r.Context(), req.Code)
	json.NewEncoder(w).Encode(map[string]bool{"success": ok})
}
