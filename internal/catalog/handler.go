// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/coupons", h.handleCreate)
	r.Get("/coupons/{id}", h.handleGet)
	r.Get("/coupons", h.handleList)
	r.Get("/businesses/{businessID}/codes/{code}", h.handleFindByCode)
	r.Post("/coupons/{id}/deactivate", h.handleDeactivate)
	r.Post("/coupons/{id}/usage", h.handleAdjustUsage)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCouponNotFound):
		http.Error(w, "coupon not found or expired", http.StatusNotFound)
	case errors.Is(err, ErrCouponExpired):
		// Outward message matches the not-found case on purpose; the status
		// code still lets clients tell them apart.
		http.Error(w, "coupon not found or expired", http.StatusGone)
	case errors.Is(err, ErrCodeTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params CreateCouponParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	coupon, err := h.service.CreateCoupon(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(coupon)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid coupon ID", http.StatusBadRequest)
		return
	}

	coupon, err := h.service.GetCoupon(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(coupon)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(r.URL.Query().Get("business_id"))
	if err != nil {
		http.Error(w, "invalid business ID", http.StatusBadRequest)
		return
	}

	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)

	coupons, err := h.service.ListForBusiness(r.Context(), businessID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(coupons)
}

func (h *Handler) handleFindByCode(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		http.Error(w, "invalid business ID", http.StatusBadRequest)
		return
	}
	code := chi.URLParam(r, "code")

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid timestamp", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	coupon, err := h.service.FindActiveByCode(r.Context(), businessID, code, at)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(coupon)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid coupon ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleAdjustUsage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid coupon ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	if err := h.service.AdjustUsage(r.Context(), id, req.Delta); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
