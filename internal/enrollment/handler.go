// internal/enrollment/handler.go
package enrollment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the enrollment endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/enrollments", h.handleEnroll)
	r.Get("/customers/{customerID}/enrollments", h.handleList)
	r.Post("/enrollments/accrue", h.handleAccrue)
	r.Post("/customers/{customerID}/visits", h.handleRecordVisit)
	r.Get("/businesses/{businessID}/customers/{customerID}", h.handleGetCustomer)
	r.Post("/programs", h.handleCreateProgram)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProgramNotFound),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrEnrollmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID uuid.UUID   `json:"customer_id"`
		Contact    ContactInfo `json:"contact"`
		BusinessID uuid.UUID   `json:"business_id"`
		ProgramID  uuid.UUID   `json:"program_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	enrollment, err := h.service.Enroll(r.Context(), req.CustomerID, req.Contact, req.BusinessID, req.ProgramID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(enrollment)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "invalid customer ID", http.StatusBadRequest)
		return
	}

	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)

	enrollments, err := h.service.ListForCustomer(r.Context(), customerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(enrollments)
}

func (h *Handler) handleAccrue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID uuid.UUID `json:"customer_id"`
		ProgramID  uuid.UUID `json:"program_id"`
		Points     int       `json:"points"`
		Spend      float64   `json:"spend"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	enrollment, err := h.service.AccruePoints(r.Context(), req.CustomerID, req.ProgramID, req.Points, req.Spend)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(enrollment)
}

func (h *Handler) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "invalid customer ID", http.StatusBadRequest)
		return
	}

	var req struct {
		BusinessID uuid.UUID `json:"business_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RecordVisit(r.Context(), customerID, req.BusinessID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		http.Error(w, "invalid business ID", http.StatusBadRequest)
		return
	}
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "invalid customer ID", http.StatusBadRequest)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), customerID, businessID)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(customer)
}

func (h *Handler) handleCreateProgram(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID uuid.UUID `json:"business_id"`
		Name       string    `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	program, err := h.service.CreateProgram(r.Context(), req.BusinessID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(program)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
