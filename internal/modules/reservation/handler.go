package reservation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultTTL = 60 * time.Second

// Handler exposes reservation HTTP endpoints.
type Handler struct{ manager *Manager }

func NewHandler(manager *Manager) *Handler { return &Handler{manager: manager} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/reservations", func(r chi.Router) {
		r.Post("/", h.hold)          // POST   /api/v1/reservations
		r.Get("/{id}", h.get)        // GET    /api/v1/reservations/{id}
		r.Delete("/{id}", h.release) // DELETE /api/v1/reservations/{id}
	})
}

func (h *Handler) hold(w http.ResponseWriter, r *http.Request) {
	var req HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}
	ttl := defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	res, err := h.manager.Hold(r.Context(), storeID, productID, req.Quantity, ttl)
	if err != nil {
		code := http.StatusServiceUnavailable
		switch {
		case errors.Is(err, ErrInsufficientStock):
			code = http.StatusConflict
		case errors.Is(err, ErrInvalidQuantity):
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation id"})
		return
	}
	res, err := h.manager.Get(id)
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation id"})
		return
	}
	if err := h.manager.Release(id); err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, ErrAlreadyTerminal):
			code = http.StatusUnprocessableEntity
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
