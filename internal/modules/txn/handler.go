package txn

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes transaction HTTP endpoints.
type Handler struct{ coordinator *Coordinator }

func NewHandler(coordinator *Coordinator) *Handler { return &Handler{coordinator: coordinator} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/transactions", func(r chi.Router) {
		r.Post("/", h.submit)                            // POST /api/v1/transactions
		r.Get("/{id}", h.get)                            // GET  /api/v1/transactions/{id}
		r.Get("/store/{store_id}", h.listByStore)        // GET  /api/v1/transactions/store/{store_id}
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tx, err := h.coordinator.Submit(r.Context(), req)
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, statusCode(tx), tx)
}

// statusCode maps a terminal transaction to its response code: committed is
// a create, insufficient stock is a conflict, storage faults are retryable.
func statusCode(tx *Transaction) int {
	if tx.Status == StatusCommitted {
		return http.StatusCreated
	}
	switch tx.AbortReason {
	case AbortInsufficientStock:
		return http.StatusConflict
	case AbortInvariantViolation:
		return http.StatusUnprocessableEntity
	case AbortStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return
	}
	tx, err := h.coordinator.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, tx)
}

func (h *Handler) listByStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(chi.URLParam(r, "store_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid store_id"})
		return
	}
	txs, err := h.coordinator.ListByStore(r.Context(), storeID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, txs)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
