package listing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gearshare/internal/api"
	"gearshare/internal/availability"
)

type Handlers struct {
	DB       *pgxpool.Pool
	Listings *Repository
	Blocked  *availability.Cache
}

type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DailyRate   string `json:"dailyRate"`
	Currency    string `json:"currency"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFromContext(r.Context())
	if userID == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if req.Title == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "title is required")
		return
	}
	rate, err := decimal.NewFromString(req.DailyRate)
	if err != nil || rate.IsNegative() {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "dailyRate must be a non-negative decimal")
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	l, err := h.Listings.Insert(r.Context(), userID, req.Title, req.Description, rate, currency)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(l)
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Listings.List(r.Context())
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []Listing{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}

	l, err := h.Listings.GetByID(r.Context(), id)
	if err != nil {
		if err == pgx.ErrNoRows {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "listing not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(l)
}

// BlockedDates returns the date ranges held by active bookings so clients can
// grey out a calendar. Served from the short-TTL cache when warm; booking
// creation always checks the index directly, so a stale read here can never
// admit a conflicting booking.
func (h Handlers) BlockedDates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
		return
	}

	if ranges, ok := h.Blocked.Get(r.Context(), id); ok {
		writeRanges(w, ranges)
		return
	}

	if _, err := h.Listings.GetByID(r.Context(), id); err != nil {
		if err == pgx.ErrNoRows {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "listing not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	ranges, err := availability.BlockedRanges(r.Context(), h.DB, id)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	h.Blocked.Set(r.Context(), id, ranges)
	writeRanges(w, ranges)
}

func writeRanges(w http.ResponseWriter, ranges []availability.Range) {
	if ranges == nil {
		ranges = []availability.Range{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"blocked": ranges})
}
