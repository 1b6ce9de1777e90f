package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gearshare/internal/api"
	"gearshare/internal/dispute"
	"gearshare/internal/evidence"
	"gearshare/internal/ledger"
)

// Handlers exposes the booking lifecycle over HTTP. Every state mutation goes
// through the Engine; handlers only translate requests and map error kinds to
// the response envelope.
type Handlers struct {
	DB       *pgxpool.Pool
	Engine   *Engine
	Store    *PGStore
	Evidence *evidence.Repository
}

type CreateRequest struct {
	ListingID string `json:"listingId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Note      string `json:"note"`
}

const dateLayout = "2006-01-02"

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
	if _, err := uuid.Parse(req.ListingID); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "listingId must be a uuid")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "startDate must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "endDate must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "endDate is before startDate")
		return
	}

	b, event, err := h.Engine.CreateBooking(r.Context(), NewBooking{
		ListingID: req.ListingID,
		RenterID:  userID,
		StartDate: start,
		EndDate:   end,
		Note:      req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrListingNotFound):
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "listing not found")
		case errors.Is(err, ErrDateConflict):
			api.WriteError(w, http.StatusConflict, "DATE_CONFLICT", "dates conflict with an existing booking")
		default:
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"booking": b, "statusEntry": event})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFromContext(r.Context())
	if userID == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	items, err := h.Store.ListByUser(r.Context(), userID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []Booking{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadParty(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}

// History returns the booking's full status ledger plus any dispute
// resolutions, oldest first.
func (h Handlers) History(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadParty(w, r)
	if !ok {
		return
	}
	entries, err := ledger.ListByBooking(r.Context(), h.DB, b.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	resolutions, err := dispute.ListByBooking(r.Context(), h.DB, b.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if resolutions == nil {
		resolutions = []dispute.Resolution{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": entries, "disputeResolutions": resolutions})
}

type ActionRequest struct {
	Note string `json:"note"`
}

// Act handles POST /v1/bookings/{id}/{action}. The action name resolves to a
// (role, target) pair from the booking's current status; the engine decides
// legality against the state it reads under lock, so the status read here is
// only used for the confirmation actions' target selection.
func (h Handlers) Act(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFromContext(r.Context())
	if userID == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	b, ok := h.loadPartyAs(w, r, userID)
	if !ok {
		return
	}

	action := Action(chi.URLParam(r, "action"))
	if action == ActionResolveDispute {
		// Admin-only route with its own handler.
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "unknown action")
		return
	}

	var req ActionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
			return
		}
	}

	partyRole := RoleRenter
	if userID == b.OwnerID {
		partyRole = RoleOwner
	}
	role, target, ok := ResolveAction(action, partyRole, b.CurrentStatus)
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "unknown action")
		return
	}

	result, err := h.Engine.RequestTransition(r.Context(), TransitionRequest{
		BookingID:   b.ID,
		Target:      target,
		Role:        role,
		ActorUserID: userID,
		Note:        req.Note,
	})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":        "booking is now " + string(result.NewStatus),
		"previousStatus": result.PreviousStatus,
		"statusEntry":    result.Event,
	})
}

type ResolveDisputeRequest struct {
	Reason string `json:"reason"`
}

// ResolveDispute applies the system-actor DISPUTED -> DISPUTE_RESOLVED
// transition on behalf of an admin. The resolution record commits in the same
// transaction as the status event, so neither exists without the other.
func (h Handlers) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	adminID := api.UserIDFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id must be a uuid")
		return
	}

	var req ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if req.Reason == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "reason is required")
		return
	}

	if adminID == "" {
		adminID = "admin"
	}
	result, err := h.Engine.RequestTransition(r.Context(), TransitionRequest{
		BookingID: id,
		Target:    StatusDisputeResolved,
		Role:      RoleSystem,
		Note:      req.Reason,
		Record: func(ctx context.Context, tx pgx.Tx) error {
			return dispute.Insert(ctx, tx, id, adminID, req.Reason)
		},
	})
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":        "dispute resolved",
		"previousStatus": result.PreviousStatus,
		"statusEntry":    result.Event,
	})
}

type AddPhotoRequest struct {
	Phase      string `json:"phase"`
	StorageURL string `json:"storageUrl"`
}

func (h Handlers) AddPhoto(w http.ResponseWriter, r *http.Request) {
	userID := api.UserIDFromContext(r.Context())
	if userID == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	b, ok := h.loadPartyAs(w, r, userID)
	if !ok {
		return
	}

	var req AddPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	phase, ok := evidence.ParsePhase(req.Phase)
	if !ok {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "phase must be pickup, return or dispute")
		return
	}
	if req.StorageURL == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "storageUrl is required")
		return
	}

	p, err := h.Evidence.Insert(r.Context(), b.ID, userID, phase, req.StorageURL)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

func (h Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadParty(w, r)
	if !ok {
		return
	}
	photos, err := h.Evidence.ListByBooking(r.Context(), b.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if photos == nil {
		photos = []evidence.Photo{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": photos})
}

// loadParty loads the booking from the URL and rejects callers who are neither
// the renter nor the owner.
func (h Handlers) loadParty(w http.ResponseWriter, r *http.Request) (*Booking, bool) {
	userID := api.UserIDFromContext(r.Context())
	if userID == "" {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return nil, false
	}
	return h.loadPartyAs(w, r, userID)
}

func (h Handlers) loadPartyAs(w http.ResponseWriter, r *http.Request, userID string) (*Booking, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "id must be a uuid")
		return nil, false
	}

	b, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "booking not found")
		} else {
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		}
		return nil, false
	}
	if userID != b.RenterID && userID != b.OwnerID {
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "not a party to this booking")
		return nil, false
	}
	return b, true
}

func writeTransitionError(w http.ResponseWriter, err error) {
	var notAllowed *TransitionNotAllowedError
	switch {
	case errors.As(err, &notAllowed):
		api.WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", notAllowed.Error())
	case errors.Is(err, ErrPaymentRequired):
		api.WriteError(w, http.StatusConflict, "PAYMENT_REQUIRED", "payment must be completed before pickup")
	case errors.Is(err, ErrEvidenceRequired):
		api.WriteError(w, http.StatusConflict, "EVIDENCE_REQUIRED", "an evidence photo is required for this confirmation")
	case errors.Is(err, ErrNotAuthorized):
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "not authorized for this transition")
	case errors.Is(err, ErrBookingNotFound):
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "booking not found")
	default:
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
