package payment

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gearshare/internal/api"
	"gearshare/pkg/config"
)

type Handlers struct {
	Cfg  config.Config
	Repo *Repository
}

type webhookPayload struct {
	BookingID string `json:"bookingId"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// Webhook receives signed payment notifications from the provider and records
// completed payments. It answers 200 for payloads we choose to ignore so the
// provider does not retry them forever.
func (h Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimSpace(chi.URLParam(r, "provider"))
	signature := strings.TrimSpace(r.Header.Get("X-Payment-Signature"))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}
	if !VerifySignature(body, signature, h.Cfg.PaymentWebhookSecret) {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook signature")
		return
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	if _, err := uuid.Parse(p.BookingID); err != nil || p.Reference == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if p.Status != "completed" {
		// Pending/failed notifications carry no fact the engine reads.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.Repo.RecordCompleted(r.Context(), p.BookingID, provider, p.Reference, p.Amount); err != nil {
		log.Printf("payment webhook: record %s/%s: %v", provider, p.Reference, err)
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}
