/**
 * @description
 * This file contains the HTTP handlers for the donation-service's API
 * endpoints: the per-provider webhook endpoints, donation checkout initiation,
 * the donor's donation history, and the per-event sponsorship total.
 *
 * Webhook response policy:
 * - 400 only for a request missing the signature header entirely.
 * - 401 on signature verification failure.
 * - 400 for an amount that will never validate (no point in provider retries).
 * - 500 for ledger/aggregator infrastructure failures, so the provider's own
 *   retry schedule becomes the recovery path.
 * - 200 with an acknowledgment body on every other outcome, including
 *   ignored, foreign, and duplicate events.
 *
 * @dependencies
 * - encoding/json, io, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/alumnilink/donation-service/internal/app"
	"github.com/alumnilink/donation-service/internal/domain"
	"github.com/alumnilink/donation-service/internal/store"
)

// DonationHandlers holds the application service that handlers will use.
type DonationHandlers struct {
	service *app.Service
}

// NewDonationHandlers creates a new instance of DonationHandlers.
func NewDonationHandlers(service *app.Service) *DonationHandlers {
	return &DonationHandlers{service: service}
}

// PayMongoWebhookHandler handles callbacks from PayMongo.
func (h *DonationHandlers) PayMongoWebhookHandler(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, domain.ProviderPayMongo, app.PayMongoSignatureHeader)
}

// MayaWebhookHandler handles callbacks from Maya.
func (h *DonationHandlers) MayaWebhookHandler(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, domain.ProviderMaya, app.MayaSignatureHeader)
}

func (h *DonationHandlers) handleWebhook(w http.ResponseWriter, r *http.Request, provider domain.PaymentProvider, signatureHeader string) {
	// The body must be read raw: the signature is computed over the exact
	// bytes the provider sent, and re-serialization is not byte-stable.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("level=warn component=api endpoint=webhook provider=%s outcome=reject reason=body_read_failed err=%v", provider, err)
		h.writeError(w, http.StatusBadRequest, "Cannot read request body")
		return
	}

	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		log.Printf("level=warn component=api endpoint=webhook provider=%s outcome=reject reason=missing_signature_header", provider)
		h.writeError(w, http.StatusBadRequest, "Missing signature header")
		return
	}

	ack, err := h.service.HandleProviderCallback(r.Context(), provider, body, signature)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSignatureInvalid), errors.Is(err, app.ErrSecretNotConfigured):
			log.Printf("level=warn component=api endpoint=webhook provider=%s outcome=reject reason=signature_invalid err=%v", provider, err)
			h.writeError(w, http.StatusUnauthorized, "Invalid signature")
		case errors.Is(err, store.ErrInvalidAmount):
			log.Printf("level=warn component=api endpoint=webhook provider=%s outcome=reject reason=invalid_amount", provider)
			h.writeError(w, http.StatusBadRequest, "Invalid donation amount")
		default:
			// Transient infrastructure failure. A non-2xx response leaves the
			// callback unacknowledged so the provider redelivers it.
			log.Printf("level=error component=api endpoint=webhook provider=%s outcome=retryable err=%v", provider, err)
			h.writeError(w, http.StatusInternalServerError, "Reconciliation failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, ack)
}

// CheckoutHandler handles requests to initiate a donation checkout session.
func (h *DonationHandlers) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.resolveDonor(w, r)
	if !ok {
		return
	}

	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	resp, err := h.service.InitiateCheckout(r.Context(), donorID, req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCheckoutAmount):
			h.writeError(w, http.StatusBadRequest, "Donation amount must be positive.")
		case errors.Is(err, app.ErrProviderUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, "Payment provider is not available.")
		default:
			log.Printf("level=error component=api endpoint=checkout outcome=failed donor_id=%s err=%v", donorID, err)
			h.writeError(w, http.StatusBadGateway, "Could not create checkout session.")
		}
		return
	}

	log.Printf("level=info component=api endpoint=checkout outcome=created donor_id=%s provider=%s amount=%d", donorID, req.Provider, req.Amount)
	h.writeJSON(w, http.StatusCreated, resp)
}

// DonationHistoryHandler lists the authenticated donor's donations, newest first.
func (h *DonationHandlers) DonationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.resolveDonor(w, r)
	if !ok {
		return
	}

	donations, err := h.service.DonationHistory(r.Context(), donorID)
	if err != nil {
		log.Printf("level=error component=api endpoint=donation_history outcome=failed donor_id=%s err=%v", donorID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve donations.")
		return
	}
	if donations == nil {
		donations = []domain.Donation{}
	}

	h.writeJSON(w, http.StatusOK, donations)
}

// SponsorshipTotalHandler returns the running sponsorship total for an event.
func (h *DonationHandlers) SponsorshipTotalHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	total, err := h.service.EventSponsorshipTotal(r.Context(), eventID)
	if err != nil {
		log.Printf("level=error component=api endpoint=sponsorship_total outcome=failed event_id=%s err=%v", eventID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not retrieve sponsorship total.")
		return
	}

	h.writeJSON(w, http.StatusOK, total)
}

// resolveDonor maps the authenticated Clerk subject to the internal donor UUID.
func (h *DonationHandlers) resolveDonor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	clerkUserID, ok := GetClerkUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return uuid.Nil, false
	}

	donorID, err := h.service.ResolveInternalDonorID(r.Context(), clerkUserID)
	if err != nil {
		if errors.Is(err, store.ErrDonorNotFound) {
			h.writeError(w, http.StatusBadRequest, "User not found")
			return uuid.Nil, false
		}
		log.Printf("level=error component=api msg=\"donor resolution failed\" clerk_user_id=%s err=%v", clerkUserID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to resolve user")
		return uuid.Nil, false
	}
	return donorID, true
}

// writeJSON is a helper for writing JSON responses.
func (h *DonationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *DonationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
