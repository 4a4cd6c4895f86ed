/**
 * @description
 * This file sets up the HTTP router for the donation-service. Webhook
 * endpoints sit outside the auth group: providers authenticate with
 * signatures, not bearer tokens.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DonationRoutes creates and returns a new router for the donation service.
func DonationRoutes(h *DonationHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts. The
	// timeout stays well under the providers' webhook delivery timeout so a
	// slow store surfaces as a retryable failure, not a hung connection.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Provider callbacks: signature-authenticated, no bearer token.
	r.Post("/webhooks/paymongo", h.PayMongoWebhookHandler)
	r.Post("/webhooks/maya", h.MayaWebhookHandler)

	// Sponsorship totals are a public read surface.
	r.Get("/events/{eventID}/sponsorship", h.SponsorshipTotalHandler)

	// Donor-facing endpoints require authentication.
	r.Group(func(r chi.Router) {
		r.Use(ClerkAuthMiddleware(jwksURL))

		r.Post("/checkout", h.CheckoutHandler)
		r.Get("/history", h.DonationHistoryHandler)
	})

	return r
}
