/**
 * @description
 * This file defines the core domain models for the donation-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (centavos), which avoids floating-point inaccuracies with financial data.
 * - Exactly one Donation row exists per (provider, provider_reference) pair;
 *   reprocessing a provider callback must never create a duplicate.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProvider identifies which third-party processor reported a transaction.
type PaymentProvider string

const (
	ProviderPayMongo PaymentProvider = "paymongo"
	ProviderMaya     PaymentProvider = "maya"
	ProviderNone     PaymentProvider = "none"
)

// DonationStatus is the lifecycle status of a donation record.
// 'succeeded' and 'failed' are terminal; no transitions out of a terminal state.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationSucceeded DonationStatus = "succeeded"
	DonationFailed    DonationStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s DonationStatus) IsTerminal() bool {
	return s == DonationSucceeded || s == DonationFailed
}

// Donation represents the central ledger record for a single donation.
// This struct maps directly to the `donations` table in the database.
type Donation struct {
	ID                uuid.UUID       `json:"id"`
	Provider          PaymentProvider `json:"provider"`
	ProviderReference string          `json:"provider_reference"`
	DonorID           uuid.UUID       `json:"donor_id"`
	Amount            int64           `json:"amount"` // in centavos
	Status            DonationStatus  `json:"status"`
	EventID           *uuid.UUID      `json:"event_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SponsorshipTotal is the running contribution total for one event.
// The cumulative amount equals the sum of all succeeded donations tagged with
// the event; each donation is counted at most once.
type SponsorshipTotal struct {
	EventID           uuid.UUID `json:"event_id"`
	TotalAmount       int64     `json:"total_amount"` // in centavos
	ContributionCount int       `json:"contribution_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DonationPurpose distinguishes a general donation from an event sponsorship.
type DonationPurpose string

const (
	PurposeDonation    DonationPurpose = "don"
	PurposeSponsorship DonationPurpose = "spon"
)

// DonationReference is the decoded form of a correlation token. The token is
// minted at checkout time, embedded in the provider session, and echoed back
// verbatim in the provider's webhook callback.
type DonationReference struct {
	Purpose   DonationPurpose
	CreatedAt time.Time
	DonorID   uuid.UUID
	EventID   *uuid.UUID
}

// CheckoutRequest is the DTO for incoming donation checkout API requests.
type CheckoutRequest struct {
	Amount   int64           `json:"amount"` // in centavos
	Provider PaymentProvider `json:"provider"`
	EventID  *uuid.UUID      `json:"event_id,omitempty"`
}

// CheckoutResponse is returned after a provider checkout session was created.
type CheckoutResponse struct {
	Provider    PaymentProvider `json:"provider"`
	CheckoutURL string          `json:"checkout_url"`
	Reference   string          `json:"reference"`
}
