/**
 * @description
 * This file defines the persistence interfaces required by the donation-service.
 * The reconciliation logic depends on these interfaces rather than a concrete
 * database, so the surrounding application's document/row store can implement
 * them and tests can substitute in-memory fakes.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/alumnilink/donation-service/internal/domain"
)

// RecordDonationOutcomeParams carries everything needed to durably record a
// terminal donation outcome reported by a provider callback.
type RecordDonationOutcomeParams struct {
	Provider          domain.PaymentProvider
	ProviderReference string
	DonorID           uuid.UUID
	Amount            int64 // in centavos, must be > 0
	Outcome           domain.DonationStatus
	EventID           *uuid.UUID
}

// DonationLedger is the durable store of donation records. It enforces
// at-most-one record per (provider, provider reference) pair.
type DonationLedger interface {
	// FindDonationByProviderReference returns the donation recorded for the
	// given provider transaction reference, or ErrDonationNotFound.
	FindDonationByProviderReference(ctx context.Context, provider domain.PaymentProvider, reference string) (*domain.Donation, error)

	// RecordDonationOutcome creates a donation with the given terminal status
	// if none exists for (provider, reference). If a record already exists the
	// call is a no-op and returns the existing row unchanged. The boolean
	// reports whether a new row was created. Fails with ErrInvalidAmount when
	// amount <= 0.
	RecordDonationOutcome(ctx context.Context, params RecordDonationOutcomeParams) (*domain.Donation, bool, error)

	// ListDonationsByDonor returns the donor's donations, newest first.
	ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)

	// FindDonorIDByClerkUserID resolves the internal donor UUID from a Clerk
	// user id (e.g. "user_abc123"). The users table is owned by the auth
	// service; this is a read-only lookup.
	FindDonorIDByClerkUserID(ctx context.Context, clerkUserID string) (uuid.UUID, error)
}

// SponsorshipAggregator maintains the running contribution total per event,
// updated only by confirmed donations tagged with that event.
type SponsorshipAggregator interface {
	// ApplyContribution atomically adds the amount to the event's total and
	// records the donation id in the contributing set, only if the donation id
	// is not already present. The boolean reports whether the amount was
	// applied by this call.
	ApplyContribution(ctx context.Context, eventID, donationID uuid.UUID, amount int64) (bool, error)

	// GetSponsorshipTotal reads the current total for an event. An event with
	// no contributions yet yields a zero-valued total, not an error.
	GetSponsorshipTotal(ctx context.Context, eventID uuid.UUID) (*domain.SponsorshipTotal, error)
}
