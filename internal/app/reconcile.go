/**
 * @description
 * The reconciliation dispatcher. Turns a verified provider callback into a
 * ledger write and, when the donation is tagged with an event, a sponsorship
 * total update. One adapter per provider feeds the shared path here.
 *
 * Side effects are strictly ordered: the ledger write happens before the
 * aggregator update. Both are idempotent, so when a crash or infrastructure
 * failure splits them, the provider's own redelivery completes the missing
 * half instead of double-applying.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/alumnilink/donation-service/internal/domain"
	"github.com/alumnilink/donation-service/internal/store"
)

// providerAdapter is the per-provider contract: authenticate the raw callback
// body, then translate the native event into the normalized form.
type providerAdapter interface {
	Provider() domain.PaymentProvider
	VerifySignature(body []byte, header string) error
	// Normalize parses the verified body. Returning (nil, nil) means the event
	// type is not one this subsystem handles.
	Normalize(body []byte) (*domain.NormalizedCallback, error)
}

// ErrUnknownProvider is returned for a callback routed to a provider this
// service has no adapter for. The router makes this unreachable in practice.
var ErrUnknownProvider = errors.New("unknown payment provider")

// HandleProviderCallback runs the full reconciliation algorithm for one
// inbound webhook delivery. The returned error is non-nil only for outcomes
// the provider should retry (infrastructure failures) or reject outright
// (signature failures, amounts that will never validate); every other path
// acknowledges the callback.
func (s *Service) HandleProviderCallback(ctx context.Context, provider domain.PaymentProvider, rawBody []byte, signatureHeader string) (*domain.WebhookAck, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	// 1. Authenticate before interpreting a single byte of the payload.
	if err := adapter.VerifySignature(rawBody, signatureHeader); err != nil {
		return nil, err
	}

	// 2. Parse the verified body into the provider's native shape. A body the
	// adapter cannot parse, or an event type outside this subsystem's
	// interest, is acknowledged without mutation.
	callback, err := adapter.Normalize(rawBody)
	if err != nil {
		log.Printf("level=warn component=reconcile provider=%s outcome=ignored reason=unparseable_body err=%v", provider, err)
		return &domain.WebhookAck{Received: true, Result: domain.AckIgnored}, nil
	}
	if callback == nil {
		return &domain.WebhookAck{Received: true, Result: domain.AckIgnored}, nil
	}

	// Best-effort replay short-circuit. The ledger remains the authoritative
	// idempotency mechanism; a suppressor miss is always safe.
	if s.suppressor != nil && callback.EventID != "" {
		if seen, err := s.suppressor.Seen(ctx, string(provider), callback.EventID); err == nil && seen {
			log.Printf("level=info component=reconcile provider=%s event_id=%s outcome=duplicate reason=replay_suppressed", provider, callback.EventID)
			return &domain.WebhookAck{Received: true, Result: domain.AckDuplicate}, nil
		}
	}

	// 3. Recover the correlation token. Foreign and malformed tokens are
	// acknowledged as received but never reconciled.
	token, found := ExtractReference(callback.RawToken)
	if !found {
		if strings.TrimSpace(callback.RawToken) != "" {
			// The callback carries a reference, just not one of ours. Another
			// subsystem or merchant account owns this transaction.
			log.Printf("level=info component=reconcile provider=%s reference=%s outcome=ignored reason=foreign_reference", provider, callback.Reference)
			return &domain.WebhookAck{Received: true, Result: domain.AckForeignToken}, nil
		}
		log.Printf("level=warn component=reconcile provider=%s reference=%s outcome=ignored reason=no_reference_token", provider, callback.Reference)
		return &domain.WebhookAck{Received: true, Result: domain.AckIgnored}, nil
	}
	ref, err := DecodeReference(token)
	if err != nil {
		log.Printf("level=warn component=reconcile provider=%s reference=%s outcome=ignored reason=malformed_reference token=%q", provider, callback.Reference, token)
		return &domain.WebhookAck{Received: true, Result: domain.AckIgnored}, nil
	}

	// 4. Terminal outcomes only. An intermediate provider state is
	// acknowledged without writing a pending row; the provider confirms or
	// denies later with its own delivery.
	var status domain.DonationStatus
	switch callback.Outcome {
	case domain.OutcomeSucceeded:
		status = domain.DonationSucceeded
	case domain.OutcomeFailed:
		status = domain.DonationFailed
	default:
		return &domain.WebhookAck{Received: true, Result: domain.AckNotTerminal}, nil
	}

	// 5. Record the outcome. Creation is conditional on the (provider,
	// reference) pair; a concurrent or repeated delivery returns the row the
	// first delivery created.
	donation, created, err := s.ledger.RecordDonationOutcome(ctx, store.RecordDonationOutcomeParams{
		Provider:          provider,
		ProviderReference: callback.Reference,
		DonorID:           ref.DonorID,
		Amount:            callback.Amount,
		Outcome:           status,
		EventID:           ref.EventID,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidAmount) {
			return nil, err
		}
		return nil, fmt.Errorf("ledger write failed for %s/%s: %w", provider, callback.Reference, err)
	}

	// A conflict is a differing terminal outcome against an already-terminal
	// row; a pending row (seeded out of band) simply reports duplicate.
	conflict := !created && donation.Status.IsTerminal() && donation.Status != status
	if conflict {
		// A provider reporting a different terminal outcome for an
		// already-resolved transaction is never trusted to override. Keep the
		// recorded state and flag for operator visibility.
		log.Printf("level=error component=reconcile provider=%s reference=%s outcome=inconsistent_provider_state recorded=%s reported=%s donation_id=%s",
			provider, callback.Reference, donation.Status, status, donation.ID)
	}

	// 6. Apply the sponsorship contribution from the *stored* row, not the
	// callback, so a conflicting replay can never contribute. Running this on
	// every succeeded delivery (not just the creating one) lets a provider
	// retry finish a contribution that a crash left unapplied; the
	// donation-id keyed set makes the replay a no-op otherwise.
	if donation.Status == domain.DonationSucceeded && donation.EventID != nil {
		applied, err := s.aggregator.ApplyContribution(ctx, *donation.EventID, donation.ID, donation.Amount)
		if err != nil {
			return nil, fmt.Errorf("aggregator update failed for donation %s: %w", donation.ID, err)
		}
		if applied {
			log.Printf("level=info component=reconcile provider=%s donation_id=%s event_id=%s amount=%d msg=\"sponsorship contribution applied\"",
				provider, donation.ID, donation.EventID, donation.Amount)
		}
	}

	if created {
		s.publishDonationRecorded(ctx, donation)
		log.Printf("level=info component=reconcile provider=%s reference=%s donation_id=%s donor_id=%s status=%s amount=%d msg=\"donation recorded\"",
			provider, callback.Reference, donation.ID, donation.DonorID, donation.Status, donation.Amount)
	}

	if s.suppressor != nil && callback.EventID != "" {
		if err := s.suppressor.MarkSeen(ctx, string(provider), callback.EventID); err != nil {
			log.Printf("level=warn component=reconcile provider=%s event_id=%s msg=\"replay suppressor mark failed\" err=%v", provider, callback.EventID, err)
		}
	}

	switch {
	case created:
		return &domain.WebhookAck{Received: true, Result: domain.AckRecorded}, nil
	case conflict:
		return &domain.WebhookAck{Received: true, Result: domain.AckConflict}, nil
	default:
		return &domain.WebhookAck{Received: true, Result: domain.AckDuplicate}, nil
	}
}

func (s *Service) publishDonationRecorded(ctx context.Context, donation *domain.Donation) {
	if s.producer == nil {
		return
	}
	event := domain.DonationRecordedEvent{
		DonationID: donation.ID.String(),
		DonorID:    donation.DonorID.String(),
		Provider:   string(donation.Provider),
		Amount:     donation.Amount,
		Status:     string(donation.Status),
	}
	if donation.EventID != nil {
		event.EventID = donation.EventID.String()
	}
	// Fire-and-forget: the notification pipeline must never block or fail a
	// provider acknowledgment.
	if err := s.producer.Publish(ctx, "donation_events", "donation.recorded."+string(donation.Status), event); err != nil {
		log.Printf("level=warn component=reconcile donation_id=%s msg=\"notifier publish failed\" err=%v", donation.ID, err)
	}
}
