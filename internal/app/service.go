/**
 * @description
 * This file contains the core application service for the donation-service.
 * The Service struct holds its dependencies behind interfaces (ledger,
 * aggregator, provider clients, event producer) supplied by the caller, so
 * tests can substitute in-memory fakes for any of them.
 *
 * @dependencies
 * - internal/store: Persistence interfaces.
 * - pkg/paymongo, pkg/maya: Provider checkout clients.
 * - pkg/rabbitmq: Event producer for the notification pipeline.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alumnilink/donation-service/internal/domain"
	"github.com/alumnilink/donation-service/internal/store"
	"github.com/alumnilink/donation-service/pkg/maya"
	"github.com/alumnilink/donation-service/pkg/paymongo"
)

var (
	ErrInvalidCheckoutAmount = errors.New("checkout amount must be positive")
	ErrProviderUnavailable   = errors.New("payment provider client not configured")
)

// CheckoutClient creates a provider-hosted checkout session carrying the
// correlation token. Both provider clients satisfy it.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, amount int64, reference string) (checkoutURL string, err error)
}

// Publisher is the subset of the RabbitMQ producer the service needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// ReplaySuppressor is a best-effort seen-set for provider event ids. Redis
// backed in production, nil-able everywhere.
type ReplaySuppressor interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	MarkSeen(ctx context.Context, provider, eventID string) error
}

// Service is the application core. It owns checkout initiation, webhook
// reconciliation, and the donor-facing read surfaces.
type Service struct {
	ledger     store.DonationLedger
	aggregator store.SponsorshipAggregator
	producer   Publisher
	suppressor ReplaySuppressor

	checkoutClients map[domain.PaymentProvider]CheckoutClient
	adapters        map[domain.PaymentProvider]providerAdapter
}

// NewService creates the application service with its dependencies.
func NewService(
	ledger store.DonationLedger,
	aggregator store.SponsorshipAggregator,
	payMongoClient *paymongo.Client,
	mayaClient *maya.Client,
	producer Publisher,
	payMongoWebhookSecret string,
	mayaWebhookSecret string,
) *Service {
	s := &Service{
		ledger:     ledger,
		aggregator: aggregator,
		producer:   producer,
		checkoutClients: map[domain.PaymentProvider]CheckoutClient{},
		adapters: map[domain.PaymentProvider]providerAdapter{
			domain.ProviderPayMongo: newPayMongoAdapter(payMongoWebhookSecret),
			domain.ProviderMaya:     newMayaAdapter(mayaWebhookSecret),
		},
	}
	if payMongoClient != nil {
		s.checkoutClients[domain.ProviderPayMongo] = payMongoClient
	}
	if mayaClient != nil {
		s.checkoutClients[domain.ProviderMaya] = mayaClient
	}
	return s
}

// SetReplaySuppressor attaches the optional Redis-backed replay suppressor.
func (s *Service) SetReplaySuppressor(suppressor ReplaySuppressor) {
	s.suppressor = suppressor
}

// InitiateCheckout mints a correlation token for the donor and creates a
// checkout session with the chosen provider. The token round-trips through
// the provider and comes back in the webhook callback.
func (s *Service) InitiateCheckout(ctx context.Context, donorID uuid.UUID, req domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidCheckoutAmount
	}

	client, ok := s.checkoutClients[req.Provider]
	if !ok {
		return nil, ErrProviderUnavailable
	}

	purpose := domain.PurposeDonation
	if req.EventID != nil {
		purpose = domain.PurposeSponsorship
	}
	reference := EncodeReference(purpose, donorID, req.EventID)

	checkoutURL, err := client.CreateCheckout(ctx, req.Amount, reference)
	if err != nil {
		return nil, fmt.Errorf("create %s checkout: %w", req.Provider, err)
	}

	return &domain.CheckoutResponse{
		Provider:    req.Provider,
		CheckoutURL: checkoutURL,
		Reference:   reference,
	}, nil
}

// ResolveInternalDonorID maps a Clerk user id to the internal donor UUID.
func (s *Service) ResolveInternalDonorID(ctx context.Context, clerkUserID string) (uuid.UUID, error) {
	return s.ledger.FindDonorIDByClerkUserID(ctx, clerkUserID)
}

// DonationHistory returns the donor's donations, newest first. Pending rows
// are included and shown as pending.
func (s *Service) DonationHistory(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	return s.ledger.ListDonationsByDonor(ctx, donorID)
}

// EventSponsorshipTotal reads the running contribution total for an event.
func (s *Service) EventSponsorshipTotal(ctx context.Context, eventID uuid.UUID) (*domain.SponsorshipTotal, error) {
	return s.aggregator.GetSponsorshipTotal(ctx, eventID)
}
