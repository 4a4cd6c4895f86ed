/**
 * @description
 * PayMongo webhook adapter. Verifies the provider signature and normalizes the
 * provider's native event envelope into the provider-neutral
 * domain.NormalizedCallback, so the shared reconcile path never sees
 * PayMongo-specific shapes.
 */

package app

import (
	"encoding/json"
	"strings"

	"github.com/alumnilink/donation-service/internal/domain"
)

// PayMongoSignatureHeader is the canonical signature header name; lookup at
// the HTTP boundary is case-insensitive via http.Header.
const PayMongoSignatureHeader = "Paymongo-Signature"

// Terminal PayMongo event types this subsystem cares about. Everything else
// (sources, refunds, lifecycle chatter) is acknowledged and ignored.
const (
	payMongoEventCheckoutPaid = "checkout_session.payment.paid"
	payMongoEventPaymentPaid  = "payment.paid"
	payMongoEventPaymentFail  = "payment.failed"
)

type payMongoAdapter struct {
	webhookSecret string
}

func newPayMongoAdapter(webhookSecret string) *payMongoAdapter {
	return &payMongoAdapter{webhookSecret: webhookSecret}
}

func (a *payMongoAdapter) Provider() domain.PaymentProvider {
	return domain.ProviderPayMongo
}

func (a *payMongoAdapter) VerifySignature(body []byte, header string) error {
	return VerifyPayMongoSignature(body, header, a.webhookSecret)
}

// Normalize parses the verified body. A nil callback with a nil error means
// the event type is not one this subsystem handles.
func (a *payMongoAdapter) Normalize(body []byte) (*domain.NormalizedCallback, error) {
	var event domain.PayMongoEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	eventType := strings.TrimSpace(event.Data.Attributes.Type)
	var outcome domain.CallbackOutcome
	switch eventType {
	case payMongoEventCheckoutPaid, payMongoEventPaymentPaid:
		outcome = domain.OutcomeSucceeded
	case payMongoEventPaymentFail:
		outcome = domain.OutcomeFailed
	default:
		return nil, nil
	}

	resource := event.Data.Attributes.Data

	// The correlation token travels in the checkout session metadata. Fall
	// back to the description for payment resources that only echo it there.
	rawToken := resource.Attributes.Metadata["reference"]
	if rawToken == "" {
		rawToken = resource.Attributes.Description
	}

	reference := resource.ID
	if resource.Attributes.PaymentID != "" {
		reference = resource.Attributes.PaymentID
	}

	return &domain.NormalizedCallback{
		Provider:  domain.ProviderPayMongo,
		Reference: reference,
		Outcome:   outcome,
		Amount:    resource.Attributes.Amount,
		RawToken:  rawToken,
		EventID:   event.Data.ID,
		EventType: eventType,
	}, nil
}
