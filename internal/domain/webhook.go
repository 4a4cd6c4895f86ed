/**
 * @description
 * This file defines the Go structs that model the incoming webhook payloads from
 * the payment providers (PayMongo and Maya), along with the provider-neutral
 * normalized form the reconciliation logic operates on.
 *
 * @notes
 * - Each provider has its own event envelope and status vocabulary; the
 *   adapters in internal/app translate both into NormalizedCallback so the
 *   shared reconcile path never branches on provider-specific shapes.
 */
package domain

// CallbackOutcome is the provider-neutral terminal classification of a callback.
type CallbackOutcome string

const (
	OutcomeSucceeded CallbackOutcome = "succeeded"
	OutcomeFailed    CallbackOutcome = "failed"
	// OutcomeIndeterminate marks an intermediate provider state; the callback
	// is acknowledged without a ledger write.
	OutcomeIndeterminate CallbackOutcome = "indeterminate"
)

// NormalizedCallback is the common contract produced by the per-provider
// adapters after signature verification and payload parsing.
type NormalizedCallback struct {
	Provider  PaymentProvider
	Reference string // provider-assigned transaction reference
	Outcome   CallbackOutcome
	Amount    int64  // in centavos
	RawToken  string // correlation token as carried by the provider, possibly wrapped
	EventID   string // provider event id, used for best-effort replay suppression
	EventType string
}

// WebhookAck is the acknowledgment body returned to the provider. Providers
// only care about the HTTP status code; the body aids operator debugging.
type WebhookAck struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}

// Acknowledgment result labels.
const (
	AckRecorded     = "recorded"
	AckDuplicate    = "duplicate"
	AckIgnored      = "ignored"
	AckConflict     = "conflict_retained"
	AckNotTerminal  = "not_terminal"
	AckForeignToken = "foreign_reference"
)

// PayMongoEvent is the top-level PayMongo webhook envelope.
type PayMongoEvent struct {
	Data PayMongoEventData `json:"data"`
}

type PayMongoEventData struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes PayMongoEventAttribute `json:"attributes"`
}

type PayMongoEventAttribute struct {
	Type string           `json:"type"` // e.g. "checkout_session.payment.paid"
	Data PayMongoResource `json:"data"`
}

// PayMongoResource is the resource the event pertains to (checkout session or payment).
type PayMongoResource struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Attributes PayMongoResourceAttributes `json:"attributes"`
}

type PayMongoResourceAttributes struct {
	Amount      int64             `json:"amount"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	PaymentID   string            `json:"payment_id"`
}

// MayaEvent is the Maya checkout webhook payload. Maya posts a flat document
// with the checkout state and the merchant-supplied request reference number.
type MayaEvent struct {
	ID                     string  `json:"id"`
	Status                 string  `json:"status"` // e.g. "PAYMENT_SUCCESS"
	Amount                 string  `json:"amount"`
	Currency               string  `json:"currency"`
	RequestReferenceNumber string  `json:"requestReferenceNumber"`
	PaymentStatus          string  `json:"paymentStatus"`
	Description            *string `json:"description,omitempty"`
}

// DonationRecordedEvent is the message payload published to RabbitMQ after a
// donation outcome has been durably recorded. Consumed by the notification
// pipeline; delivery is fire-and-forget.
type DonationRecordedEvent struct {
	DonationID string `json:"donation_id"`
	DonorID    string `json:"donor_id"`
	Provider   string `json:"provider"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	EventID    string `json:"event_id,omitempty"`
}
