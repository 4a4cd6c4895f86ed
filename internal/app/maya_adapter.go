/**
 * @description
 * Maya webhook adapter. Verifies the provider signature and normalizes Maya's
 * flat checkout document into domain.NormalizedCallback.
 *
 * @notes
 * - Only the structured status field is consulted. Earlier revisions of the
 *   surrounding application inferred the provider from free-text description
 *   fields, which misclassifies donations whose description happens to
 *   mention a provider name; that heuristic is intentionally not used here.
 */

package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alumnilink/donation-service/internal/domain"
)

const MayaSignatureHeader = "X-Maya-Signature"

type mayaAdapter struct {
	webhookSecret string
}

func newMayaAdapter(webhookSecret string) *mayaAdapter {
	return &mayaAdapter{webhookSecret: webhookSecret}
}

func (a *mayaAdapter) Provider() domain.PaymentProvider {
	return domain.ProviderMaya
}

func (a *mayaAdapter) VerifySignature(body []byte, header string) error {
	return VerifyMayaSignature(body, header, a.webhookSecret)
}

// normalizeMayaStatus maps Maya's checkout status vocabulary onto the
// donation outcome enumeration. Intermediate states are reported as
// indeterminate so the dispatcher acknowledges without a ledger write.
func normalizeMayaStatus(status string) domain.CallbackOutcome {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAYMENT_SUCCESS":
		return domain.OutcomeSucceeded
	case "PAYMENT_FAILED", "PAYMENT_EXPIRED", "PAYMENT_CANCELLED":
		return domain.OutcomeFailed
	default:
		// AUTHORIZED, FOR_AUTHENTICATION, PENDING_TOKEN, ...
		return domain.OutcomeIndeterminate
	}
}

func (a *mayaAdapter) Normalize(body []byte) (*domain.NormalizedCallback, error) {
	var event domain.MayaEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	status := event.Status
	if status == "" {
		status = event.PaymentStatus
	}

	amount, err := parseMayaAmount(event.Amount)
	if err != nil {
		amount = 0 // surfaces as ErrInvalidAmount at the ledger boundary
	}

	return &domain.NormalizedCallback{
		Provider:  domain.ProviderMaya,
		Reference: event.ID,
		Outcome:   normalizeMayaStatus(status),
		Amount:    amount,
		RawToken:  event.RequestReferenceNumber,
		EventID:   event.ID,
		EventType: strings.ToUpper(strings.TrimSpace(status)),
	}, nil
}

// parseMayaAmount converts Maya's decimal peso string (e.g. "500.00") into
// centavos without going through floating point.
func parseMayaAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	whole, frac, _ := strings.Cut(raw, ".")

	pesos, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}

	var centavos int64
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		centavos, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	return pesos*100 + centavos, nil
}
