/**
 * @description
 * Correlation reference codec. A reference is minted when a checkout session
 * is created, carried through the provider in metadata (PayMongo) or the
 * request reference number (Maya), and echoed back verbatim in the webhook
 * callback. Decoding it recovers the donor identity and the donation purpose.
 *
 * Format (colon separated, provider-safe ASCII, stable across providers):
 *
 *   af1:don:<unix>:<donor-uuid>                general donation
 *   af1:spon:<unix>:<donor-uuid>:<event-uuid>  event sponsorship
 */

package app

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alumnilink/donation-service/internal/domain"
)

const referencePrefix = "af1"

var (
	// ErrMalformedReference marks a token that carries our prefix but does not
	// match the expected structure. Such callbacks are acknowledged and logged,
	// never failed.
	ErrMalformedReference = errors.New("malformed donation reference")

	// ErrForeignReference marks a token whose purpose prefix is not ours. The
	// callback belongs to an unrelated or legacy transaction and must be
	// acknowledged as received but otherwise ignored.
	ErrForeignReference = errors.New("reference does not belong to this application")
)

// referencePattern recovers a token embedded inside a larger free-text field,
// e.g. a provider-composed description wrapping the original reference.
var referencePattern = regexp.MustCompile(`af1:(?:don|spon):[0-9]+:[0-9a-fA-F-]{36}(?::[0-9a-fA-F-]{36})?`)

// EncodeReference builds the correlation token embedded in a checkout session.
func EncodeReference(purpose domain.DonationPurpose, donorID uuid.UUID, eventID *uuid.UUID) string {
	ts := time.Now().Unix()
	if purpose == domain.PurposeSponsorship && eventID != nil {
		return fmt.Sprintf("%s:%s:%d:%s:%s", referencePrefix, purpose, ts, donorID, eventID)
	}
	return fmt.Sprintf("%s:%s:%d:%s", referencePrefix, domain.PurposeDonation, ts, donorID)
}

// DecodeReference parses a correlation token back into its parts. Tokens with
// an unknown prefix yield ErrForeignReference; tokens with our prefix but the
// wrong shape yield ErrMalformedReference.
func DecodeReference(token string) (*domain.DonationReference, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedReference
	}

	parts := strings.Split(token, ":")
	if parts[0] != referencePrefix {
		return nil, ErrForeignReference
	}
	if len(parts) < 4 || len(parts) > 5 {
		return nil, ErrMalformedReference
	}

	purpose := domain.DonationPurpose(parts[1])
	switch purpose {
	case domain.PurposeDonation:
		if len(parts) != 4 {
			return nil, ErrMalformedReference
		}
	case domain.PurposeSponsorship:
		if len(parts) != 5 {
			return nil, ErrMalformedReference
		}
	default:
		return nil, ErrMalformedReference
	}

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrMalformedReference
	}
	donorID, err := uuid.Parse(parts[3])
	if err != nil {
		return nil, ErrMalformedReference
	}

	ref := &domain.DonationReference{
		Purpose:   purpose,
		CreatedAt: time.Unix(ts, 0).UTC(),
		DonorID:   donorID,
	}
	if purpose == domain.PurposeSponsorship {
		eventID, err := uuid.Parse(parts[4])
		if err != nil {
			return nil, ErrMalformedReference
		}
		ref.EventID = &eventID
	}
	return ref, nil
}

// ExtractReference locates a correlation token inside provider-added wrapping.
// A bare token is its own match; otherwise the first embedded match wins. The
// raw value is never returned as-is, so wrapper text before or after the token
// cannot leak into decoding.
func ExtractReference(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	match := referencePattern.FindString(raw)
	if match == "" {
		return "", false
	}
	return match, true
}
