/**
 * @description
 * Webhook signature verification for both payment providers. Verification is a
 * pure check over the raw, unparsed request body; it must run before the body
 * is interpreted as JSON. Re-serialized bodies are never signed because
 * re-serialization is not guaranteed byte-identical.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha256, encoding/base64, encoding/hex: For HMAC
 *   computation and the encodings providers use for their signature headers.
 */

package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrSignatureInvalid is fatal for the request; the callback is rejected
	// with 401 and no ledger mutation occurs.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrSecretNotConfigured means the pre-shared secret for the provider is
	// missing; verification cannot run and the callback is rejected.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
)

func hmacSHA256(secret string, data []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyPayMongoSignature checks a PayMongo webhook signature header of the
// form "t=<ts>,te=<test-sig>,li=<live-sig>". The expected digest is the
// HMAC-SHA256 of "<ts>.<raw body>" keyed with the webhook secret, hex encoded.
// The live signature is preferred; the test signature is accepted when no live
// signature is present (test-mode webhooks).
func VerifyPayMongoSignature(body []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretNotConfigured
	}

	var ts, testSig, liveSig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "te":
			testSig = kv[1]
		case "li":
			liveSig = kv[1]
		}
	}
	if ts == "" {
		return ErrSignatureInvalid
	}

	signed := make([]byte, 0, len(ts)+1+len(body))
	signed = append(signed, ts...)
	signed = append(signed, '.')
	signed = append(signed, body...)
	expected := []byte(hex.EncodeToString(hmacSHA256(secret, signed)))

	if liveSig != "" {
		if hmac.Equal([]byte(liveSig), expected) {
			return nil
		}
		return ErrSignatureInvalid
	}
	if testSig != "" && hmac.Equal([]byte(testSig), expected) {
		return nil
	}
	return ErrSignatureInvalid
}

// VerifyMayaSignature checks a Maya webhook signature: the HMAC-SHA256 of the
// raw body keyed with the webhook secret, carried hex or base64 encoded in the
// header.
func VerifyMayaSignature(body []byte, header, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrSecretNotConfigured
	}

	header = strings.TrimSpace(header)
	if header == "" {
		return ErrSignatureInvalid
	}

	expected := hmacSHA256(secret, body)

	if decoded, err := hex.DecodeString(header); err == nil && hmac.Equal(decoded, expected) {
		return nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(header); err == nil && hmac.Equal(decoded, expected) {
		return nil
	}
	return ErrSignatureInvalid
}
