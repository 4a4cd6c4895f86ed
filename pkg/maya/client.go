/**
 * @description
 * This package provides a client for the Maya Checkout API. It creates hosted
 * checkout sessions with the donation correlation token as the merchant
 * request reference number, which Maya echoes back in its webhook callback.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package maya

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the Maya Checkout API.
type Client struct {
	BaseURL    string
	PublicKey  string
	SuccessURL string
	FailureURL string
	CancelURL  string
	HTTPClient *http.Client
}

// NewClient creates a new Maya Checkout API client.
func NewClient(baseURL, publicKey, successURL, failureURL, cancelURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		PublicKey:  publicKey,
		SuccessURL: successURL,
		FailureURL: failureURL,
		CancelURL:  cancelURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckoutRequest is the payload for Maya's checkout endpoint. Amounts are
// decimal peso strings on the wire.
type CheckoutRequest struct {
	TotalAmount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"totalAmount"`
	RequestReferenceNumber string `json:"requestReferenceNumber"`
	RedirectURL            struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Cancel  string `json:"cancel"`
	} `json:"redirectUrl"`
}

// CheckoutResponse is the expected response from the checkout endpoint.
type CheckoutResponse struct {
	CheckoutID  string `json:"checkoutId"`
	RedirectURL string `json:"redirectUrl"`
}

// ErrorResponse represents an error from the Maya API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("maya api error: %s - %s", e.Code, e.Message)
}

// CreateCheckout creates a hosted checkout session carrying the correlation
// reference as the request reference number.
func (c *Client) CreateCheckout(ctx context.Context, amount int64, reference string) (string, error) {
	reqPayload := CheckoutRequest{}
	reqPayload.TotalAmount.Value = formatAmount(amount)
	reqPayload.TotalAmount.Currency = "PHP"
	reqPayload.RequestReferenceNumber = reference
	reqPayload.RedirectURL.Success = c.SuccessURL
	reqPayload.RedirectURL.Failure = c.FailureURL
	reqPayload.RedirectURL.Cancel = c.CancelURL

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/checkout/v1/checkouts", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create checkout request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Maya checkout authenticates with HTTP Basic using the public key as username.
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.PublicKey+":")))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute checkout request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read checkout response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=maya_client op=create_checkout status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return "", fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=maya_client op=create_checkout status=%d err=%v", resp.StatusCode, &errResp)
		return "", &errResp
	}

	var successResp CheckoutResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return "", fmt.Errorf("failed to decode checkout response: %w", err)
	}

	return successResp.RedirectURL, nil
}

// formatAmount renders centavos as Maya's decimal peso string.
func formatAmount(centavos int64) string {
	return fmt.Sprintf("%d.%02d", centavos/100, centavos%100)
}
