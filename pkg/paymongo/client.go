/**
 * @description
 * This package provides a client for the PayMongo API. It encapsulates the
 * logic for creating hosted checkout sessions carrying the donation
 * correlation token in the session metadata.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package paymongo

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

// Client is a client for the PayMongo API.
type Client struct {
	BaseURL    string
	SecretKey  string
	SuccessURL string
	CancelURL  string
	HTTPClient *http.Client
}

// NewClient creates a new PayMongo API client.
func NewClient(baseURL, secretKey, successURL, cancelURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		SecretKey:  secretKey,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckoutSessionRequest is the payload for PayMongo's checkout session endpoint.
type CheckoutSessionRequest struct {
	Data struct {
		Attributes struct {
			LineItems []struct {
				Name     string `json:"name"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Quantity int    `json:"quantity"`
			} `json:"line_items"`
			PaymentMethodTypes []string          `json:"payment_method_types"`
			Description        string            `json:"description"`
			Metadata           map[string]string `json:"metadata"`
			SuccessURL         string            `json:"success_url,omitempty"`
			CancelURL          string            `json:"cancel_url,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

// CheckoutSessionResponse is the expected response from the checkout session endpoint.
type CheckoutSessionResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL string `json:"checkout_url"`
			Status      string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// ErrorResponse represents an error from the PayMongo API.
type ErrorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("paymongo api error: %s - %s", e.Errors[0].Code, e.Errors[0].Detail)
	}
	return "unknown paymongo api error"
}

// CreateCheckout creates a hosted checkout session. The correlation reference
// is stored in the session metadata so the webhook callback echoes it back.
func (c *Client) CreateCheckout(ctx context.Context, amount int64, reference string) (string, error) {
	reqPayload := CheckoutSessionRequest{}
	attrs := &reqPayload.Data.Attributes
	attrs.LineItems = []struct {
		Name     string `json:"name"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Quantity int    `json:"quantity"`
	}{{
		Name:     "Alumni Donation",
		Amount:   amount,
		Currency: "PHP",
		Quantity: 1,
	}}
	attrs.PaymentMethodTypes = []string{"card", "gcash", "grab_pay"}
	attrs.Description = "Alumni donation"
	attrs.Metadata = map[string]string{"reference": reference}
	attrs.SuccessURL = c.SuccessURL
	attrs.CancelURL = c.CancelURL

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/checkout_sessions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create checkout request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// PayMongo authenticates with HTTP Basic using the secret key as username.
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.SecretKey+":")))

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
			log.Printf("level=warn component=paymongo_client op=create_checkout status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return "", fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=paymongo_client op=create_checkout status=%d err=%v", resp.StatusCode, &errResp)
		return "", &errResp
	}

	var successResp CheckoutSessionResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return "", fmt.Errorf("failed to decode checkout response: %w", err)
	}

	return successResp.Data.Attributes.CheckoutURL, nil
}
