package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alumnilink/donation-service/internal/app"
	"github.com/alumnilink/donation-service/internal/domain"
	"github.com/alumnilink/donation-service/internal/store"
	"github.com/alumnilink/donation-service/pkg/paymongo"
)

const (
	testSecret       = "whsk_handler_test"
	testClerkUserID  = "user_2abc"
	unknownClerkUser = "user_unknown"
)

type fakeLedger struct {
	donations map[string]*domain.Donation
	donorID   uuid.UUID
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{donations: map[string]*domain.Donation{}, donorID: uuid.New()}
}

func (l *fakeLedger) FindDonationByProviderReference(ctx context.Context, provider domain.PaymentProvider, reference string) (*domain.Donation, error) {
	d, ok := l.donations[string(provider)+"|"+reference]
	if !ok {
		return nil, store.ErrDonationNotFound
	}
	return d, nil
}

func (l *fakeLedger) RecordDonationOutcome(ctx context.Context, params store.RecordDonationOutcomeParams) (*domain.Donation, bool, error) {
	if params.Amount <= 0 {
		return nil, false, store.ErrInvalidAmount
	}
	key := string(params.Provider) + "|" + params.ProviderReference
	if existing, ok := l.donations[key]; ok {
		return existing, false, nil
	}
	now := time.Now().UTC()
	d := &domain.Donation{
		ID:                uuid.New(),
		Provider:          params.Provider,
		ProviderReference: params.ProviderReference,
		DonorID:           params.DonorID,
		Amount:            params.Amount,
		Status:            params.Outcome,
		EventID:           params.EventID,
		CreatedAt:         now,
		CompletedAt:       &now,
		UpdatedAt:         now,
	}
	l.donations[key] = d
	return d, true, nil
}

func (l *fakeLedger) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	var out []domain.Donation
	for _, d := range l.donations {
		if d.DonorID == donorID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (l *fakeLedger) FindDonorIDByClerkUserID(ctx context.Context, clerkUserID string) (uuid.UUID, error) {
	if clerkUserID == testClerkUserID {
		return l.donorID, nil
	}
	return uuid.Nil, store.ErrDonorNotFound
}

type fakeAggregator struct {
	applied map[uuid.UUID]bool
	totals  map[uuid.UUID]*domain.SponsorshipTotal
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{applied: map[uuid.UUID]bool{}, totals: map[uuid.UUID]*domain.SponsorshipTotal{}}
}

func (a *fakeAggregator) ApplyContribution(ctx context.Context, eventID, donationID uuid.UUID, amount int64) (bool, error) {
	if a.applied[donationID] {
		return false, nil
	}
	a.applied[donationID] = true
	total, ok := a.totals[eventID]
	if !ok {
		total = &domain.SponsorshipTotal{EventID: eventID}
		a.totals[eventID] = total
	}
	total.TotalAmount += amount
	total.ContributionCount++
	total.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (a *fakeAggregator) GetSponsorshipTotal(ctx context.Context, eventID uuid.UUID) (*domain.SponsorshipTotal, error) {
	if total, ok := a.totals[eventID]; ok {
		return total, nil
	}
	return &domain.SponsorshipTotal{EventID: eventID}, nil
}

func newTestHandlers(ledger *fakeLedger, aggregator *fakeAggregator, payMongoClient *paymongo.Client) *DonationHandlers {
	svc := app.NewService(ledger, aggregator, payMongoClient, nil, nil, testSecret, testSecret)
	return NewDonationHandlers(svc)
}

func signMayaHex(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signPayMongoHeader(ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + "."))
	mac.Write(body)
	return fmt.Sprintf("t=%s,li=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), clerkUserIDKey, testClerkUserID)
	return req.WithContext(ctx)
}

func TestMayaWebhookHandler_MissingSignatureHeader(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/maya", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.MayaWebhookHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature header, got %d", rr.Code)
	}
}

func TestMayaWebhookHandler_BadSignature(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/maya", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(app.MayaSignatureHeader, "deadbeef")
	rr := httptest.NewRecorder()
	h.MayaWebhookHandler(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", rr.Code)
	}
}

func TestMayaWebhookHandler_SuccessRecorded(t *testing.T) {
	ledger := newFakeLedger()
	aggregator := newFakeAggregator()
	h := newTestHandlers(ledger, aggregator, nil)

	eventID := uuid.New()
	token := app.EncodeReference(domain.PurposeSponsorship, ledger.donorID, &eventID)
	body := []byte(fmt.Sprintf(`{"id":"chk_h1","status":"PAYMENT_SUCCESS","amount":"500.00","requestReferenceNumber":%q}`, token))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/maya", bytes.NewReader(body))
	req.Header.Set(app.MayaSignatureHeader, signMayaHex(body))
	rr := httptest.NewRecorder()
	h.MayaWebhookHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var ack domain.WebhookAck
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("invalid ack body: %v", err)
	}
	if !ack.Received || ack.Result != domain.AckRecorded {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	total, _ := aggregator.GetSponsorshipTotal(context.Background(), eventID)
	if total.TotalAmount != 50000 {
		t.Fatalf("expected contribution of 50000 centavos, got %d", total.TotalAmount)
	}
}

func TestPayMongoWebhookHandler_DuplicateAcknowledged(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandlers(ledger, newFakeAggregator(), nil)

	token := app.EncodeReference(domain.PurposeDonation, ledger.donorID, nil)
	body := []byte(fmt.Sprintf(
		`{"data":{"id":"evt_h2","attributes":{"type":"payment.paid","data":{"id":"pay_h2","attributes":{"amount":7500,"metadata":{"reference":%q}}}}}}`,
		token))
	header := signPayMongoHeader("1700000000", body)

	for i, want := range []string{domain.AckRecorded, domain.AckDuplicate} {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paymongo", bytes.NewReader(body))
		req.Header.Set(app.PayMongoSignatureHeader, header)
		rr := httptest.NewRecorder()
		h.PayMongoWebhookHandler(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rr.Code)
		}
		var ack domain.WebhookAck
		if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
			t.Fatalf("delivery %d: invalid ack body: %v", i, err)
		}
		if ack.Result != want {
			t.Fatalf("delivery %d: expected ack %q, got %q", i, want, ack.Result)
		}
	}
}

func TestMayaWebhookHandler_InvalidAmount(t *testing.T) {
	ledger := newFakeLedger()
	h := newTestHandlers(ledger, newFakeAggregator(), nil)

	token := app.EncodeReference(domain.PurposeDonation, ledger.donorID, nil)
	body := []byte(fmt.Sprintf(`{"id":"chk_h3","status":"PAYMENT_SUCCESS","amount":"oops","requestReferenceNumber":%q}`, token))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/maya", bytes.NewReader(body))
	req.Header.Set(app.MayaSignatureHeader, signMayaHex(body))
	rr := httptest.NewRecorder()
	h.MayaWebhookHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unparseable amount, got %d", rr.Code)
	}
}

func TestCheckoutHandler_CreatesProviderSession(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout_sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"id":"cs_h4","attributes":{"checkout_url":"https://checkout.test/cs_h4","status":"active"}}}`)
	}))
	defer provider.Close()

	ledger := newFakeLedger()
	client := paymongo.NewClient(provider.URL, "sk_test", "https://app.test/ok", "https://app.test/cancel")
	h := newTestHandlers(ledger, newFakeAggregator(), client)

	payload := []byte(`{"amount":10000,"provider":"paymongo"}`)
	req := authedRequest(http.MethodPost, "/checkout", payload)
	rr := httptest.NewRecorder()
	h.CheckoutHandler(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid checkout response: %v", err)
	}
	if resp.CheckoutURL != "https://checkout.test/cs_h4" {
		t.Fatalf("unexpected checkout url %q", resp.CheckoutURL)
	}
	if _, found := app.ExtractReference(resp.Reference); !found {
		t.Fatalf("minted reference %q is not a valid correlation token", resp.Reference)
	}
}

func TestCheckoutHandler_RejectsNonPositiveAmount(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := authedRequest(http.MethodPost, "/checkout", []byte(`{"amount":0,"provider":"paymongo"}`))
	rr := httptest.NewRecorder()
	h.CheckoutHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rr.Code)
	}
}

func TestCheckoutHandler_ProviderUnavailable(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := authedRequest(http.MethodPost, "/checkout", []byte(`{"amount":5000,"provider":"maya"}`))
	rr := httptest.NewRecorder()
	h.CheckoutHandler(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for unconfigured provider, got %d", rr.Code)
	}
}

func TestDonationHistoryHandler_EmptyIsEmptyArray(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := authedRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	h.DonationHistoryHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", got)
	}
}

func TestDonationHistoryHandler_UnknownDonor(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	ctx := context.WithValue(req.Context(), clerkUserIDKey, unknownClerkUser)
	rr := httptest.NewRecorder()
	h.DonationHistoryHandler(rr, req.WithContext(ctx))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown donor, got %d", rr.Code)
	}
}

func TestSponsorshipTotalHandler_ZeroValuedForUnknownEvent(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)
	router := DonationRoutes(h, "http://localhost/unused-jwks")

	eventID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/events/"+eventID.String()+"/sponsorship", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var total domain.SponsorshipTotal
	if err := json.Unmarshal(rr.Body.Bytes(), &total); err != nil {
		t.Fatalf("invalid total body: %v", err)
	}
	if total.EventID != eventID || total.TotalAmount != 0 || total.ContributionCount != 0 {
		t.Fatalf("expected zero-valued total for %s, got %+v", eventID, total)
	}
}

func TestSponsorshipTotalHandler_InvalidEventID(t *testing.T) {
	h := newTestHandlers(newFakeLedger(), newFakeAggregator(), nil)
	router := DonationRoutes(h, "http://localhost/unused-jwks")

	req := httptest.NewRequest(http.MethodGet, "/events/not-a-uuid/sponsorship", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid event id, got %d", rr.Code)
	}
}
