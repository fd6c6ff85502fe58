package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// redirect sends every omise-go request to a local test server.
type redirect struct{ target *url.URL }

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestOmise(t *testing.T, h http.HandlerFunc) *Omise {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o, err := NewOmise("pkey_test_x", "skey_test_x", "https://rental.test/return")
	if err != nil {
		t.Fatalf("NewOmise returned error: %v", err)
	}
	target, _ := url.Parse(srv.URL)
	o.client.Transport = redirect{target: target}
	return o
}

func TestNewOmiseRejectsBadKeys(t *testing.T) {
	if _, err := NewOmise("", "", ""); err == nil {
		t.Fatal("expected error for missing keys")
	}
	if _, err := NewOmise("pk_x", "sk_x", ""); err == nil {
		t.Fatal("expected error for malformed keys")
	}
}

func TestOmiseCreateChargeCarriesMetadata(t *testing.T) {
	var got map[string]any
	o := newTestOmise(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("request body: %v", err)
		}
		_, _ = io.WriteString(w, `{"object":"charge","id":"chrg_test_1","status":"successful","amount":20000,"currency":"thb","metadata":{"payment_id":"pay-1"}}`)
	})

	ch, err := o.CreateCharge(context.Background(), ChargeRequest{
		Amount: 20000, Currency: "thb", Method: "Card", Token: "tokn_test_1",
		Metadata: map[string]any{MetadataPaymentID: "pay-1"},
	})
	if err != nil {
		t.Fatalf("CreateCharge returned error: %v", err)
	}
	if ch.Reference != "chrg_test_1" || ch.Status != ChargeSuccessful || ch.PaymentID != "pay-1" {
		t.Fatalf("unexpected charge %+v", ch)
	}
	if got["card"] != "tokn_test_1" {
		t.Fatalf("card token not sent: %v", got)
	}
}

func TestOmiseCreateChargeWithoutTokenNeverCallsAPI(t *testing.T) {
	o := newTestOmise(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	if _, err := o.CreateCharge(context.Background(), ChargeRequest{Amount: 100, Currency: "thb"}); err == nil {
		t.Fatal("expected error for missing card token")
	}
}

func TestOmiseRetrieveCharge(t *testing.T) {
	o := newTestOmise(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/chrg_test_1"):
			_, _ = io.WriteString(w, `{"object":"charge","id":"chrg_test_1","status":"failed","amount":20000,"currency":"thb","failure_code":"insufficient_fund","failure_message":"insufficient funds"}`)
		case strings.HasSuffix(r.URL.Path, "/chrg_gone"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"object":"error","location":"https://www.omise.co/api-errors#not-found","code":"not_found","status":404,"message":"charge chrg_gone was not found"}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"object":"error","code":"service_unavailable","status":503,"message":"try again"}`)
		}
	})
	ctx := context.Background()

	ch, err := o.RetrieveCharge(ctx, "chrg_test_1")
	if err != nil {
		t.Fatalf("RetrieveCharge returned error: %v", err)
	}
	if ch.Status != ChargeFailed || ch.FailureCode != "insufficient_fund" || ch.FailureReason != "insufficient funds" {
		t.Fatalf("unexpected charge %+v", ch)
	}

	if _, err := o.RetrieveCharge(ctx, "chrg_gone"); !errors.Is(err, ErrChargeNotFound) {
		t.Fatalf("expected ErrChargeNotFound, got %v", err)
	}
	_, err = o.RetrieveCharge(ctx, "chrg_busy")
	if err == nil || errors.Is(err, ErrChargeNotFound) {
		t.Fatalf("expected an outage error, got %v", err)
	}
}
