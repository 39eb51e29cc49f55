package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestVerifyTransactionSuccess(t *testing.T) {
	const expectedURL = "http://paystack.test/transaction/verify/ref_abc123"
	respBody := `{"status":true,"message":"Verification successful","data":{"reference":"ref_abc123","status":"success","amount":500000,"currency":"NGN","channel":"card","paid_at":"2025-08-12T10:00:00Z","customer":{"email":"ada@example.com"}}}`

	var capturedURL, capturedAuth string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_key", "", time.Second, WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	txn, err := client.VerifyTransaction(context.Background(), "ref_abc123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer sk_test_key" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if !txn.Success() {
		t.Fatalf("expected success, got status %q", txn.Status)
	}
	if txn.AmountKobo != 500000 {
		t.Fatalf("unexpected amount %d", txn.AmountKobo)
	}
	if txn.CustomerEmail != "ada@example.com" {
		t.Fatalf("unexpected customer email %q", txn.CustomerEmail)
	}
}

func TestVerifyTransactionNotFound(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"Transaction reference not found"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_key", "", time.Second, WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.VerifyTransaction(context.Background(), "ref_missing")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestVerifyTransactionEmptyReference(t *testing.T) {
	client, err := NewClient("sk_test_key", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.VerifyTransaction(context.Background(), "  ")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestParseWebhookEvent(t *testing.T) {
	client, err := NewClient("sk_test_key", "whsec", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1","status":"success","amount":250000,"currency":"NGN","customer":{"email":"obi@example.com"}}}`)
	mac := hmac.New(sha512.New, []byte("whsec"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	event, err := client.ParseWebhookEvent(body, signature)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Event != "charge.success" {
		t.Fatalf("unexpected event %q", event.Event)
	}
	if event.Data.Reference != "ref_1" || event.Data.Amount != 250000 {
		t.Fatalf("unexpected data %+v", event.Data)
	}

	if _, err := client.ParseWebhookEvent(body, "deadbeef"); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for bad signature, got %v", err)
	}
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient("   ", "", time.Second); err == nil {
		t.Fatal("expected error for missing secret key")
	}
}
