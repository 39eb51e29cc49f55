package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
	"github.com/swifteats/swifteats-backend/pkg/logger"
	"github.com/swifteats/swifteats-backend/pkg/paystack"
)

type stubWebhookService struct {
	calls int
	err   error
}

func (s *stubWebhookService) HandleEvent(_ context.Context, _ *paystack.WebhookEvent) error {
	s.calls++
	return s.err
}

type stubGuard struct {
	seen    bool
	deleted []string
}

func (g *stubGuard) CheckAndMark(_ context.Context, _ string) (bool, error) {
	return g.seen, nil
}

func (g *stubGuard) Delete(_ context.Context, eventID string) error {
	g.deleted = append(g.deleted, eventID)
	return nil
}

type stubClient struct {
	event *paystack.WebhookEvent
	err   error
}

func (c *stubClient) ParseWebhookEvent(_ []byte, _ string) (*paystack.WebhookEvent, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.event, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func chargeEvent(reference string) *paystack.WebhookEvent {
	event := &paystack.WebhookEvent{Event: "charge.success"}
	event.Data.Reference = reference
	event.Data.Status = "success"
	event.Data.Amount = 1000
	return event
}

func postWebhook(handler http.HandlerFunc, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", strings.NewReader(`{}`))
	if signature != "" {
		req.Header.Set("X-Paystack-Signature", signature)
	}
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func TestPaystackWebhookMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, &stubClient{event: chargeEvent("ref")}, &stubGuard{}, testLogger())

	resp := postWebhook(handler, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run without a signature")
	}
}

func TestPaystackWebhookInvalidSignature(t *testing.T) {
	svc := &stubWebhookService{}
	client := &stubClient{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
	handler := PaystackWebhook(svc, client, &stubGuard{}, testLogger())

	resp := postWebhook(handler, "bad")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("service should not run on a bad signature")
	}
}

func TestPaystackWebhookProcessesEvent(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, &stubClient{event: chargeEvent("ps_ref")}, &stubGuard{}, testLogger())

	resp := postWebhook(handler, "sig")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.calls != 1 {
		t.Fatalf("expected 1 service call, got %d", svc.calls)
	}
}

func TestPaystackWebhookReplaySkipsService(t *testing.T) {
	svc := &stubWebhookService{}
	handler := PaystackWebhook(svc, &stubClient{event: chargeEvent("ps_ref")}, &stubGuard{seen: true}, testLogger())

	resp := postWebhook(handler, "sig")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("replayed delivery should not re-run the service")
	}
}

func TestPaystackWebhookFailureReleasesGuard(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	guard := &stubGuard{}
	handler := PaystackWebhook(svc, &stubClient{event: chargeEvent("ps_ref")}, guard, testLogger())

	resp := postWebhook(handler, "sig")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "ps_ref" {
		t.Fatalf("expected guard release for ps_ref, got %v", guard.deleted)
	}
}
