package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/swifteats/swifteats-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.paystack.co"
	responseBodyReadLimit int64 = 1024
)

// SignatureHeader carries the HMAC-SHA512 digest Paystack computes over the
// raw webhook body.
const SignatureHeader = "X-Paystack-Signature"

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client wraps the Paystack transaction APIs used for wallet funding.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Paystack base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Paystack client given the account secret key. The
// webhook secret falls back to the secret key, which matches how Paystack
// signs event deliveries.
func NewClient(secretKey, webhookSecret string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	trimmedWebhook := strings.TrimSpace(webhookSecret)
	if trimmedWebhook == "" {
		trimmedWebhook = trimmedKey
	}

	client := &Client{
		secretKey:     trimmedKey,
		webhookSecret: trimmedWebhook,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// VerifiedTransaction is the normalized transaction state returned by the
// verify API. AmountKobo is in the currency's minor unit.
type VerifiedTransaction struct {
	Reference     string
	Status        string
	AmountKobo    int64
	Currency      string
	Channel       string
	CustomerEmail string
	PaidAt        string
}

// Success reports whether the gateway settled the charge.
func (t *VerifiedTransaction) Success() bool {
	return t != nil && t.Status == "success"
}

// VerifyTransaction fetches the authoritative state of a transaction by its
// reference. Client-reported success is never trusted without this call.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build verify request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute verify request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction reference not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "verify request failed")
	}

	var apiResp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
			Channel   string `json:"channel"`
			PaidAt    string `json:"paid_at"`
			Customer  struct {
				Email string `json:"email"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack verify rejected: %s", apiResp.Message))
	}

	return &VerifiedTransaction{
		Reference:     apiResp.Data.Reference,
		Status:        apiResp.Data.Status,
		AmountKobo:    apiResp.Data.Amount,
		Currency:      apiResp.Data.Currency,
		Channel:       apiResp.Data.Channel,
		CustomerEmail: apiResp.Data.Customer.Email,
		PaidAt:        apiResp.Data.PaidAt,
	}, nil
}

// WebhookEvent is the decoded body of a Paystack event delivery.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// VerifyWebhookSignature checks the HMAC-SHA512 digest over the raw body.
// Comparison is constant time.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || strings.TrimSpace(signature) == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// ParseWebhookEvent validates the signature and decodes the event payload.
func (c *Client) ParseWebhookEvent(body []byte, signature string) (*WebhookEvent, error) {
	if !c.VerifyWebhookSignature(body, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}
	if event.Event == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type is required")
	}
	return &event, nil
}
