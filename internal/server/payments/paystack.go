// Package payments is the Paystack transaction API client.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.paystack.co"

// maxResponseBytes caps what we read from the gateway.
const maxResponseBytes = 1 << 20

// InitRequest describes a transaction to open at the gateway. Amount is in
// minor currency units.
type InitRequest struct {
	Email       string
	Amount      int64
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

// Client talks to the gateway over HTTPS with a bearer secret.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client whose requests are bounded by timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify asks the gateway for the state of reference. A reference the
// gateway does not know, or reports as anything but success, yields a
// non-success result rather than an error. Transport failures, timeouts,
// 5xx and unparseable bodies are common.ErrUpstreamUnavailable.
func (c *Client) Verify(ctx context.Context, reference string) (*models.PaymentResult, error) {
	if reference == "" {
		return nil, common.ErrMissingFields
	}

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return &models.PaymentResult{Reference: reference, Status: models.PaymentFailed}, nil
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: verify returned %d", common.ErrUpstreamUnavailable, status)
	}

	doc, err := parse(body)
	if err != nil {
		return nil, err
	}

	res := &models.PaymentResult{
		Reference: reference,
		Status:    mapStatus(doc.Get("data.status").String()),
		Amount:    doc.Get("data.amount").Int(),
		Metadata:  map[string]string{},
	}
	if !doc.Get("status").Bool() {
		res.Status = models.PaymentFailed
	}
	// The gateway echoes the reference; a mismatch means we asked about
	// something else and must not grant on it.
	if ref := doc.Get("data.reference"); ref.Exists() && ref.String() != reference {
		res.Status = models.PaymentFailed
	}
	doc.Get("data.metadata").ForEach(func(k, v gjson.Result) bool {
		res.Metadata[k.String()] = v.String()
		return true
	})

	return res, nil
}

// Initialize opens a transaction and returns where to send the payer.
func (c *Client) Initialize(ctx context.Context, in InitRequest) (*models.PaymentInit, error) {
	if in.Email == "" || in.Amount <= 0 {
		return nil, common.ErrMissingFields
	}

	payload := map[string]any{
		"email":        in.Email,
		"amount":       strconv.FormatInt(in.Amount, 10),
		"callback_url": in.CallbackURL,
	}
	if in.Reference != "" {
		payload["reference"] = in.Reference
	}
	if len(in.Metadata) > 0 {
		payload["metadata"] = in.Metadata
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: initialize returned %d", common.ErrUpstreamUnavailable, status)
	}

	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	authURL := doc.Get("data.authorization_url").String()
	if !doc.Get("status").Bool() || authURL == "" {
		return nil, fmt.Errorf("%w: initialize rejected: %s", common.ErrUpstreamUnavailable, doc.Get("message").String())
	}

	ref := doc.Get("data.reference").String()
	if ref == "" {
		ref = in.Reference
	}
	return &models.PaymentInit{AuthorizationURL: authURL, Reference: ref}, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", common.ErrUpstreamUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

func parse(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: malformed gateway response", common.ErrUpstreamUnavailable)
	}
	doc := gjson.ParseBytes(body)
	if !doc.Get("status").Exists() {
		return gjson.Result{}, fmt.Errorf("%w: gateway response has no status", common.ErrUpstreamUnavailable)
	}
	return doc, nil
}

func mapStatus(s string) models.PaymentStatus {
	switch strings.ToLower(s) {
	case "success":
		return models.PaymentSuccess
	case "failed", "abandoned", "reversed":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}
