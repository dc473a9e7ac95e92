package mixpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstreamUnavailable covers network errors, timeouts, non-2xx answers and bodies
// that do not decode into the expected envelope.
var ErrUpstreamUnavailable = errors.New("mixpay upstream unavailable")

const (
	pathPaymentsResult   = "/v1/payments_result"
	pathQuoteAssets      = "/v1/setting/quote_assets"
	pathSettlementAssets = "/v1/setting/settlement_assets"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FetchStatus asks the provider for the authoritative payment result. It never retries.
func (c *Client) FetchStatus(ctx context.Context, orderID, payeeID string) (StatusReport, error) {
	q := url.Values{}
	q.Set("orderId", orderID)
	q.Set("payeeId", payeeID)

	var data struct {
		Status        string `json:"status"`
		FailureReason string `json:"failureReason"`
	}
	if err := c.get(ctx, pathPaymentsResult, q, &data); err != nil {
		return StatusReport{}, err
	}
	status := strings.ToLower(strings.TrimSpace(data.Status))
	if status == "" {
		return StatusReport{}, fmt.Errorf("%w: %s: empty status", ErrUpstreamUnavailable, pathPaymentsResult)
	}
	return StatusReport{
		OrderID:       orderID,
		PayeeID:       payeeID,
		Status:        status,
		FailureReason: data.FailureReason,
	}, nil
}

func (c *Client) QuoteAssets(ctx context.Context) ([]Asset, error) {
	var out []Asset
	err := c.get(ctx, pathQuoteAssets, nil, &out)
	return out, err
}

func (c *Client) SettlementAssets(ctx context.Context) ([]Asset, error) {
	var out []Asset
	err := c.get(ctx, pathSettlementAssets, nil, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: GET %s: read body: %v", ErrUpstreamUnavailable, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: status %d", ErrUpstreamUnavailable, path, resp.StatusCode)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: GET %s: decode: %v", ErrUpstreamUnavailable, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: GET %s: missing data", ErrUpstreamUnavailable, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: GET %s: decode data: %v", ErrUpstreamUnavailable, path, err)
	}
	return nil
}
