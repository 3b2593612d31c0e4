package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
)

const (
	mainnetBaseURL = "https://api.hyperliquid.xyz"
	testnetBaseURL = "https://api.hyperliquid-testnet.xyz"

	venueName = string(exchange.VariantHyperliquid)

	defaultHTTPTimeout  = 30 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	maxRetryAttempts    = 3
	defaultSlippage     = 0.05
	defaultAssetTTL     = 10 * time.Minute
)

// Client signs and submits requests against the Hyperliquid perpetuals API
// and implements exchange.Gateway.
type Client struct {
	infoURL     string
	exchangeURL string
	httpClient  *http.Client
	signer      Signer
	address     string // API wallet address (derived from signer)
	mainAddress string // main account address for info requests when trading through an API wallet
	isTestnet   bool
	clock       func() time.Time
	nonce       *nonceSource
	vault       string

	assetMu      sync.RWMutex
	assetInfo    map[string]AssetInfo
	assetTTL     time.Duration
	assetLastRef time.Time

	// margin preference per coin; applied with the next leverage update
	marginMu    sync.Mutex
	marginModes map[string]exchange.MarginMode

	slippage  float64
	closeOnce sync.Once
}

// ClientOption customises the Hyperliquid client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL points the client at an alternate API host, e.g. a local stub.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base != "" {
			c.infoURL = base + "/info"
			c.exchangeURL = base + "/exchange"
		}
	}
}

// WithVaultAddress configures a vault address for signing requests.
func WithVaultAddress(addr string) ClientOption {
	return func(c *Client) {
		if common.IsHexAddress(addr) {
			c.vault = strings.ToLower(common.HexToAddress(addr).Hex())
		}
	}
}

// WithMainAddress configures the main account address for info requests.
// Info requests must use the main account's public address, while exchange
// requests are signed by the API wallet on behalf of the main account.
func WithMainAddress(addr string) ClientOption {
	return func(c *Client) {
		if common.IsHexAddress(addr) {
			c.mainAddress = strings.ToLower(common.HexToAddress(addr).Hex())
		}
	}
}

// WithClock overrides the time source used for nonces and timestamps.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDefaultSlippage sets the fraction applied around the mark price when a
// market order is submitted as an aggressive IOC limit (e.g. 0.05 = 5%).
func WithDefaultSlippage(slippage float64) ClientOption {
	return func(c *Client) {
		if slippage > 0 && slippage < 1 {
			c.slippage = slippage
		}
	}
}

// WithAssetCacheTTL sets a time-to-live for the asset directory cache.
func WithAssetCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl > 0 {
			c.assetTTL = ttl
		}
	}
}

// NewClient constructs a Hyperliquid trading client using the provided private key.
func NewClient(privateKeyHex string, isTestnet bool, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, errors.New("hyperliquid: private key is required")
	}
	signer, err := NewPrivateKeySigner(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: create signer: %w", err)
	}

	base := mainnetBaseURL
	if isTestnet {
		base = testnetBaseURL
	}
	client := &Client{
		infoURL:     base + "/info",
		exchangeURL: base + "/exchange",
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		signer:      signer,
		address:     signer.GetAddress(),
		isTestnet:   isTestnet,
		clock:       time.Now,
		assetInfo:   make(map[string]AssetInfo),
		assetTTL:    defaultAssetTTL,
		marginModes: make(map[string]exchange.MarginMode),
		slippage:    defaultSlippage,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.nonce = newNonceSource(client.clock)
	return client, nil
}

// Name implements exchange.Gateway.
func (c *Client) Name() string { return venueName }

// Address returns the signing wallet address.
func (c *Client) Address() string { return c.address }

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.httpClient.CloseIdleConnections()
	})
	return nil
}

// infoAddress returns the account whose state info requests should report.
func (c *Client) infoAddress() string {
	if c.mainAddress != "" {
		return c.mainAddress
	}
	return c.address
}

// retryableError marks a transient info failure worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// doInfoRequest queries the public info endpoint, retrying transport errors,
// 429 and 5xx responses with exponential backoff.
func (c *Client) doInfoRequest(ctx context.Context, req InfoRequest, result any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("hyperliquid: encode info request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = defaultRetryBackoff
	retrier := backoff.WithContext(backoff.WithMaxRetries(policy, maxRetryAttempts-1), ctx)

	op := func() error {
		body, status, err := c.post(ctx, c.infoURL, payload)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return retryableError{err}
		}
		switch {
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return retryableError{fmt.Errorf("info http status %d: %s", status, truncate(body))}
		case status < http.StatusOK || status >= http.StatusMultipleChoices:
			return backoff.Permanent(fmt.Errorf("info http status %d: %s", status, truncate(body)))
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(body, result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", req.Type, err))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logx.WithContext(ctx).Infof("hyperliquid: retry info type=%s in %s err=%v", req.Type, wait, err)
	}
	if err := backoff.RetryNotify(op, retrier, notify); err != nil {
		var transient retryableError
		if errors.As(err, &transient) {
			err = transient.err
		}
		return exchange.WrapVenue(venueName, req.Type, err)
	}
	return nil
}

// doExchangeRequest signs action with a fresh nonce, submits it and returns
// the decoded envelope. A venue-level "err" status is returned as an error.
func (c *Client) doExchangeRequest(ctx context.Context, action Action) (*exchangeResponse, error) {
	signed, err := signAction(action, c.signer, c.nonce.Next(), c.vault, !c.isTestnet)
	if err != nil {
		return nil, exchange.WrapVenue(venueName, string(action.Type), err)
	}
	payload, err := json.Marshal(signed)
	if err != nil {
		return nil, exchange.WrapVenue(venueName, string(action.Type), fmt.Errorf("encode request: %w", err))
	}

	body, status, err := c.post(ctx, c.exchangeURL, payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, exchange.WrapVenue(venueName, string(action.Type), err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, exchange.WrapVenue(venueName, string(action.Type), fmt.Errorf("exchange http status %d: %s", status, truncate(body)))
	}

	var resp exchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, exchange.WrapVenue(venueName, string(action.Type), fmt.Errorf("decode response: %w", err))
	}
	if err := resp.Err(); err != nil {
		logx.WithContext(ctx).Errorf("hyperliquid: %s rejected nonce=%d err=%v", action.Type, signed.Nonce, err)
		return nil, exchange.WrapVenue(venueName, string(action.Type), err)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
