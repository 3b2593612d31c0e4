package binance

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
)

const (
	venueName      = string(exchange.VariantBinance)
	testnetBaseURL = "https://testnet.binancefuture.com"

	defaultHTTPTimeout = 30 * time.Second
)

// Client adapts a USDⓈ-M futures account to exchange.Gateway.
type Client struct {
	api       *futures.Client
	clock     func() time.Time
	closeOnce sync.Once
}

// ClientOption customises the Binance client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.api.HTTPClient = httpClient
		}
	}
}

// WithBaseURL points the client at an alternate REST host.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.api.BaseURL = base
		}
	}
}

// WithClock overrides the time source used for timestamps the venue omits.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient constructs a futures client authenticated with an API key pair.
func NewClient(apiKey, apiSecret string, testnet bool, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, errors.New("binance: api key and secret are required")
	}
	api := gobinance.NewFuturesClient(apiKey, apiSecret)
	api.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	if testnet {
		api.BaseURL = testnetBaseURL
	}
	c := &Client{api: api, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements exchange.Gateway.
func (c *Client) Name() string { return venueName }

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.api.HTTPClient != nil {
			c.api.HTTPClient.CloseIdleConnections()
		}
	})
	return nil
}

// GetServerTime returns the venue clock.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	ms, err := c.api.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, wrapErr("serverTime", err)
	}
	return time.UnixMilli(ms), nil
}

// SyncServerTime stores the local/venue clock offset used to timestamp
// signed requests.
func (c *Client) SyncServerTime(ctx context.Context) error {
	offset, err := c.api.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return wrapErr("serverTime", err)
	}
	logx.WithContext(ctx).Infof("binance: server time offset %dms", offset)
	return nil
}

// wrapErr wraps venue failures; *common.APIError stays reachable via errors.As.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return exchange.WrapVenue(venueName, op, err)
}

// apiErrorCode returns the venue error code, or 0 for non-API failures.
func apiErrorCode(err error) int64 {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
