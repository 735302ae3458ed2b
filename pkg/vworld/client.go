// Package vworld is a client for the VWorld address geocoding API. One
// call is one logical request: rate-limited, retried on transient
// failures, and counted once against the shared daily quota.
package vworld

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hangil-labs/geoconv/internal/quota"
	"github.com/hangil-labs/geoconv/internal/resilience"
)

// DefaultBaseURL is the production VWorld endpoint.
const DefaultBaseURL = "https://api.vworld.kr/req/address"

// AddressType is the provider's address-form discriminator.
type AddressType string

const (
	TypeRoad   AddressType = "ROAD"
	TypeParcel AddressType = "PARCEL"
)

// Coordinate is a WGS84 (EPSG:4326) point. Immutable once returned.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Client geocodes one address per call.
type Client interface {
	// Geocode resolves address under the given type. It returns a typed
	// *Error on failure; use Kind, IsFatal, and IsNotFound to branch.
	Geocode(ctx context.Context, address string, typ AddressType) (Coordinate, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithRateLimit sets the requests-per-second pacing toward the provider.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetryPolicy overrides the transient-failure retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *client) { c.retry = p }
}

// WithQuota attaches the shared daily counter. Each logical request that
// reaches the network consumes exactly one slot; per-attempt retries do
// not consume extra.
func WithQuota(q *quota.Counter) Option {
	return func(c *client) { c.quota = q }
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.timeout = d }
}

type client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.Policy
	quota      *quota.Counter
	timeout    time.Duration
}

// NewClient creates a Client for the given API key.
func NewClient(key string, opts ...Option) Client {
	c := &client{
		key:        key,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 1), // matches the provider's informal pacing guidance
		retry:      resilience.DefaultPolicy(),
		quota:      quota.New(quota.DefaultDailyLimit),
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
