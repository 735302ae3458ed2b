package vworld

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hangil-labs/geoconv/internal/resilience"
)

// ErrQuotaExhausted is returned when the local daily counter has no
// capacity left. Nothing was sent to the provider.
var ErrQuotaExhausted = eris.New("vworld: daily request quota exhausted")

// getcoordResponse mirrors the provider's v2.0 JSON envelope. The point
// coordinates arrive as strings in some deployments, so json.Number
// covers both encodings.
type getcoordResponse struct {
	Response struct {
		Status string `json:"status"`
		Result struct {
			CRS   string `json:"crs"`
			Point struct {
				X json.Number `json:"x"` // longitude
				Y json.Number `json:"y"` // latitude
			} `json:"point"`
		} `json:"result"`
		Error struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"error"`
	} `json:"response"`
}

// Geocode performs one logical geocoding request.
func (c *client) Geocode(ctx context.Context, address string, typ AddressType) (Coordinate, error) {
	if typ != TypeRoad && typ != TypeParcel {
		return Coordinate{}, eris.Errorf("vworld: unsupported address type %q", typ)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Coordinate{}, eris.Wrap(err, "vworld: rate limit wait")
	}

	// One quota slot per logical request, regardless of retries.
	if !c.quota.Acquire() {
		return Coordinate{}, ErrQuotaExhausted
	}

	coord, err := resilience.Retry(ctx, c.retry, "vworld.getcoord", func(ctx context.Context) (Coordinate, error) {
		return c.dispatch(ctx, address, typ)
	})
	if err != nil {
		if Kind(err) == KindProtocol {
			// Distinct log signal: may indicate a provider contract change.
			zap.L().Error("provider protocol violation",
				zap.String("address", address),
				zap.String("type", string(typ)),
				zap.String("provider_status", ProviderStatus(err)),
				zap.Error(err),
			)
		}
		return Coordinate{}, err
	}
	return coord, nil
}

// dispatch performs a single network attempt.
func (c *client) dispatch(ctx context.Context, address string, typ AddressType) (Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"service": {"address"},
		"request": {"getcoord"},
		"version": {"2.0"},
		"crs":     {"epsg:4326"},
		"format":  {"json"},
		"address": {address},
		"type":    {string(typ)},
		"key":     {c.key},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, eris.Wrap(err, "vworld: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, &Error{Kind: KindNetwork, ProviderStatus: "TRANSPORT", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests:
		return Coordinate{}, &Error{
			Kind:           KindAuthOrQuota,
			ProviderStatus: resp.Status,
			Err:            eris.Errorf("vworld: request rejected with status %d", resp.StatusCode),
		}
	case resilience.RetryableStatus(resp.StatusCode):
		return Coordinate{}, resilience.MarkTransient(&Error{
			Kind:           KindNetwork,
			ProviderStatus: resp.Status,
			Err:            eris.Errorf("vworld: server error %d", resp.StatusCode),
		}, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Coordinate{}, &Error{
			Kind:           KindProtocol,
			ProviderStatus: resp.Status,
			Err:            eris.Errorf("vworld: unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Coordinate{}, &Error{Kind: KindNetwork, ProviderStatus: "READ_BODY", Err: err}
	}

	var payload getcoordResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Coordinate{}, &Error{Kind: KindProtocol, ProviderStatus: "MALFORMED_JSON", Err: err}
	}

	return interpret(payload)
}

// interpret maps the provider envelope to a coordinate or a typed failure.
func interpret(payload getcoordResponse) (Coordinate, error) {
	r := payload.Response
	switch strings.ToUpper(r.Status) {
	case "OK":
		lat, err := r.Result.Point.Y.Float64()
		if err != nil {
			return Coordinate{}, &Error{Kind: KindProtocol, ProviderStatus: "OK", Err: eris.Wrap(err, "vworld: parse latitude")}
		}
		lon, err := r.Result.Point.X.Float64()
		if err != nil {
			return Coordinate{}, &Error{Kind: KindProtocol, ProviderStatus: "OK", Err: eris.Wrap(err, "vworld: parse longitude")}
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return Coordinate{}, &Error{
				Kind:           KindProtocol,
				ProviderStatus: "OK",
				Err:            eris.Errorf("vworld: coordinates out of WGS84 bounds: lat=%v lon=%v", lat, lon),
			}
		}
		return Coordinate{Latitude: lat, Longitude: lon}, nil

	case "NOT_FOUND":
		return Coordinate{}, &Error{Kind: KindNotFound, ProviderStatus: "NOT_FOUND"}

	case "ERROR":
		code := strings.ToUpper(r.Error.Code)
		if authOrQuotaCode(code) {
			return Coordinate{}, &Error{
				Kind:           KindAuthOrQuota,
				ProviderStatus: code,
				Err:            eris.New(r.Error.Text),
			}
		}
		return Coordinate{}, &Error{
			Kind:           KindProtocol,
			ProviderStatus: code,
			Err:            eris.New(r.Error.Text),
		}

	default:
		return Coordinate{}, &Error{
			Kind:           KindProtocol,
			ProviderStatus: r.Status,
			Err:            eris.Errorf("vworld: unrecognized response status %q", r.Status),
		}
	}
}

// authOrQuotaCode matches the provider error codes that invalidate the
// key or the day's quota for the rest of the session.
func authOrQuotaCode(code string) bool {
	if strings.Contains(code, "KEY") {
		return true
	}
	switch code {
	case "DAILY_REQUEST_COUNT_OVER", "LIMIT_OVER", "AUTH_DENIED":
		return true
	}
	return false
}
