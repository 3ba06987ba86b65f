// Package geocode provides a best-effort reverse geocoding client. Lookups
// are advisory: they label the order with a human-readable address and never
// participate in pricing, so every failure degrades to a coordinate
// placeholder instead of an error.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client calls a Nominatim-compatible reverse geocoding endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL. An empty baseURL disables
// lookups entirely; ReverseGeocode then always returns the placeholder.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// ReverseGeocode resolves coordinates to a display address. It never returns
// an error: timeouts, transport failures, and malformed responses all fall
// back to a "lat, lng" placeholder, logged at debug level.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	placeholder := fmt.Sprintf("%.5f, %.5f", lat, lng)
	if c.baseURL == "" {
		return placeholder
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return placeholder
	}

	resp, err := c.http.Do(req)
	if err != nil {
		zctx.From(ctx).Debug("reverse geocode failed", zap.Error(err))
		return placeholder
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		zctx.From(ctx).Debug("reverse geocode failed", zap.Int("status", resp.StatusCode))
		return placeholder
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.DisplayName == "" {
		return placeholder
	}
	return body.DisplayName
}
