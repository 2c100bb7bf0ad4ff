// Package vworld fetches Seoul district boundaries from the V-World data API
// and converts them to [lat, lng] polygons for the map overlay.
package vworld

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/novarobotics/stormdrain/internal/metrics"
)

const (
	CRSGeographic  = "EPSG:4326"
	CRSWebMercator = "EPSG:3857"

	districtLayer = "LT_C_ADSIGG_INFO"
	// sig_cd of every Seoul district starts with 11
	seoulSigPrefix = "11"

	maxBodyBytes = 32 << 20
)

var ErrNoFeatureCollection = errors.New("V-World API: featureCollection missing")

type apiResponse struct {
	Response struct {
		Status string `json:"status"`
		Error  *struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"error"`
		Result struct {
			FeatureCollection json.RawMessage `json:"featureCollection"`
		} `json:"result"`
	} `json:"response"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SeoulDistrictFeatures requests the district layer in WGS84 and retries in
// Web Mercator when that fails; some API keys are only entitled to EPSG:3857.
func (c *Client) SeoulDistrictFeatures(ctx context.Context, domain string) (*geojson.FeatureCollection, error) {
	fc, err := c.fetchDistricts(ctx, CRSGeographic, domain)
	if err == nil {
		return fc, nil
	}
	slog.Warn("V-World request failed, retrying in web mercator", "crs", CRSGeographic, "error", err)

	return c.fetchDistricts(ctx, CRSWebMercator, domain)
}

func (c *Client) fetchDistricts(ctx context.Context, crs, domain string) (*geojson.FeatureCollection, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("domain", domain)
	q.Set("service", "data")
	q.Set("version", "2.0")
	q.Set("request", "getfeature")
	q.Set("format", "json")
	q.Set("size", "1000")
	q.Set("page", "1")
	q.Set("geometry", "true")
	q.Set("attribute", "true")
	q.Set("crs", crs)
	q.Set("data", districtLayer)
	q.Set("attrfilter", "sig_cd:like:"+seoulSigPrefix)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		return nil, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		return nil, fmt.Errorf("V-World API %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	raw := data.Response.Result.FeatureCollection
	if len(raw) == 0 || string(raw) == "null" {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		if e := data.Response.Error; e != nil {
			return nil, fmt.Errorf("%w (%s: %s)", ErrNoFeatureCollection, e.Code, e.Text)
		}
		return nil, ErrNoFeatureCollection
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("vworld", "error").Inc()
		return nil, fmt.Errorf("error decoding featureCollection: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues("vworld", "ok").Inc()
	return fc, nil
}
