// Package drainage talks to the storm-drain data backend and maps its rows
// onto the dashboard's models.
package drainage

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

	"github.com/novarobotics/stormdrain/internal/models"
)

const (
	DefaultLimit = 200
	MaxLimit     = 200

	maxBodyBytes = 8 << 20
)

var (
	ErrBackendNotConfigured = errors.New("BACKEND_API_URL not configured")
	ErrNotFound             = errors.New("storm drain not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// ClampLimit keeps a requested page size within what the backend accepts.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// List fetches the latest record per drain. Rows without a usable position are dropped.
func (c *Client) List(ctx context.Context, limit int) ([]models.StormDrain, error) {
	rows, err := c.ListRows(ctx, limit)
	if err != nil {
		return nil, err
	}

	drains := make([]models.StormDrain, 0, len(rows))
	for _, row := range rows {
		d := ToStormDrain(row)
		if d.Lat == 0 && d.Lng == 0 {
			continue
		}
		drains = append(drains, d)
	}
	return drains, nil
}

func (c *Client) ListRows(ctx context.Context, limit int) ([]Row, error) {
	if !c.Configured() {
		return nil, ErrBackendNotConfigured
	}

	endpoint := c.baseURL + "/drainage?limit=" + strconv.Itoa(ClampLimit(limit))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("drainage list failed: %d", status)
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("error decoding drainage list: %w", err)
	}
	return rows, nil
}

// Get fetches the latest record for one drain.
func (c *Client) Get(ctx context.Context, locationID string) (*Row, error) {
	if !c.Configured() {
		return nil, ErrBackendNotConfigured
	}

	endpoint := c.baseURL + "/drainage/" + url.PathEscape(locationID)
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("drainage detail failed: %d", status)
	}

	// the backend answers an unknown id with 200 and a JSON null
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, ErrNotFound
	}

	var row Row
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("error decoding drainage detail: %w", err)
	}
	return &row, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("error reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}
