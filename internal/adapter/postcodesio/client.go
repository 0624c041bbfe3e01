package postcodesio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
)

const (
	methodLookup = "lookup"
	methodBulk   = "bulk"

	// readinessProbePostcode is looked up when readiness has not yet been
	// established by real traffic.
	readinessProbePostcode = "SW1A 1AA"

	// maxErrorBody caps how much of an error response is kept for the error message.
	maxErrorBody = 512
)

// Client implements domain.Resolver using the postcodes.io REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
	ready      atomic.Bool
}

// NewClient creates a postcodes.io client. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Lookup resolves a single postcode. A 404 from the API is reported as a
// NotFound result, not an error.
func (c *Client) Lookup(ctx context.Context, postcode string) (domain.LookupResult, error) {
	pc, err := domain.NormalizePostcode(postcode)
	if err != nil {
		return domain.LookupResult{}, err
	}

	u := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(pc))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var body lookupResponse
	status, err := c.do(req, methodLookup, pc, &body)
	if err != nil {
		c.observe(methodLookup, "error")
		return domain.LookupResult{}, err
	}
	if status == http.StatusNotFound || body.Result == nil {
		c.observe(methodLookup, "not_found")
		return domain.NotFound(pc), nil
	}

	result := toLookupResult(pc, body.Result, c.logger)
	if result.Found {
		c.observe(methodLookup, "found")
	} else {
		c.observe(methodLookup, "not_found")
	}
	return result, nil
}

// BulkLookup resolves up to domain.MaxBulkLookup postcodes in a single POST.
// Oversized batches fail with domain.ErrBatchTooLarge before any request is made.
func (c *Client) BulkLookup(ctx context.Context, postcodes []string) (map[string]domain.LookupResult, error) {
	if len(postcodes) > domain.MaxBulkLookup {
		return nil, fmt.Errorf("%w: %d postcodes (max %d)", domain.ErrBatchTooLarge, len(postcodes), domain.MaxBulkLookup)
	}
	normalized, err := domain.NormalizePostcodes(postcodes)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.LookupResult, len(normalized))
	if len(normalized) == 0 {
		return out, nil
	}

	payload, err := json.Marshal(bulkRequest{Postcodes: normalized})
	if err != nil {
		return nil, fmt.Errorf("encode bulk request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/postcodes", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	var body bulkResponse
	status, err := c.do(req, methodBulk, "", &body)
	if err == nil && status == http.StatusNotFound {
		err = &domain.NetworkError{Op: methodBulk, StatusCode: status}
	}
	if err != nil {
		c.observe(methodBulk, "error")
		return nil, err
	}
	c.observe(methodBulk, "found")

	for _, item := range body.Result {
		pc, err := domain.NormalizePostcode(item.Query)
		if err != nil {
			c.logger.Warn("bulk lookup returned unexpected query", "query", item.Query)
			continue
		}
		if item.Result == nil {
			out[pc] = domain.NotFound(pc)
			continue
		}
		out[pc] = toLookupResult(pc, item.Result, c.logger)
	}
	// Every requested postcode gets an entry, even if the API omitted it.
	for _, pc := range normalized {
		if _, ok := out[pc]; !ok {
			out[pc] = domain.NotFound(pc)
		}
	}
	return out, nil
}

// CheckReadiness reports whether postcodes.io is reachable. Once any request
// has received a response it stays ready; until then it probes with a lookup.
func (c *Client) CheckReadiness(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	if _, err := c.Lookup(ctx, readinessProbePostcode); err != nil {
		return fmt.Errorf("postcodes.io not reachable: %w", err)
	}
	return nil
}

// do executes req and decodes a 2xx body into out. It returns the HTTP status
// for 2xx and 404 responses; every other outcome is a *domain.NetworkError.
func (c *Client) do(req *http.Request, method, postcode string, out any) (int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LookupAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, &domain.NetworkError{Op: method, Postcode: postcode, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.ready.Store(true)
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, &domain.NetworkError{
			Op:         method,
			Postcode:   postcode,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return 0, &domain.NetworkError{Op: method, Postcode: postcode, Err: fmt.Errorf("decode response: %w", err)}
	}
	c.ready.Store(true)
	return resp.StatusCode, nil
}

func (c *Client) observe(method, outcome string) {
	c.metrics.LookupRequests.WithLabelValues(method, outcome).Inc()
}

// toLookupResult converts an API result. Postcodes without coordinates
// (some Channel Islands and terminated codes) are treated as not found.
func toLookupResult(pc string, r *postcodeResult, logger *slog.Logger) domain.LookupResult {
	if r.Latitude == nil || r.Longitude == nil {
		logger.Warn("postcode has no coordinates", "postcode", pc)
		return domain.NotFound(pc)
	}
	return domain.LookupResult{
		Query: pc,
		Found: true,
		Location: domain.PostcodeLocation{
			Postcode:      pc,
			Coordinate:    domain.GeoCoordinate{Lat: *r.Latitude, Lon: *r.Longitude},
			Region:        r.Region,
			Country:       r.Country,
			AdminDistrict: r.AdminDistrict,
		},
	}
}

// postcodes.io API types.

type lookupResponse struct {
	Status int             `json:"status"`
	Result *postcodeResult `json:"result"`
}

type postcodeResult struct {
	Postcode      string   `json:"postcode"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Region        *string  `json:"region"`
	Country       *string  `json:"country"`
	AdminDistrict *string  `json:"admin_district"`
}

type bulkRequest struct {
	Postcodes []string `json:"postcodes"`
}

type bulkResponse struct {
	Status int        `json:"status"`
	Result []bulkItem `json:"result"`
}

type bulkItem struct {
	Query  string          `json:"query"`
	Result *postcodeResult `json:"result"`
}
