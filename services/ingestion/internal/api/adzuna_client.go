package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nathangreen1632/CareerGistPRO/common/errors"
	"github.com/nathangreen1632/CareerGistPRO/common/logger"
	"github.com/nathangreen1632/CareerGistPRO/common/telemetry"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/config"
	"github.com/nathangreen1632/CareerGistPRO/services/ingestion/internal/models"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("careergist/ingestion/api")

const maxBodyLogLength = 120

// ListingsClient fetches one page of upstream search results. Failures are
// DomainErrors typed RATE_LIMIT, UNAVAILABLE, MALFORMED_PAYLOAD or
// UNAUTHORIZED (client not configured).
type ListingsClient interface {
	FetchPage(ctx context.Context, query models.SearchQuery, page int) (*models.Page, error)
}

type adzunaClient struct {
	client   *http.Client
	logger   *zap.Logger
	baseURL  string
	appID    string
	appKey   string
	country  string
	pageSize int
}

func NewListingsClient(logger *zap.Logger, config *config.Config) ListingsClient {
	return &adzunaClient{
		client: &http.Client{
			Timeout: config.AdzunaTimeout,
		},
		logger:   logger,
		baseURL:  strings.TrimRight(config.AdzunaBaseURL, "/"),
		appID:    config.AdzunaAppID,
		appKey:   config.AdzunaAppKey,
		country:  config.AdzunaCountry,
		pageSize: config.AdzunaPageSize,
	}
}

func (c *adzunaClient) FetchPage(ctx context.Context, query models.SearchQuery, page int) (*models.Page, error) {
	ctx, span := tracer.Start(ctx, "FetchPage")
	defer span.End()
	span.SetAttributes(
		telemetry.String("query", query.String()),
		telemetry.Int("page", page),
	)

	if c.appID == "" || c.appKey == "" {
		return nil, errors.Unauthorized("ADZUNA_APP_ID / ADZUNA_APP_KEY not set", nil)
	}

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("results_per_page", strconv.Itoa(c.pageSize))
	params.Set("what", query.Title)
	if query.Location != "" {
		params.Set("where", query.Location)
	}
	if query.Radius > 0 {
		params.Set("distance", strconv.Itoa(query.Radius))
	}
	params.Set("content-type", "application/json")

	endpoint := fmt.Sprintf("%s/%s/search/%d", c.baseURL, url.PathEscape(c.country), page)
	c.logger.Debug("fetching listings page",
		zap.String("endpoint", endpoint),
		zap.String("query", query.String()),
		zap.Int("page", page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Internal("creating request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Unavailable("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Unavailable("reading response body", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.RateLimit(fmt.Sprintf("upstream returned %d: %s",
			resp.StatusCode, logger.Truncate(string(body), maxBodyLogLength)), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Unavailable(fmt.Sprintf("upstream returned %d: %s",
			resp.StatusCode, logger.Truncate(string(body), maxBodyLogLength)), nil)
	}

	if contentType := resp.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
		return nil, errors.Malformed(fmt.Sprintf("non-JSON response (%q): %s",
			contentType, logger.Truncate(string(body), maxBodyLogLength)), nil)
	}

	var result models.Page
	if err := json.Unmarshal(body, &result); err != nil {
		span.RecordError(err)
		return nil, errors.Malformed("decoding response", err)
	}

	span.SetAttributes(telemetry.Int("results.count", len(result.Results)))
	c.logger.Debug("fetched listings page",
		zap.Int("page", page),
		zap.Int("results", len(result.Results)),
		zap.Int("total", result.Count))

	return &result, nil
}
