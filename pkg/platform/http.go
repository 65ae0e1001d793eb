package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// maxPages bounds cursor pagination so a misbehaving API cannot keep a
// caller enumerating forever.
const maxPages = 1000

// HTTPClientConfig configures the HTTP control-plane client.
type HTTPClientConfig struct {
	// Host is the workspace base URL, e.g. "https://acme.example.com".
	Host string

	// Token is the bearer token used for every request.
	Token string

	// Timeout is the per-request timeout. Default: 30 seconds.
	Timeout time.Duration

	// PageSize is the page size requested on paginated list calls.
	// Default: 100.
	PageSize int

	// Logger receives per-call debug logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPClient implements Client over the control-plane REST APIs.
// It handles bearer auth, cursor pagination, and 404 translation.
type HTTPClient struct {
	host     string
	token    string
	pageSize int
	client   *http.Client
	logger   *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a control-plane client for one workspace.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("platform host cannot be empty")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("platform token cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		host:     cfg.Host,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: cfg.Logger,
	}, nil
}

// APIStatusError is a non-2xx control-plane response.
type APIStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIStatusError) Error() string {
	return fmt.Sprintf("platform API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// doJSON performs one request and decodes the JSON response into out.
// A 404 maps to ErrNotFound so callers can distinguish missing objects
// from transport failures.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, out any) error {
	u := c.host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	callID := uuid.NewString()
	c.logger.Debug("platform API call",
		"call_id", callID,
		"method", method,
		"path", path,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("platform API not found",
			"call_id", callID,
			"path", path,
		)
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIStatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respBytes),
		}
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

// ListRuns implements JobsAPI.
func (c *HTTPClient) ListRuns(ctx context.Context, since time.Time) ([]Run, error) {
	var runs []Run
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageSize))
		query.Set("expand_tasks", "false")
		if !since.IsZero() {
			query.Set("start_time_from", strconv.FormatInt(since.UnixMilli(), 10))
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp struct {
			Runs          []Run  `json:"runs"`
			HasMore       bool   `json:"has_more"`
			NextPageToken string `json:"next_page_token"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/api/2.2/jobs/runs/list", query, nil, &resp); err != nil {
			return nil, err
		}
		runs = append(runs, resp.Runs...)

		if !resp.HasMore || resp.NextPageToken == "" {
			return runs, nil
		}
		pageToken = resp.NextPageToken
	}
	return runs, fmt.Errorf("jobs/runs/list: pagination exceeded %d pages", maxPages)
}

// GetJob implements JobsAPI.
func (c *HTTPClient) GetJob(ctx context.Context, jobID int64) (*Job, error) {
	query := url.Values{}
	query.Set("job_id", strconv.FormatInt(jobID, 10))

	var job Job
	if err := c.doJSON(ctx, http.MethodGet, "/api/2.2/jobs/get", query, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListClusters implements ClustersAPI.
func (c *HTTPClient) ListClusters(ctx context.Context) ([]ClusterSummary, error) {
	var clusters []ClusterSummary
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(c.pageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp struct {
			Clusters      []ClusterSummary `json:"clusters"`
			NextPageToken string           `json:"next_page_token"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/api/2.1/clusters/list", query, nil, &resp); err != nil {
			return nil, err
		}
		clusters = append(clusters, resp.Clusters...)

		if resp.NextPageToken == "" {
			return clusters, nil
		}
		pageToken = resp.NextPageToken
	}
	return clusters, fmt.Errorf("clusters/list: pagination exceeded %d pages", maxPages)
}

// GetCluster implements ClustersAPI.
func (c *HTTPClient) GetCluster(ctx context.Context, clusterID string) (*ClusterDetail, error) {
	query := url.Values{}
	query.Set("cluster_id", clusterID)

	var detail ClusterDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/2.1/clusters/get", query, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListEvents implements ClustersAPI. The events API paginates through a
// POST body rather than query parameters.
func (c *HTTPClient) ListEvents(ctx context.Context, clusterID string, since time.Time) ([]ClusterEvent, error) {
	var events []ClusterEvent
	nextOffset := int64(0)

	for page := 0; page < maxPages; page++ {
		reqBody := map[string]any{
			"cluster_id": clusterID,
			"limit":      c.pageSize,
			"order":      "DESC",
			"offset":     nextOffset,
		}
		if !since.IsZero() {
			reqBody["start_time"] = since.UnixMilli()
		}

		var resp struct {
			Events   []ClusterEvent `json:"events"`
			NextPage *struct {
				Offset int64 `json:"offset"`
			} `json:"next_page"`
		}
		if err := c.doJSON(ctx, http.MethodPost, "/api/2.1/clusters/events", nil, reqBody, &resp); err != nil {
			return nil, err
		}
		events = append(events, resp.Events...)

		if resp.NextPage == nil {
			return events, nil
		}
		nextOffset = resp.NextPage.Offset
	}
	return events, fmt.Errorf("clusters/events: pagination exceeded %d pages", maxPages)
}

// ListWarehouses implements WarehousesAPI.
func (c *HTTPClient) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var resp struct {
		Warehouses []Warehouse `json:"warehouses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/2.0/sql/warehouses", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Warehouses, nil
}

// ListQueries implements QueryHistoryAPI.
func (c *HTTPClient) ListQueries(ctx context.Context, since time.Time, userName string) ([]QueryInfo, error) {
	var queries []QueryInfo
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("max_results", strconv.Itoa(c.pageSize))
		if !since.IsZero() {
			query.Set("filter_by.query_start_time_range.start_time_ms", strconv.FormatInt(since.UnixMilli(), 10))
		}
		if userName != "" {
			query.Set("filter_by.user_name", userName)
		}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp struct {
			Res           []QueryInfo `json:"res"`
			HasNextPage   bool        `json:"has_next_page"`
			NextPageToken string      `json:"next_page_token"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/api/2.0/sql/history/queries", query, nil, &resp); err != nil {
			return nil, err
		}
		queries = append(queries, resp.Res...)

		if !resp.HasNextPage || resp.NextPageToken == "" {
			return queries, nil
		}
		pageToken = resp.NextPageToken
	}
	return queries, fmt.Errorf("sql/history/queries: pagination exceeded %d pages", maxPages)
}

// ListPipelines implements PipelinesAPI.
func (c *HTTPClient) ListPipelines(ctx context.Context) ([]PipelineSummary, error) {
	var pipelines []PipelineSummary
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("max_results", strconv.Itoa(c.pageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp struct {
			Statuses      []PipelineSummary `json:"statuses"`
			NextPageToken string            `json:"next_page_token"`
		}
		if err := c.doJSON(ctx, http.MethodGet, "/api/2.0/pipelines", query, nil, &resp); err != nil {
			return nil, err
		}
		pipelines = append(pipelines, resp.Statuses...)

		if resp.NextPageToken == "" {
			return pipelines, nil
		}
		pageToken = resp.NextPageToken
	}
	return pipelines, fmt.Errorf("pipelines: pagination exceeded %d pages", maxPages)
}

// GetPipeline implements PipelinesAPI.
func (c *HTTPClient) GetPipeline(ctx context.Context, pipelineID string) (*PipelineDetail, error) {
	var detail PipelineDetail
	path := "/api/2.0/pipelines/" + url.PathEscape(pipelineID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetPermissions implements PermissionsAPI.
func (c *HTTPClient) GetPermissions(ctx context.Context, objectType, objectID string) (*ObjectPermissions, error) {
	var perms ObjectPermissions
	path := "/api/2.0/permissions/" + url.PathEscape(objectType) + "/" + url.PathEscape(objectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &perms); err != nil {
		return nil, err
	}
	return &perms, nil
}

// truncateBody bounds error bodies carried into error values.
func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
