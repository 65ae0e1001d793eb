package statement

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
	"time"

	"github.com/google/uuid"
)

// HTTPExecutorConfig configures the statement-execution client.
type HTTPExecutorConfig struct {
	// Host is the workspace base URL.
	Host string

	// Token is the bearer token.
	Token string

	// WarehouseID is the default warehouse for statements that do not
	// name one.
	WarehouseID string

	// WaitTimeout is the default synchronous wait. The API accepts
	// 5 to 50 seconds. Default: 30 seconds.
	WaitTimeout time.Duration

	// PollInterval is the interval between status polls for
	// statements that outlive the synchronous wait. Default: 1 second.
	PollInterval time.Duration

	// Timeout is the per-HTTP-request timeout. Default: 60 seconds.
	Timeout time.Duration

	// Logger receives per-statement debug logs.
	Logger *slog.Logger
}

// HTTPExecutor implements Executor over the statement-execution API.
type HTTPExecutor struct {
	host         string
	token        string
	warehouseID  string
	waitTimeout  time.Duration
	pollInterval time.Duration
	client       *http.Client
	logger       *slog.Logger
}

var _ Executor = (*HTTPExecutor)(nil)

// NewHTTPExecutor creates a statement executor for one workspace.
func NewHTTPExecutor(cfg HTTPExecutorConfig) (*HTTPExecutor, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("statement host cannot be empty")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("statement token cannot be empty")
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &HTTPExecutor{
		host:         cfg.Host,
		token:        cfg.Token,
		warehouseID:  cfg.WarehouseID,
		waitTimeout:  cfg.WaitTimeout,
		pollInterval: cfg.PollInterval,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
	}, nil
}

// statementResponse is the wire shape of an execution or status call.
type statementResponse struct {
	StatementID string `json:"statement_id"`
	Status      struct {
		State string `json:"state"`
		Error *struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		} `json:"error"`
	} `json:"status"`
	Manifest struct {
		Schema struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
		} `json:"schema"`
	} `json:"manifest"`
	Result *struct {
		DataArray             [][]*string `json:"data_array"`
		NextChunkInternalLink string      `json:"next_chunk_internal_link"`
	} `json:"result"`
}

// Execute implements Executor. It submits the statement synchronously
// and polls until a terminal state when the warehouse takes longer than
// the wait timeout.
func (e *HTTPExecutor) Execute(ctx context.Context, stmt Statement) (*Result, error) {
	warehouseID := stmt.WarehouseID
	if warehouseID == "" {
		warehouseID = e.warehouseID
	}
	if warehouseID == "" {
		return nil, fmt.Errorf("no warehouse configured for statement execution")
	}
	wait := stmt.WaitTimeout
	if wait <= 0 {
		wait = e.waitTimeout
	}

	reqBody := map[string]any{
		"statement":       stmt.SQL,
		"warehouse_id":    warehouseID,
		"wait_timeout":    fmt.Sprintf("%ds", int(wait.Seconds())),
		"on_wait_timeout": "CONTINUE",
		"format":          "JSON_ARRAY",
		"disposition":     "INLINE",
	}
	if len(stmt.Params) > 0 {
		reqBody["parameters"] = stmt.Params
	}

	callID := uuid.NewString()
	e.logger.Debug("executing statement",
		"call_id", callID,
		"warehouse_id", warehouseID,
		"params", len(stmt.Params),
	)

	var resp statementResponse
	if err := e.doJSON(ctx, http.MethodPost, "/api/2.0/sql/statements", reqBody, &resp); err != nil {
		return nil, err
	}

	// Poll until terminal
	for resp.Status.State == "PENDING" || resp.Status.State == "RUNNING" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.pollInterval):
		}
		path := "/api/2.0/sql/statements/" + url.PathEscape(resp.StatementID)
		if err := e.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
	}

	switch resp.Status.State {
	case "SUCCEEDED":
	case "FAILED", "CANCELED", "CLOSED":
		msg := resp.Status.State
		if resp.Status.Error != nil {
			msg = fmt.Sprintf("%s: %s", resp.Status.Error.ErrorCode, resp.Status.Error.Message)
		}
		return nil, fmt.Errorf("statement %s: %s", resp.StatementID, msg)
	default:
		return nil, fmt.Errorf("statement %s: unexpected state %q", resp.StatementID, resp.Status.State)
	}

	result := &Result{}
	for _, col := range resp.Manifest.Schema.Columns {
		result.Columns = append(result.Columns, col.Name)
	}

	// Collect all chunks
	cur := resp
	for {
		if cur.Result == nil {
			break
		}
		for _, wireRow := range cur.Result.DataArray {
			row := make([]Value, len(wireRow))
			for i, cell := range wireRow {
				if cell != nil {
					row[i] = Value{S: *cell, Valid: true}
				}
			}
			result.Rows = append(result.Rows, row)
		}
		if cur.Result.NextChunkInternalLink == "" {
			break
		}
		var next statementResponse
		nextResult := &struct {
			DataArray             [][]*string `json:"data_array"`
			NextChunkInternalLink string      `json:"next_chunk_internal_link"`
		}{}
		if err := e.doJSON(ctx, http.MethodGet, cur.Result.NextChunkInternalLink, nil, nextResult); err != nil {
			return nil, fmt.Errorf("failed to fetch result chunk: %w", err)
		}
		next.Result = nextResult
		cur = next
	}

	e.logger.Debug("statement complete",
		"call_id", callID,
		"rows", len(result.Rows),
	)
	return result, nil
}

// TableExists implements Executor with a zero-row probe. A missing or
// unauthorized table surfaces as a failed statement, which the probe
// reports as false rather than an error.
func (e *HTTPExecutor) TableExists(ctx context.Context, warehouseID, table string) (bool, error) {
	if !validTableName(table) {
		return false, fmt.Errorf("invalid table name %q", table)
	}

	// Identifier, not a value: validated above, never user-supplied
	// beyond configuration.
	probe := Statement{
		SQL:         fmt.Sprintf("SELECT 1 FROM %s WHERE 1 = 0", table),
		WarehouseID: warehouseID,
		WaitTimeout: 10 * time.Second,
	}
	if _, err := e.Execute(ctx, probe); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		e.logger.Debug("table probe failed", "table", table, "error", err)
		return false, nil
	}
	return true, nil
}

// validTableName accepts dotted identifiers with optional backticks.
func validTableName(table string) bool {
	if table == "" {
		return false
	}
	for _, part := range strings.Split(table, ".") {
		part = strings.TrimPrefix(strings.TrimSuffix(part, "`"), "`")
		if part == "" {
			return false
		}
		for _, r := range part {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			default:
				return false
			}
		}
	}
	return true
}

// doJSON performs one request against the statement API.
func (e *HTTPExecutor) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	u := path
	if !strings.HasPrefix(path, "http") {
		u = e.host + path
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
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("statement API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(respBytes)
		if len(body) > 512 {
			body = body[:512] + "..."
		}
		return fmt.Errorf("statement API %s %s returned %d: %s", method, path, resp.StatusCode, body)
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
