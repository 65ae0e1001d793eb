package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/lakewatch/lakewatch/pkg/statement"
)

// Audit default limit.
const DefaultAuditLimit = 100

// Audit answers audit-log questions. Audit events exist only in the
// audit system table, so these operations are fast-path only: when the
// warehouse or table is not provisioned they return an empty result
// with an informational log instead of failing.
type Audit struct {
	deps Deps
}

// NewAudit creates the audit domain service.
func NewAudit(deps Deps) *Audit {
	return &Audit{deps: deps}
}

// AuditParams parameterizes the audit operations.
type AuditParams struct {
	Lookback time.Duration
	Limit    int
}

func (a *Audit) normalize(params AuditParams) (AuditParams, Window, error) {
	if params.Lookback == 0 {
		params.Lookback = DefaultLookback
	}
	if params.Limit == 0 {
		params.Limit = DefaultAuditLimit
	}
	if params.Limit < 0 {
		return params, Window{}, Validationf("limit must be positive, got %d", params.Limit)
	}
	window, err := NewWindow(a.deps.now(), params.Lookback)
	if err != nil {
		return params, Window{}, err
	}
	return params, window, nil
}

// available probes whether the audit table can be queried at all.
func (a *Audit) available(ctx context.Context) (bool, error) {
	if !a.deps.fastPathReady() || a.deps.Tables.Audit == "" {
		a.deps.log().Info("audit table not configured, returning empty result")
		return false, nil
	}
	ok, err := a.deps.Executor.TableExists(ctx, a.deps.WarehouseID, a.deps.Tables.Audit)
	if err != nil {
		return false, err
	}
	if !ok {
		a.deps.log().Info("audit table not provisioned, returning empty result",
			"table", a.deps.Tables.Audit,
		)
	}
	return ok, nil
}

// FailedLogins returns failed authentication events in the window,
// newest first.
func (a *Audit) FailedLogins(ctx context.Context, params AuditParams) ([]AuditEvent, error) {
	params, window, err := a.normalize(params)
	if err != nil {
		return nil, err
	}

	ok, err := a.available(ctx)
	if err != nil {
		return nil, &APIError{Op: "failed_logins", Err: err}
	}
	if !ok {
		return []AuditEvent{}, nil
	}

	sql := fmt.Sprintf(`
SELECT event_time, user_identity_email, service_name, action_name, source_ip_address, response_error_message
FROM %s
WHERE event_time >= :window_start
  AND action_name IN ('login', 'tokenLogin', 'oidcBrowserLogin')
  AND response_status_code >= 400
ORDER BY event_time DESC
LIMIT :row_limit`, a.deps.Tables.Audit)

	return a.query(ctx, "failed_logins", sql, window, params.Limit)
}

// RecentAdminChanges returns administrative configuration changes in
// the window, newest first.
func (a *Audit) RecentAdminChanges(ctx context.Context, params AuditParams) ([]AuditEvent, error) {
	params, window, err := a.normalize(params)
	if err != nil {
		return nil, err
	}

	ok, err := a.available(ctx)
	if err != nil {
		return nil, &APIError{Op: "recent_admin_changes", Err: err}
	}
	if !ok {
		return []AuditEvent{}, nil
	}

	sql := fmt.Sprintf(`
SELECT event_time, user_identity_email, service_name, action_name, source_ip_address, request_params
FROM %s
WHERE event_time >= :window_start
  AND service_name IN ('accounts', 'iam', 'groups', 'workspace', 'clusterPolicies')
ORDER BY event_time DESC
LIMIT :row_limit`, a.deps.Tables.Audit)

	return a.query(ctx, "recent_admin_changes", sql, window, params.Limit)
}

func (a *Audit) query(ctx context.Context, op, sql string, window Window, limit int) ([]AuditEvent, error) {
	start := a.deps.now()
	result, err := a.deps.Executor.Execute(ctx, statement.Statement{
		SQL: sql,
		Params: []statement.Param{
			statement.Timestamp("window_start", window.Start),
			statement.Int64("row_limit", int64(limit)),
		},
		WarehouseID: a.deps.WarehouseID,
	})
	if err != nil {
		a.deps.Metrics.RecordQuery("audit", "fast", "error", a.deps.now().Sub(start))
		return nil, &APIError{Op: op, Err: err}
	}
	a.deps.Metrics.RecordQuery("audit", "fast", "ok", a.deps.now().Sub(start))

	events := make([]AuditEvent, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 6 {
			return nil, &APIError{Op: op, Err: fmt.Errorf("audit row has %d columns, want 6", len(row))}
		}
		ts, err := row[0].Time()
		if err != nil {
			return nil, &APIError{Op: op, Err: err}
		}
		events = append(events, AuditEvent{
			Timestamp: ts,
			UserName:  row[1].S,
			Service:   row[2].S,
			Action:    row[3].S,
			SourceIP:  row[4].S,
			Details:   row[5].S,
		})
	}
	return events, nil
}
