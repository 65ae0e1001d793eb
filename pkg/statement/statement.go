package statement

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Param is a named statement parameter.
type Param struct {
	// Name is the parameter marker name (":name" in the SQL text).
	Name string `json:"name"`

	// Type is the SQL type of the value ("STRING", "BIGINT",
	// "DOUBLE", "TIMESTAMP", "INT").
	Type string `json:"type,omitempty"`

	// Value is the literal value, rendered as text on the wire.
	Value string `json:"value"`
}

// String builds a STRING parameter.
func String(name, value string) Param {
	return Param{Name: name, Type: "STRING", Value: value}
}

// Int64 builds a BIGINT parameter.
func Int64(name string, value int64) Param {
	return Param{Name: name, Type: "BIGINT", Value: strconv.FormatInt(value, 10)}
}

// Float64 builds a DOUBLE parameter.
func Float64(name string, value float64) Param {
	return Param{Name: name, Type: "DOUBLE", Value: strconv.FormatFloat(value, 'g', -1, 64)}
}

// Timestamp builds a TIMESTAMP parameter in UTC.
func Timestamp(name string, value time.Time) Param {
	return Param{Name: name, Type: "TIMESTAMP", Value: value.UTC().Format("2006-01-02 15:04:05")}
}

// Statement is one parameterized SQL statement to execute.
type Statement struct {
	// SQL is the statement text with named parameter markers.
	SQL string

	// Params are the bound parameters.
	Params []Param

	// WarehouseID selects the warehouse to run on. Empty means the
	// executor's default warehouse.
	WarehouseID string

	// WaitTimeout bounds synchronous execution. Zero means the
	// executor default.
	WaitTimeout time.Duration
}

// Value is one cell of a result row. The statement-execution API
// returns every cell as text; NULL arrives as an absent value.
type Value struct {
	S     string
	Valid bool
}

// Null is the NULL cell.
var Null = Value{}

// Text builds a non-NULL cell. Used by fakes in tests.
func Text(s string) Value {
	return Value{S: s, Valid: true}
}

// Int64 converts the cell to an integer. NULL converts to (0, nil,
// false semantics are the caller's concern via Valid).
func (v Value) Int64() (int64, error) {
	if !v.Valid {
		return 0, nil
	}
	n, err := strconv.ParseInt(v.S, 10, 64)
	if err != nil {
		// Aggregates may render integral values with a decimal part.
		f, ferr := strconv.ParseFloat(v.S, 64)
		if ferr != nil {
			return 0, fmt.Errorf("cell %q is not an integer: %w", v.S, err)
		}
		return int64(f), nil
	}
	return n, nil
}

// Float64 converts the cell to a float. NULL converts to 0.
func (v Value) Float64() (float64, error) {
	if !v.Valid {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v.S, 64)
	if err != nil {
		return 0, fmt.Errorf("cell %q is not a number: %w", v.S, err)
	}
	return f, nil
}

// Time converts the cell to a timestamp. Both the ISO form and the
// space-separated form the warehouse emits are accepted.
func (v Value) Time() (time.Time, error) {
	if !v.Valid {
		return time.Time{}, nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, v.S); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cell %q is not a timestamp", v.S)
}

// Result is the tabular result of a statement.
type Result struct {
	// Columns are the result column names in order.
	Columns []string

	// Rows are the data rows. Row cells align with Columns.
	Rows [][]Value
}

// Executor runs statements against a warehouse.
type Executor interface {
	// Execute runs one statement and returns its full result set.
	Execute(ctx context.Context, stmt Statement) (*Result, error)

	// TableExists reports whether a table is queryable on the given
	// warehouse. It never returns an error for a merely missing
	// table; errors mean the probe itself could not run.
	TableExists(ctx context.Context, warehouseID, table string) (bool, error)
}
