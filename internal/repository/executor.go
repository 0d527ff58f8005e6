package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an update or delete matched no rows.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a create violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")
	// ErrUnknownTable is returned for tables outside the known schema.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnsupportedOperation is returned for operations the executor does not know.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrInvalidParams is returned when the parameter bag cannot form a query.
	ErrInvalidParams = errors.New("invalid query parameters")
)

// Table names a table of the data-access collaborator.
type Table string

const (
	TableUsers        Table = "Users"
	TableItems        Table = "Items"
	TableLocations    Table = "Locations"
	TableTransactions Table = "Transactions"
)

// Operation names what ExecuteQuery does with a table.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpTest   Operation = "TEST"
)

// ParseOperation accepts operation names in any case.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete, OpTest:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperation, s)
}

// Params is the parameter bag of a query, keyed by column name.
type Params map[string]any

// Row is a single result row keyed by column name.
type Row map[string]any

// Executor is the data-access collaborator: it translates a table, an
// operation and a parameter bag into a database call.
type Executor interface {
	ExecuteQuery(ctx context.Context, table Table, op Operation, params Params) ([]Row, error)
}

// String returns the column value as a string, or "" when absent.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool interprets integer, boolean and textual column values.
func (r Row) Bool(column string) bool {
	switch v := r[column].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true"
	case []byte:
		s := strings.ToLower(strings.TrimSpace(string(v)))
		return s == "1" || s == "true"
	default:
		return false
	}
}
