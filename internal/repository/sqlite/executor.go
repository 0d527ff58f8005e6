package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

// Executor implements repository.Executor on top of a sqlite database.
type Executor struct {
	db *sql.DB
}

func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Init creates every known table.
func (e *Executor) Init(ctx context.Context) error {
	for _, table := range tableOrder {
		if _, err := e.db.ExecContext(ctx, schemas[table].create); err != nil {
			return fmt.Errorf("create %s table: %w", table, err)
		}
	}
	return nil
}

func (e *Executor) ExecuteQuery(ctx context.Context, table repository.Table, op repository.Operation, params repository.Params) ([]repository.Row, error) {
	op, err := repository.ParseOperation(string(op))
	if err != nil {
		return nil, err
	}
	if op == repository.OpTest {
		return e.test(ctx)
	}

	schema, ok := schemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownTable, table)
	}

	switch op {
	case repository.OpRead:
		return e.read(ctx, table, schema, params)
	case repository.OpCreate:
		return nil, e.create(ctx, table, schema, params)
	case repository.OpUpdate:
		return nil, e.update(ctx, table, schema, params)
	case repository.OpDelete:
		return nil, e.delete(ctx, table, params)
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnsupportedOperation, op)
	}
}

func (e *Executor) test(ctx context.Context) ([]repository.Row, error) {
	var one int64
	if err := e.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return nil, fmt.Errorf("connection test: %w", err)
	}
	return []repository.Row{{"ok": one}}, nil
}

func (e *Executor) read(ctx context.Context, table repository.Table, schema tableSchema, params repository.Params) ([]repository.Row, error) {
	where, args, err := buildFilter(schema, params)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY rowid`, strings.Join(schema.columns, ", "), table, where)
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var result []repository.Row
	for rows.Next() {
		values := make([]any, len(schema.columns))
		dest := make([]any, len(schema.columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(repository.Row, len(schema.columns))
		for i, column := range schema.columns {
			row[column] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return result, nil
}

// buildFilter supports the inventory search triple (filterColumn, searchValue,
// exactMatch) and plain equality on any whitelisted column.
func buildFilter(schema tableSchema, params repository.Params) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if column, ok := params["filterColumn"].(string); ok && column != "" {
		if !schema.has(column) {
			return "", nil, fmt.Errorf("%w: unknown filter column %q", repository.ErrInvalidParams, column)
		}
		value := fmt.Sprint(params["searchValue"])
		if parseBool(params["exactMatch"]) {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		} else {
			clauses = append(clauses, column+" LIKE ?")
			args = append(args, "%"+value+"%")
		}
	}

	for _, column := range schema.columns {
		value, ok := params[column]
		if !ok || value == nil {
			continue
		}
		clauses = append(clauses, column+" = ?")
		args = append(args, value)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (e *Executor) create(ctx context.Context, table repository.Table, schema tableSchema, params repository.Params) error {
	var (
		columns      []string
		placeholders []string
		args         []any
	)
	for _, column := range schema.columns {
		value, ok := params[column]
		if !ok || value == nil {
			continue
		}
		columns = append(columns, column)
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: nothing to insert into %s", repository.ErrInvalidParams, table)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("insert %s: %w", table, repository.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (e *Executor) update(ctx context.Context, table repository.Table, schema tableSchema, params repository.Params) error {
	id, ok := params["ID"]
	if !ok || id == nil || id == "" {
		return fmt.Errorf("%w: ID is required", repository.ErrInvalidParams)
	}

	var (
		sets []string
		args []any
	)
	for _, column := range schema.columns {
		if column == "ID" {
			continue
		}
		value, ok := params[column]
		if !ok || value == nil {
			continue
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: nothing to update in %s", repository.ErrInvalidParams, table)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE ID = ?`, table, strings.Join(sets, ", "))
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("update %s: %w", table, repository.ErrConflict)
		}
		return fmt.Errorf("update %s: %w", table, err)
	}
	return checkAffected(res, table)
}

func (e *Executor) delete(ctx context.Context, table repository.Table, params repository.Params) error {
	id, ok := params["ID"]
	if !ok || id == nil || id == "" {
		return fmt.Errorf("%w: ID is required", repository.ErrInvalidParams)
	}

	res, err := e.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE ID = ?`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return checkAffected(res, table)
}

func checkAffected(res sql.Result, table repository.Table) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", table, err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func parseBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

var _ repository.Executor = (*Executor)(nil)
