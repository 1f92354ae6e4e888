package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Per-call timeouts
const (
	writeTimeout = 5 * time.Second
	readTimeout  = 5 * time.Second
	listTimeout  = 10 * time.Second
)

// PaginationParams holds pagination parameters for repository queries
type PaginationParams struct {
	Offset int
	Limit  int
}

// Filter narrows a list query. Prefix filters match the start of a string
// column, everything else is an equality test.
type Filter struct {
	Column string
	Value  interface{}
	Prefix bool
}

// ListParams combines paging and filtering for Table.List
type ListParams struct {
	PaginationParams
	Filters []Filter
}

// PaginatedResult holds paginated query results
type PaginatedResult[T any] struct {
	Items      []T
	TotalCount int
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Table is the storage accessor for one entity type. Every row has a BIGSERIAL
// id followed by columns; scan must read id and columns in that order and
// values must return the columns in that order.
type Table[T any] struct {
	DB *sql.DB

	name     string
	resource string
	columns  []string
	orderBy  string
	scan     func(row rowScanner, item *T) error
	values   func(item *T) []interface{}
	setID    func(item *T, id int64)
	validate func(item *T) error
}

// Name returns the SQL table name.
func (t *Table[T]) Name() string {
	return t.name
}

// HasColumn reports whether column belongs to the table.
func (t *Table[T]) HasColumn(column string) bool {
	if column == "id" {
		return true
	}
	for _, c := range t.columns {
		if c == column {
			return true
		}
	}
	return false
}

func (t *Table[T]) selectList() string {
	return "id, " + strings.Join(t.columns, ", ")
}

// Create validates item, inserts it and stores the generated id on it.
func (t *Table[T]) Create(ctx context.Context, item *T) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := t.validate(item); err != nil {
		return err
	}

	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := t.DB.QueryRowContext(ctx, query, t.values(item)...).Scan(&id); err != nil {
		return translateError(err, "create "+t.resource)
	}
	t.setID(item, id)

	return nil
}

// Get retrieves a single record by primary key.
func (t *Table[T]) Get(ctx context.Context, id int64) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.selectList(), t.name)

	var item T
	if err := t.scan(t.DB.QueryRowContext(ctx, query, id), &item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", t.resource, id, ErrNotFound)
		}
		return nil, translateError(err, "get "+t.resource)
	}

	return &item, nil
}

// Update validates item and overwrites the record with the given id.
func (t *Table[T]) Update(ctx context.Context, id int64, item *T) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := t.validate(item); err != nil {
		return err
	}

	assignments := make([]string, len(t.columns))
	for i, c := range t.columns {
		assignments[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		t.name, strings.Join(assignments, ", "), len(t.columns)+1)

	args := append(t.values(item), id)
	result, err := t.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err, "update "+t.resource)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", t.resource, id, ErrNotFound)
	}
	t.setID(item, id)

	return nil
}

// Delete removes the record with the given id. Dependent rows go with it
// through the schema's ON DELETE CASCADE rules.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.name)

	result, err := t.DB.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err, "delete "+t.resource)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", t.resource, id, ErrNotFound)
	}

	return nil
}

// List returns one page of records in the table's display order together
// with the total number of records matching the filters.
func (t *Table[T]) List(ctx context.Context, params ListParams) (*PaginatedResult[T], error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	where, args, err := t.whereClause(params.Filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s OFFSET $%d LIMIT $%d`,
		t.selectList(), t.name, where, t.orderBy, len(args)+1, len(args)+2)

	rows, err := t.DB.QueryContext(ctx, query, append(args, params.Offset, params.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var item T
		if err := t.scan(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.resource, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	var totalCount int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, t.name, where)
	if err := t.DB.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count of %s: %w", t.name, err)
	}

	return &PaginatedResult[T]{
		Items:      items,
		TotalCount: totalCount,
	}, nil
}

func (t *Table[T]) whereClause(filters []Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		if !t.HasColumn(f.Column) {
			return "", nil, fmt.Errorf("unknown column %q for %s", f.Column, t.name)
		}

		if f.Prefix {
			s, ok := f.Value.(string)
			if !ok {
				return "", nil, fmt.Errorf("prefix filter on %s needs a string value", f.Column)
			}
			args = append(args, escapeLike(s)+"%")
			conditions = append(conditions, fmt.Sprintf(`%s LIKE $%d`, f.Column, len(args)))
			continue
		}

		args = append(args, f.Value)
		conditions = append(conditions, fmt.Sprintf(`%s = $%d`, f.Column, len(args)))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// escapeLike neutralises LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
