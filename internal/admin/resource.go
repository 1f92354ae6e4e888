package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"device-fleet-api/internal/repository"
	"device-fleet-api/internal/service"
	apperrors "device-fleet-api/pkg/errors"
)

// Column renders one value of a record. Stored fields read the record
// itself; derived columns may consult related records.
type Column[T any] struct {
	Name  string
	Value func(ctx context.Context, item *T) (interface{}, error)
}

// FilterSpec maps a list query parameter onto a table column.
type FilterSpec struct {
	Column string
	Parse  func(raw string) (interface{}, error)
}

// Entity is the generic Resource over one repository table.
type Entity[T any] struct {
	name     string
	label    string
	table    *repository.Table[T]
	id       func(item *T) int64
	columns  []Column[T]
	display  []string
	search   string
	filters  map[string]FilterSpec
	defaults func(item *T)
	prepare  func(item *T)
	observer Observer
}

var _ Resource = (*Entity[struct{}])(nil)

func (e *Entity[T]) Name() string { return e.name }

func (e *Entity[T]) Label() string { return e.label }

func (e *Entity[T]) Columns() []string {
	names := make([]string, len(e.columns))
	for i, c := range e.columns {
		names[i] = c.Name
	}
	return names
}

func (e *Entity[T]) DisplayColumns() []string {
	return append([]string(nil), e.display...)
}

func (e *Entity[T]) Searchable() bool { return e.search != "" }

// List renders one page of records using the requested columns, or the
// default display columns when none are requested.
func (e *Entity[T]) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	cols, err := e.selectColumns(q.Columns)
	if err != nil {
		return nil, err
	}

	params := repository.ListParams{
		PaginationParams: repository.PaginationParams{Offset: q.Offset, Limit: q.Limit},
	}

	if q.Search != "" {
		if e.search == "" {
			return nil, apperrors.InvalidParameterError("q", fmt.Sprintf("%s cannot be searched", e.name))
		}
		params.Filters = append(params.Filters, repository.Filter{Column: e.search, Value: q.Search, Prefix: true})
	}

	filters, err := e.parseFilters(q.Filters)
	if err != nil {
		return nil, err
	}
	params.Filters = append(params.Filters, filters...)

	page, err := e.table.List(ctx, params)
	if err != nil {
		return nil, service.MapStoreError(err, e.label)
	}

	rows := make([]Row, 0, len(page.Items))
	for i := range page.Items {
		row, err := e.render(ctx, &page.Items[i], cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	e.observe("list")
	return &ListResult{Columns: cols, Rows: rows, TotalCount: page.TotalCount}, nil
}

// Get renders a single record with every column.
func (e *Entity[T]) Get(ctx context.Context, id int64) (Row, error) {
	item, err := e.table.Get(ctx, id)
	if err != nil {
		return nil, service.MapStoreError(err, e.label)
	}
	e.observe("read")
	return e.render(ctx, item, e.Columns())
}

// Create decodes a record from body and stores it.
func (e *Entity[T]) Create(ctx context.Context, body io.Reader) (Row, error) {
	item, err := e.decode(body)
	if err != nil {
		return nil, err
	}
	if e.prepare != nil {
		e.prepare(item)
	}

	if err := e.table.Create(ctx, item); err != nil {
		return nil, service.MapStoreError(err, e.label)
	}
	e.observe("create")
	return e.render(ctx, item, e.Columns())
}

// Update replaces the stored fields of record id with the ones in body.
func (e *Entity[T]) Update(ctx context.Context, id int64, body io.Reader) (Row, error) {
	item, err := e.decode(body)
	if err != nil {
		return nil, err
	}
	if e.prepare != nil {
		e.prepare(item)
	}

	if err := e.table.Update(ctx, id, item); err != nil {
		return nil, service.MapStoreError(err, e.label)
	}
	e.observe("update")
	return e.render(ctx, item, e.Columns())
}

// Delete removes record id together with everything that cascades from it.
func (e *Entity[T]) Delete(ctx context.Context, id int64) error {
	if err := e.table.Delete(ctx, id); err != nil {
		return service.MapStoreError(err, e.label)
	}
	e.observe("delete")
	return nil
}

// decode applies the defaults before reading body, so only fields absent
// from the input keep them.
func (e *Entity[T]) decode(body io.Reader) (*T, error) {
	var item T
	if e.defaults != nil {
		e.defaults(&item)
	}
	if err := json.NewDecoder(body).Decode(&item); err != nil {
		return nil, apperrors.DecodeError(err)
	}
	return &item, nil
}

func (e *Entity[T]) selectColumns(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return e.DisplayColumns(), nil
	}
	for _, name := range requested {
		if e.column(name) == nil {
			return nil, apperrors.InvalidParameterError("columns", fmt.Sprintf("unknown column %q for %s", name, e.name))
		}
	}
	return requested, nil
}

// parseFilters walks the filters in key order so the generated SQL is stable.
func (e *Entity[T]) parseFilters(raw map[string]string) ([]repository.Filter, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]repository.Filter, 0, len(keys))
	for _, key := range keys {
		spec, ok := e.filters[key]
		if !ok {
			return nil, apperrors.InvalidParameterError(key, fmt.Sprintf("%s cannot be filtered by %s", e.name, key))
		}
		value, err := spec.Parse(raw[key])
		if err != nil {
			return nil, apperrors.InvalidParameterError(key, err.Error())
		}
		filters = append(filters, repository.Filter{Column: spec.Column, Value: value})
	}
	return filters, nil
}

func (e *Entity[T]) column(name string) *Column[T] {
	for i := range e.columns {
		if e.columns[i].Name == name {
			return &e.columns[i]
		}
	}
	return nil
}

func (e *Entity[T]) render(ctx context.Context, item *T, cols []string) (Row, error) {
	row := Row{"id": e.id(item)}
	for _, name := range cols {
		col := e.column(name)
		if col == nil {
			continue
		}
		value, err := col.Value(ctx, item)
		if err != nil {
			return nil, service.MapStoreError(fmt.Errorf("column %s: %w", name, err), e.label)
		}
		row[name] = value
	}
	return row, nil
}

func (e *Entity[T]) observe(operation string) {
	if e.observer != nil {
		e.observer.ObserveAdmin(e.name, operation)
	}
}

// Column constructors

func field[T any](name string, get func(item *T) interface{}) Column[T] {
	return Column[T]{
		Name: name,
		Value: func(_ context.Context, item *T) (interface{}, error) {
			return get(item), nil
		},
	}
}

// display renders the record's String form.
func display[T any]() Column[T] {
	return Column[T]{
		Name: "display",
		Value: func(_ context.Context, item *T) (interface{}, error) {
			return fmt.Sprint(*item), nil
		},
	}
}

// related projects the record a foreign key points at. A dangling key
// renders as null.
func related[T, R any](name string, table *repository.Table[R], key func(item *T) int64, project func(rel *R) interface{}) Column[T] {
	return Column[T]{
		Name: name,
		Value: func(ctx context.Context, item *T) (interface{}, error) {
			rel, err := table.Get(ctx, key(item))
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return project(rel), nil
		},
	}
}

// link renders a Link to the admin page of the record a foreign key points
// at, labelled with that record's display form.
func link[T, R any](name, target string, table *repository.Table[R], key func(item *T) int64, label func(ctx context.Context, rel *R) (string, error)) Column[T] {
	return Column[T]{
		Name: name,
		Value: func(ctx context.Context, item *T) (interface{}, error) {
			id := key(item)
			rel, err := table.Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return Link{URL: URL(target, id)}, nil
				}
				return nil, err
			}
			text, err := label(ctx, rel)
			if err != nil {
				return nil, err
			}
			return Link{URL: URL(target, id), Label: text}, nil
		},
	}
}

func stringLabel[R any](_ context.Context, rel *R) (string, error) {
	return fmt.Sprint(*rel), nil
}
