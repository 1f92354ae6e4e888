// Package admin is the administrative CRUD surface over every entity. Each
// entity is registered explicitly at startup with its columns, default
// display columns and search/filter rules.
package admin

import (
	"context"
	"fmt"
	"io"
)

// BasePath is the URL prefix of the administrative surface. Link columns
// point below it.
const BasePath = "/admin"

// Row is one rendered record, column name to value. Every row carries "id".
type Row map[string]interface{}

// Link is a column value pointing at another record's admin page.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// ListQuery describes one page of a list view.
type ListQuery struct {
	Offset  int
	Limit   int
	Columns []string
	Search  string
	Filters map[string]string
}

// ListResult is one rendered page.
type ListResult struct {
	Columns    []string
	Rows       []Row
	TotalCount int
}

// Observer is told about every successful administrative operation.
type Observer interface {
	ObserveAdmin(entity, operation string)
}

// Resource is the administrative view of one entity. Errors returned are
// *errors.AppError values ready to be written to the client.
type Resource interface {
	Name() string
	Label() string
	Columns() []string
	DisplayColumns() []string
	Searchable() bool

	List(ctx context.Context, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, id int64) (Row, error)
	Create(ctx context.Context, body io.Reader) (Row, error)
	Update(ctx context.Context, id int64, body io.Reader) (Row, error)
	Delete(ctx context.Context, id int64) error
}

// Registry maps entity names to their resources, in registration order.
type Registry struct {
	resources map[string]Resource
	order     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Register adds res under its name. Names must be unique.
func (r *Registry) Register(res Resource) error {
	name := res.Name()
	if name == "" {
		return fmt.Errorf("admin resource has no name")
	}
	if _, exists := r.resources[name]; exists {
		return fmt.Errorf("admin resource %q already registered", name)
	}
	r.resources[name] = res
	r.order = append(r.order, name)
	return nil
}

// Lookup finds a resource by name.
func (r *Registry) Lookup(name string) (Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Resources returns every registered resource in registration order.
func (r *Registry) Resources() []Resource {
	out := make([]Resource, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.resources[name])
	}
	return out
}

// URL returns the admin page of a record.
func URL(entity string, id int64) string {
	return fmt.Sprintf("%s/%s/%d/", BasePath, entity, id)
}
