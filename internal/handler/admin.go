package handler

import (
	"net/http"
	"strconv"
	"strings"

	"device-fleet-api/internal/admin"
	apperrors "device-fleet-api/pkg/errors"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Query parameters with a fixed meaning on list views. Every other parameter
// is passed to the entity as a filter.
var reservedListParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"columns":   true,
	"q":         true,
}

// AdminHandler serves the administrative CRUD surface
type AdminHandler struct {
	Registry *admin.Registry
	Logger   *zap.Logger

	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(registry *admin.Registry, serviceName string, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		Registry:       registry,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(serviceName),
	}
}

// ResourceSummary describes one entity on the admin index
type ResourceSummary struct {
	Name           string   `json:"name"`
	Label          string   `json:"label"`
	URL            string   `json:"url"`
	Columns        []string `json:"columns"`
	DisplayColumns []string `json:"display_columns"`
	Searchable     bool     `json:"searchable"`
}

// IndexHandler lists every registered entity
func (h *AdminHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	resources := h.Registry.Resources()
	summaries := make([]ResourceSummary, 0, len(resources))
	for _, res := range resources {
		summaries = append(summaries, ResourceSummary{
			Name:           res.Name(),
			Label:          res.Label(),
			URL:            admin.BasePath + "/" + res.Name() + "/",
			Columns:        res.Columns(),
			DisplayColumns: res.DisplayColumns(),
			Searchable:     res.Searchable(),
		})
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"resources": summaries,
	})
}

// ListHandler returns one page of an entity.
//
// Query parameters: page, page_size, columns (comma separated), q (search)
// and any filter the entity declares.
func (h *AdminHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, LongRunningTimeout)
	defer cancel()

	pagination := h.ResponseHelper.ParsePaginationParams(r)
	query := admin.ListQuery{
		Offset:  pagination.Offset,
		Limit:   pagination.Limit,
		Columns: parseColumns(r.URL.Query().Get("columns")),
		Search:  strings.TrimSpace(r.URL.Query().Get("q")),
		Filters: make(map[string]string),
	}
	for key, values := range r.URL.Query() {
		if reservedListParams[key] || len(values) == 0 {
			continue
		}
		query.Filters[key] = values[0]
	}

	result, err := res.List(ctx, query)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	meta := h.ResponseHelper.CalculatePaginationMeta(pagination, result.TotalCount)
	data := h.ResponseHelper.CreatePaginatedListResponseData(result.Rows, meta, map[string]interface{}{
		"entity":  res.Name(),
		"columns": result.Columns,
	})
	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, data)
}

// GetHandler returns one record with every column
func (h *AdminHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	row, err := res.Get(ctx, id)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendJSONResponse(w, http.StatusOK, row)
}

// CreateHandler creates a record from the JSON body
func (h *AdminHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	row, err := res.Create(ctx, r.Body)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusCreated, res.Label()+" created successfully", row)
}

// UpdateHandler replaces a record with the JSON body
func (h *AdminHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	row, err := res.Update(ctx, id, r.Body)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, res.Label()+" updated successfully", row)
}

// DeleteHandler removes a record and, through the schema, its dependents
func (h *AdminHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	if err := res.Delete(ctx, id); err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendSuccessResponse(w, http.StatusOK, res.Label()+" deleted successfully", map[string]int64{"id": id})
}

func (h *AdminHandler) resource(w http.ResponseWriter, r *http.Request) (admin.Resource, bool) {
	name := mux.Vars(r)["entity"]
	res, ok := h.Registry.Lookup(name)
	if !ok {
		h.ErrorHandler.HandleError(w, r, apperrors.NotFoundError("admin resource").WithDetail("entity", name))
		return nil, false
	}
	return res, true
}

func (h *AdminHandler) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		h.ErrorHandler.HandleError(w, r, apperrors.InvalidParameterError("id", "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func parseColumns(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var columns []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	return columns
}
