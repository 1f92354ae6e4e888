package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"device-fleet-api/internal/admin"
	apperrors "device-fleet-api/pkg/errors"

	"github.com/gorilla/mux"
)

// MockResource is a mock implementation of admin.Resource
type MockResource struct {
	NameValue string

	ListFunc   func(ctx context.Context, q admin.ListQuery) (*admin.ListResult, error)
	GetFunc    func(ctx context.Context, id int64) (admin.Row, error)
	CreateFunc func(ctx context.Context, body io.Reader) (admin.Row, error)
	UpdateFunc func(ctx context.Context, id int64, body io.Reader) (admin.Row, error)
	DeleteFunc func(ctx context.Context, id int64) error
}

func (m *MockResource) Name() string             { return m.NameValue }
func (m *MockResource) Label() string            { return "Contact" }
func (m *MockResource) Columns() []string        { return []string{"first_name", "last_name"} }
func (m *MockResource) DisplayColumns() []string { return []string{"last_name"} }
func (m *MockResource) Searchable() bool         { return true }

func (m *MockResource) List(ctx context.Context, q admin.ListQuery) (*admin.ListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	return &admin.ListResult{Columns: m.DisplayColumns(), Rows: []admin.Row{}}, nil
}

func (m *MockResource) Get(ctx context.Context, id int64) (admin.Row, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, apperrors.NotFoundError("contact")
}

func (m *MockResource) Create(ctx context.Context, body io.Reader) (admin.Row, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, body)
	}
	return admin.Row{"id": int64(1)}, nil
}

func (m *MockResource) Update(ctx context.Context, id int64, body io.Reader) (admin.Row, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, body)
	}
	return admin.Row{"id": id}, nil
}

func (m *MockResource) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func createTestAdminHandler(t *testing.T) (*AdminHandler, *MockResource) {
	t.Helper()
	res := &MockResource{NameValue: "contacts"}
	registry := admin.NewRegistry()
	if err := registry.Register(res); err != nil {
		t.Fatalf("Failed to register resource: %v", err)
	}
	return NewAdminHandler(registry, "device-fleet-api", nil), res
}

func adminRequest(method, url string, body io.Reader, vars map[string]string) *http.Request {
	req, _ := http.NewRequest(method, url, body)
	return mux.SetURLVars(req, vars)
}

func TestAdminIndexHandler(t *testing.T) {
	handler, _ := createTestAdminHandler(t)

	rr := httptest.NewRecorder()
	handler.IndexHandler(rr, adminRequest("GET", "/admin/", nil, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}

	var response struct {
		Resources []ResourceSummary `json:"resources"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Resources) != 1 || response.Resources[0].URL != "/admin/contacts/" {
		t.Errorf("Unexpected resources: %+v", response.Resources)
	}
}

func TestAdminListHandler_Success(t *testing.T) {
	handler, res := createTestAdminHandler(t)

	var got admin.ListQuery
	res.ListFunc = func(ctx context.Context, q admin.ListQuery) (*admin.ListResult, error) {
		got = q
		return &admin.ListResult{
			Columns:    []string{"last_name", "phone_number"},
			Rows:       []admin.Row{{"id": int64(4), "last_name": "McAdams"}},
			TotalCount: 21,
		}, nil
	}

	url := "/admin/contacts/?page=2&page_size=10&columns=last_name,%20phone_number&q=Mc&city=Oslo"
	rr := httptest.NewRecorder()
	handler.ListHandler(rr, adminRequest("GET", url, nil, map[string]string{"entity": "contacts"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if got.Offset != 10 || got.Limit != 10 {
		t.Errorf("Expected offset 10 limit 10, got %d %d", got.Offset, got.Limit)
	}
	if len(got.Columns) != 2 || got.Columns[1] != "phone_number" {
		t.Errorf("Unexpected columns: %v", got.Columns)
	}
	if got.Search != "Mc" {
		t.Errorf("Expected search Mc, got %q", got.Search)
	}
	if len(got.Filters) != 1 || got.Filters["city"] != "Oslo" {
		t.Errorf("Expected only the city filter, got %v", got.Filters)
	}

	var response struct {
		Items      []map[string]interface{} `json:"items"`
		Pagination PaginationMeta           `json:"pagination"`
		Columns    []string                 `json:"columns"`
		Entity     string                   `json:"entity"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Entity != "contacts" || len(response.Items) != 1 {
		t.Errorf("Unexpected response: %+v", response)
	}
	if response.Pagination.TotalPages != 3 || !response.Pagination.HasNext {
		t.Errorf("Unexpected pagination: %+v", response.Pagination)
	}
}

func TestAdminListHandler_UnknownEntity(t *testing.T) {
	handler, _ := createTestAdminHandler(t)

	rr := httptest.NewRecorder()
	handler.ListHandler(rr, adminRequest("GET", "/admin/widgets/", nil, map[string]string{"entity": "widgets"}))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestAdminListHandler_BadQuery(t *testing.T) {
	handler, res := createTestAdminHandler(t)
	res.ListFunc = func(ctx context.Context, q admin.ListQuery) (*admin.ListResult, error) {
		return nil, apperrors.InvalidParameterError("columns", "unknown column \"salary\"")
	}

	rr := httptest.NewRecorder()
	handler.ListHandler(rr, adminRequest("GET", "/admin/contacts/?columns=salary", nil, map[string]string{"entity": "contacts"}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if response := decodeError(t, rr); response.Details["columns"] == "" {
		t.Errorf("Expected columns detail, got %v", response.Details)
	}
}

func TestAdminGetHandler(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		getFunc      func(ctx context.Context, id int64) (admin.Row, error)
		expectedCode int
	}{
		{
			name: "Found",
			id:   "5",
			getFunc: func(ctx context.Context, id int64) (admin.Row, error) {
				return admin.Row{"id": id, "last_name": "Doe"}, nil
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing",
			id:           "6",
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "Malformed id",
			id:           "abc",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Zero id",
			id:           "0",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, res := createTestAdminHandler(t)
			res.GetFunc = tt.getFunc

			rr := httptest.NewRecorder()
			vars := map[string]string{"entity": "contacts", "id": tt.id}
			handler.GetHandler(rr, adminRequest("GET", "/admin/contacts/"+tt.id+"/", nil, vars))

			if rr.Code != tt.expectedCode {
				t.Errorf("Expected status code %d, got %d", tt.expectedCode, rr.Code)
			}
		})
	}
}

func TestAdminCreateHandler(t *testing.T) {
	handler, res := createTestAdminHandler(t)

	var received string
	res.CreateFunc = func(ctx context.Context, body io.Reader) (admin.Row, error) {
		b, _ := io.ReadAll(body)
		received = string(b)
		return admin.Row{"id": int64(9)}, nil
	}

	rr := httptest.NewRecorder()
	body := `{"first_name": "Jane", "last_name": "Doe"}`
	handler.CreateHandler(rr, adminRequest("POST", "/admin/contacts/", strings.NewReader(body), map[string]string{"entity": "contacts"}))

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, rr.Code)
	}
	if received != body {
		t.Errorf("Body not passed through: %q", received)
	}

	var response SuccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Message != "Contact created successfully" {
		t.Errorf("Unexpected message %q", response.Message)
	}
}

func TestAdminCreateHandler_Conflict(t *testing.T) {
	handler, res := createTestAdminHandler(t)
	res.CreateFunc = func(ctx context.Context, body io.Reader) (admin.Row, error) {
		return nil, apperrors.UniquenessError("device", "serial_number", nil)
	}

	rr := httptest.NewRecorder()
	handler.CreateHandler(rr, adminRequest("POST", "/admin/contacts/", strings.NewReader("{}"), map[string]string{"entity": "contacts"}))

	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status code %d, got %d", http.StatusConflict, rr.Code)
	}
	if response := decodeError(t, rr); response.Code != "ALREADY_EXISTS" {
		t.Errorf("Expected ALREADY_EXISTS, got %s", response.Code)
	}
}

func TestAdminUpdateHandler(t *testing.T) {
	handler, res := createTestAdminHandler(t)

	var gotID int64
	res.UpdateFunc = func(ctx context.Context, id int64, body io.Reader) (admin.Row, error) {
		gotID = id
		return admin.Row{"id": id}, nil
	}

	rr := httptest.NewRecorder()
	vars := map[string]string{"entity": "contacts", "id": "12"}
	handler.UpdateHandler(rr, adminRequest("PUT", "/admin/contacts/12/", strings.NewReader("{}"), vars))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if gotID != 12 {
		t.Errorf("Expected id 12, got %d", gotID)
	}
}

func TestAdminDeleteHandler(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		handler, _ := createTestAdminHandler(t)

		rr := httptest.NewRecorder()
		vars := map[string]string{"entity": "contacts", "id": "3"}
		handler.DeleteHandler(rr, adminRequest("DELETE", "/admin/contacts/3/", nil, vars))

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		handler, res := createTestAdminHandler(t)
		res.DeleteFunc = func(ctx context.Context, id int64) error {
			return apperrors.NotFoundError("contact")
		}

		rr := httptest.NewRecorder()
		vars := map[string]string{"entity": "contacts", "id": "3"}
		handler.DeleteHandler(rr, adminRequest("DELETE", "/admin/contacts/3/", nil, vars))

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rr.Code)
		}
	})
}

func TestParseColumns(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"", nil},
		{"  ", nil},
		{"name", []string{"name"}},
		{"name, version,,", []string{"name", "version"}},
	}

	for _, tt := range tests {
		got := parseColumns(tt.raw)
		if strings.Join(got, "|") != strings.Join(tt.expected, "|") || len(got) != len(tt.expected) {
			t.Errorf("parseColumns(%q) = %v, want %v", tt.raw, got, tt.expected)
		}
	}
}
