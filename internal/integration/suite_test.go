package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"device-fleet-api/internal/admin"
	"device-fleet-api/internal/config"
	"device-fleet-api/internal/database"
	"device-fleet-api/internal/handler"
	"device-fleet-api/internal/metrics"
	"device-fleet-api/internal/model"
	"device-fleet-api/internal/repository"
	"device-fleet-api/internal/router"
	"device-fleet-api/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// IntegrationTestSuite wires the real stack against a PostgreSQL database
type IntegrationTestSuite struct {
	DB      *sql.DB
	Store   *repository.Store
	Metrics *metrics.Metrics
	Handler http.Handler
}

func setupIntegrationTest(t *testing.T) *IntegrationTestSuite {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := loadTestConfig(t)
	db := initTestDatabase(t, cfg)

	require.NoError(t, database.EnsureSchema(context.Background(), db))
	cleanDatabase(t, db)

	store := repository.NewStore(db)
	m := metrics.New("integration")
	log := zap.NewNop()

	telemetry := service.NewTelemetryService(repository.NewTelemetryRepository(store), m, log)
	registry, err := admin.NewFleetRegistry(store, m)
	require.NoError(t, err)

	h := router.NewRouter(router.Handlers{
		Telemetry: handler.NewTelemetryHandler(telemetry, "integration", log),
		Admin:     handler.NewAdminHandler(registry, "integration", log),
		Health:    handler.NewHealthHandler(db, "integration", log),
	}, cfg, m, log)

	suite := &IntegrationTestSuite{DB: db, Store: store, Metrics: m, Handler: h}
	t.Cleanup(func() {
		cleanDatabase(t, db)
		db.Close()
	})
	return suite
}

// loadTestConfig builds the configuration from TEST_DB_* variables
func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5452"))
	require.NoError(t, err)

	return &config.Config{
		Port:        8080,
		LogLevel:    "info",
		ServiceName: "integration",
		Database: config.DatabaseConfig{
			Host:         getEnv("TEST_DB_HOST", "127.0.0.1"),
			Port:         port,
			User:         getEnv("TEST_DB_USER", "postgres"),
			Password:     getEnv("TEST_DB_PASSWORD", "postgres"),
			Name:         getEnv("TEST_DB_NAME", "postgres"),
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 5,
		},
		Security: config.SecurityConfig{
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
			RequestTimeout: 10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Server:  config.ServerConfig{MaxBodyBytes: 1 << 20},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics", Prefix: "integration"},
	}
}

func initTestDatabase(t *testing.T, cfg *config.Config) *sql.DB {
	t.Helper()

	db, err := database.InitDB(cfg)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v. Ensure test database is running.", err)
	}
	return db
}

// cleanDatabase removes all rows and resets identities
func cleanDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	stmt := "TRUNCATE TABLE " + strings.Join(database.Tables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := db.Exec(stmt); err != nil {
		t.Logf("Warning: Failed to clean database: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (s *IntegrationTestSuite) do(t *testing.T, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func parseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), target), "body: %s", rr.Body.String())
}

// fleet is a minimal set of related records with one device
type fleet struct {
	Contact  *model.Contact
	Account  *model.CustomerAccount
	Location *model.CustomerLocation
	Hardware *model.HardwareVersion
	Software *model.SoftwareVersion
	Device   *model.Device
}

func (s *IntegrationTestSuite) seedFleet(t *testing.T, serial string) *fleet {
	t.Helper()
	ctx := context.Background()

	f := &fleet{
		Contact: &model.Contact{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			PhoneNumber: "555-0100",
			DateAdded:   time.Now().UTC(),
		},
		Hardware: &model.HardwareVersion{Name: "Board", Version: "2.0"},
		Software: &model.SoftwareVersion{Name: "Firmware", Version: "1.4.2"},
	}
	require.NoError(t, s.Store.Contacts.Create(ctx, f.Contact))

	f.Account = &model.CustomerAccount{Name: "Acme", SalesContactID: f.Contact.ID}
	require.NoError(t, s.Store.CustomerAccounts.Create(ctx, f.Account))

	f.Location = &model.CustomerLocation{
		Address:               "1 Main St",
		City:                  "Springfield",
		CustomerAccountID:     f.Account.ID,
		InstallationContactID: f.Contact.ID,
	}
	require.NoError(t, s.Store.CustomerLocations.Create(ctx, f.Location))
	require.NoError(t, s.Store.HardwareVersions.Create(ctx, f.Hardware))
	require.NoError(t, s.Store.SoftwareVersions.Create(ctx, f.Software))

	f.Device = &model.Device{
		SerialNumber:      serial,
		HardwareVersionID: f.Hardware.ID,
		SoftwareVersionID: f.Software.ID,
		LocationID:        f.Location.ID,
		RegisterDate:      time.Now().UTC(),
	}
	require.NoError(t, s.Store.Devices.Create(ctx, f.Device))

	return f
}

func (s *IntegrationTestSuite) count(t *testing.T, table string, where string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE "+where, args...).Scan(&n))
	return n
}
