package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tables in dependency order. Dropping or truncating should walk it backwards.
var Tables = []string{
	"contacts",
	"customer_accounts",
	"suppliers",
	"parts",
	"services",
	"customer_locations",
	"hardware_versions",
	"software_versions",
	"devices",
	"device_data",
}

// Schema creates every table idempotently. Each foreign key cascades on
// delete so removing a parent removes its dependents.
const Schema = `
CREATE TABLE IF NOT EXISTS contacts (
    id            BIGSERIAL PRIMARY KEY,
    first_name    VARCHAR(100) NOT NULL,
    last_name     VARCHAR(100) NOT NULL,
    phone_number  VARCHAR(100) NOT NULL DEFAULT '',
    email_address VARCHAR(100) NOT NULL DEFAULT '',
    date_added    TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS contacts_date_added_idx ON contacts (date_added);
CREATE INDEX IF NOT EXISTS contacts_last_name_idx ON contacts (last_name varchar_pattern_ops);

CREATE TABLE IF NOT EXISTS customer_accounts (
    id               BIGSERIAL PRIMARY KEY,
    name             VARCHAR(200) NOT NULL CHECK (name <> ''),
    sales_contact_id BIGINT       NOT NULL REFERENCES contacts (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS suppliers (
    id                BIGSERIAL PRIMARY KEY,
    name              VARCHAR(200) NOT NULL,
    supply_contact_id BIGINT       NOT NULL REFERENCES contacts (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS parts (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(200) NOT NULL,
    supplier_id BIGINT       NOT NULL REFERENCES suppliers (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS services (
    id          BIGSERIAL PRIMARY KEY,
    name        VARCHAR(200) NOT NULL,
    supplier_id BIGINT       NOT NULL REFERENCES suppliers (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS customer_locations (
    id                      BIGSERIAL PRIMARY KEY,
    address                 VARCHAR(200) NOT NULL,
    city                    VARCHAR(200) NOT NULL,
    customer_account_id     BIGINT       NOT NULL REFERENCES customer_accounts (id) ON DELETE CASCADE,
    installation_contact_id BIGINT       NOT NULL REFERENCES contacts (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS hardware_versions (
    id      BIGSERIAL PRIMARY KEY,
    name    VARCHAR(100) NOT NULL,
    version VARCHAR(50)  NOT NULL
);

CREATE TABLE IF NOT EXISTS software_versions (
    id      BIGSERIAL PRIMARY KEY,
    name    VARCHAR(100) NOT NULL,
    version VARCHAR(100) NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
    id                  BIGSERIAL PRIMARY KEY,
    serial_number       VARCHAR(200) NOT NULL,
    hardware_version_id BIGINT       NOT NULL REFERENCES hardware_versions (id) ON DELETE CASCADE,
    software_version_id BIGINT       NOT NULL REFERENCES software_versions (id) ON DELETE CASCADE,
    location_id         BIGINT       NOT NULL REFERENCES customer_locations (id) ON DELETE CASCADE,
    register_date       TIMESTAMPTZ  NOT NULL,
    CONSTRAINT devices_serial_number_key UNIQUE (serial_number)
);

CREATE TABLE IF NOT EXISTS device_data (
    id          BIGSERIAL PRIMARY KEY,
    device_id   BIGINT      NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
    recorded_at TIMESTAMPTZ NOT NULL,
    cpu         INTEGER     NOT NULL DEFAULT 1
        CONSTRAINT device_data_cpu_min CHECK (cpu >= 1)
        CONSTRAINT device_data_cpu_max CHECK (cpu <= 100),
    memory      INTEGER     NOT NULL DEFAULT 1
        CONSTRAINT device_data_memory_min CHECK (memory >= 1)
        CONSTRAINT device_data_memory_max CHECK (memory <= 100)
);
CREATE INDEX IF NOT EXISTS device_data_latest_idx ON device_data (device_id, recorded_at DESC, id DESC);
`

// EnsureSchema applies Schema inside a single transaction.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	return nil
}
