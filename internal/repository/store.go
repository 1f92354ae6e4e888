package repository

import (
	"database/sql"
	"time"

	"device-fleet-api/internal/model"
	"device-fleet-api/pkg/validation"
)

// Store groups the table accessors of every entity.
type Store struct {
	DB *sql.DB

	Contacts          *Table[model.Contact]
	CustomerAccounts  *Table[model.CustomerAccount]
	Suppliers         *Table[model.Supplier]
	Parts             *Table[model.Part]
	Services          *Table[model.Service]
	CustomerLocations *Table[model.CustomerLocation]
	HardwareVersions  *Table[model.HardwareVersion]
	SoftwareVersions  *Table[model.SoftwareVersion]
	Devices           *Table[model.Device]
	DeviceData        *Table[model.DeviceData]
}

// NewStore creates a new Store backed by db
func NewStore(db *sql.DB) *Store {
	return &Store{
		DB: db,

		Contacts: &Table[model.Contact]{
			DB:       db,
			name:     "contacts",
			resource: "contact",
			columns:  []string{"first_name", "last_name", "phone_number", "email_address", "date_added"},
			orderBy:  "date_added ASC, id ASC",
			scan: func(row rowScanner, c *model.Contact) error {
				return row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.PhoneNumber, &c.EmailAddress, &c.DateAdded)
			},
			values: func(c *model.Contact) []interface{} {
				return []interface{}{c.FirstName, c.LastName, c.PhoneNumber, c.EmailAddress, c.DateAdded.UTC()}
			},
			setID:    func(c *model.Contact, id int64) { c.ID = id },
			validate: validation.ValidateContact,
		},

		CustomerAccounts: &Table[model.CustomerAccount]{
			DB:       db,
			name:     "customer_accounts",
			resource: "customer account",
			columns:  []string{"name", "sales_contact_id"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, a *model.CustomerAccount) error {
				return row.Scan(&a.ID, &a.Name, &a.SalesContactID)
			},
			values: func(a *model.CustomerAccount) []interface{} {
				return []interface{}{a.Name, a.SalesContactID}
			},
			setID:    func(a *model.CustomerAccount, id int64) { a.ID = id },
			validate: validation.ValidateCustomerAccount,
		},

		Suppliers: &Table[model.Supplier]{
			DB:       db,
			name:     "suppliers",
			resource: "supplier",
			columns:  []string{"name", "supply_contact_id"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, s *model.Supplier) error {
				return row.Scan(&s.ID, &s.Name, &s.SupplyContactID)
			},
			values: func(s *model.Supplier) []interface{} {
				return []interface{}{s.Name, s.SupplyContactID}
			},
			setID:    func(s *model.Supplier, id int64) { s.ID = id },
			validate: validation.ValidateSupplier,
		},

		Parts: &Table[model.Part]{
			DB:       db,
			name:     "parts",
			resource: "part",
			columns:  []string{"name", "supplier_id"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, p *model.Part) error {
				return row.Scan(&p.ID, &p.Name, &p.SupplierID)
			},
			values: func(p *model.Part) []interface{} {
				return []interface{}{p.Name, p.SupplierID}
			},
			setID:    func(p *model.Part, id int64) { p.ID = id },
			validate: validation.ValidatePart,
		},

		Services: &Table[model.Service]{
			DB:       db,
			name:     "services",
			resource: "service",
			columns:  []string{"name", "supplier_id"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, s *model.Service) error {
				return row.Scan(&s.ID, &s.Name, &s.SupplierID)
			},
			values: func(s *model.Service) []interface{} {
				return []interface{}{s.Name, s.SupplierID}
			},
			setID:    func(s *model.Service, id int64) { s.ID = id },
			validate: validation.ValidateService,
		},

		CustomerLocations: &Table[model.CustomerLocation]{
			DB:       db,
			name:     "customer_locations",
			resource: "customer location",
			columns:  []string{"address", "city", "customer_account_id", "installation_contact_id"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, l *model.CustomerLocation) error {
				return row.Scan(&l.ID, &l.Address, &l.City, &l.CustomerAccountID, &l.InstallationContactID)
			},
			values: func(l *model.CustomerLocation) []interface{} {
				return []interface{}{l.Address, l.City, l.CustomerAccountID, l.InstallationContactID}
			},
			setID:    func(l *model.CustomerLocation, id int64) { l.ID = id },
			validate: validation.ValidateCustomerLocation,
		},

		// Versions compare as strings, so "10" sorts before "9".
		HardwareVersions: &Table[model.HardwareVersion]{
			DB:       db,
			name:     "hardware_versions",
			resource: "hardware version",
			columns:  []string{"name", "version"},
			orderBy:  "version DESC, id ASC",
			scan: func(row rowScanner, h *model.HardwareVersion) error {
				return row.Scan(&h.ID, &h.Name, &h.Version)
			},
			values: func(h *model.HardwareVersion) []interface{} {
				return []interface{}{h.Name, h.Version}
			},
			setID:    func(h *model.HardwareVersion, id int64) { h.ID = id },
			validate: validation.ValidateHardwareVersion,
		},

		SoftwareVersions: &Table[model.SoftwareVersion]{
			DB:       db,
			name:     "software_versions",
			resource: "software version",
			columns:  []string{"name", "version"},
			orderBy:  "id ASC",
			scan: func(row rowScanner, s *model.SoftwareVersion) error {
				return row.Scan(&s.ID, &s.Name, &s.Version)
			},
			values: func(s *model.SoftwareVersion) []interface{} {
				return []interface{}{s.Name, s.Version}
			},
			setID:    func(s *model.SoftwareVersion, id int64) { s.ID = id },
			validate: validation.ValidateSoftwareVersion,
		},

		Devices: &Table[model.Device]{
			DB:       db,
			name:     "devices",
			resource: "device",
			columns:  []string{"serial_number", "hardware_version_id", "software_version_id", "location_id", "register_date"},
			orderBy:  "id ASC",
			scan:     scanDevice,
			values: func(d *model.Device) []interface{} {
				return []interface{}{d.SerialNumber, d.HardwareVersionID, d.SoftwareVersionID, d.LocationID, d.RegisterDate.UTC()}
			},
			setID:    func(d *model.Device, id int64) { d.ID = id },
			validate: validation.ValidateDevice,
		},

		DeviceData: &Table[model.DeviceData]{
			DB:       db,
			name:     "device_data",
			resource: "device data",
			columns:  []string{"device_id", "recorded_at", "cpu", "memory"},
			orderBy:  "id ASC",
			scan:     scanDeviceData,
			values: func(d *model.DeviceData) []interface{} {
				return []interface{}{d.DeviceID, d.RecordedAt.UTC(), d.CPU, d.Memory}
			},
			setID:    func(d *model.DeviceData, id int64) { d.ID = id },
			validate: validation.ValidateDeviceData,
		},
	}
}

func scanDevice(row rowScanner, d *model.Device) error {
	var registered time.Time
	if err := row.Scan(&d.ID, &d.SerialNumber, &d.HardwareVersionID, &d.SoftwareVersionID, &d.LocationID, &registered); err != nil {
		return err
	}
	d.RegisterDate = registered.UTC()
	return nil
}

func scanDeviceData(row rowScanner, d *model.DeviceData) error {
	var recorded time.Time
	if err := row.Scan(&d.ID, &d.DeviceID, &recorded, &d.CPU, &d.Memory); err != nil {
		return err
	}
	d.RecordedAt = recorded.UTC()
	return nil
}
