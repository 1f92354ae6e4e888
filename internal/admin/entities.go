package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"device-fleet-api/internal/model"
	"device-fleet-api/internal/repository"
)

// Entity names as they appear in URLs
const (
	EntityContacts          = "contacts"
	EntityCustomerAccounts  = "customer-accounts"
	EntitySuppliers         = "suppliers"
	EntityParts             = "parts"
	EntityServices          = "services"
	EntityCustomerLocations = "customer-locations"
	EntityHardwareVersions  = "hardware-versions"
	EntitySoftwareVersions  = "software-versions"
	EntityDevices           = "devices"
	EntityDeviceData        = "device-data"
)

// NewFleetRegistry registers every entity of the store.
func NewFleetRegistry(store *repository.Store, observer Observer) (*Registry, error) {
	reg := NewRegistry()

	resources := []Resource{
		contactsResource(store, observer),
		customerAccountsResource(store, observer),
		suppliersResource(store, observer),
		partsResource(store, observer),
		servicesResource(store, observer),
		customerLocationsResource(store, observer),
		hardwareVersionsResource(store, observer),
		softwareVersionsResource(store, observer),
		devicesResource(store, observer),
		deviceDataResource(store, observer),
	}

	for _, res := range resources {
		if err := reg.Register(res); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func contactPhone(c *model.Contact) interface{} {
	return model.ContactPhone(c)
}

func stringOf[R fmt.Stringer](rel R) interface{} {
	return rel.String()
}

func contactsResource(store *repository.Store, observer Observer) *Entity[model.Contact] {
	return &Entity[model.Contact]{
		name:  EntityContacts,
		label: "contact",
		table: store.Contacts,
		id:    func(c *model.Contact) int64 { return c.ID },
		columns: []Column[model.Contact]{
			display[model.Contact](),
			field("first_name", func(c *model.Contact) interface{} { return c.FirstName }),
			field("last_name", func(c *model.Contact) interface{} { return c.LastName }),
			field("phone_number", func(c *model.Contact) interface{} { return c.PhoneNumber }),
			field("email_address", func(c *model.Contact) interface{} { return c.EmailAddress }),
			field("date_added", func(c *model.Contact) interface{} { return c.DateAdded }),
		},
		display:  []string{"last_name", "first_name", "phone_number", "email_address", "date_added"},
		search:   "last_name",
		observer: observer,
	}
}

func customerAccountsResource(store *repository.Store, observer Observer) *Entity[model.CustomerAccount] {
	salesContact := func(a *model.CustomerAccount) int64 { return a.SalesContactID }

	return &Entity[model.CustomerAccount]{
		name:  EntityCustomerAccounts,
		label: "customer account",
		table: store.CustomerAccounts,
		id:    func(a *model.CustomerAccount) int64 { return a.ID },
		columns: []Column[model.CustomerAccount]{
			display[model.CustomerAccount](),
			field("name", func(a *model.CustomerAccount) interface{} { return a.Name }),
			field("sales_contact_id", func(a *model.CustomerAccount) interface{} { return a.SalesContactID }),
			related("sales_contact", store.Contacts, salesContact, stringOf[*model.Contact]),
			related("contact_number", store.Contacts, salesContact, contactPhone),
		},
		display:  []string{"name", "sales_contact", "contact_number"},
		observer: observer,
	}
}

func suppliersResource(store *repository.Store, observer Observer) *Entity[model.Supplier] {
	return &Entity[model.Supplier]{
		name:  EntitySuppliers,
		label: "supplier",
		table: store.Suppliers,
		id:    func(s *model.Supplier) int64 { return s.ID },
		columns: []Column[model.Supplier]{
			display[model.Supplier](),
			field("name", func(s *model.Supplier) interface{} { return s.Name }),
			field("supply_contact_id", func(s *model.Supplier) interface{} { return s.SupplyContactID }),
		},
		display:  []string{"display"},
		observer: observer,
	}
}

func partsResource(store *repository.Store, observer Observer) *Entity[model.Part] {
	return &Entity[model.Part]{
		name:  EntityParts,
		label: "part",
		table: store.Parts,
		id:    func(p *model.Part) int64 { return p.ID },
		columns: []Column[model.Part]{
			display[model.Part](),
			field("name", func(p *model.Part) interface{} { return p.Name }),
			field("supplier_id", func(p *model.Part) interface{} { return p.SupplierID }),
		},
		display:  []string{"display"},
		observer: observer,
	}
}

func servicesResource(store *repository.Store, observer Observer) *Entity[model.Service] {
	return &Entity[model.Service]{
		name:  EntityServices,
		label: "service",
		table: store.Services,
		id:    func(s *model.Service) int64 { return s.ID },
		columns: []Column[model.Service]{
			display[model.Service](),
			field("name", func(s *model.Service) interface{} { return s.Name }),
			field("supplier_id", func(s *model.Service) interface{} { return s.SupplierID }),
		},
		display:  []string{"display"},
		observer: observer,
	}
}

func customerLocationsResource(store *repository.Store, observer Observer) *Entity[model.CustomerLocation] {
	installer := func(l *model.CustomerLocation) int64 { return l.InstallationContactID }

	return &Entity[model.CustomerLocation]{
		name:  EntityCustomerLocations,
		label: "customer location",
		table: store.CustomerLocations,
		id:    func(l *model.CustomerLocation) int64 { return l.ID },
		columns: []Column[model.CustomerLocation]{
			display[model.CustomerLocation](),
			field("address", func(l *model.CustomerLocation) interface{} { return l.Address }),
			field("city", func(l *model.CustomerLocation) interface{} { return l.City }),
			field("customer_account_id", func(l *model.CustomerLocation) interface{} { return l.CustomerAccountID }),
			field("installation_contact_id", func(l *model.CustomerLocation) interface{} { return l.InstallationContactID }),
			related("partner", store.CustomerAccounts,
				func(l *model.CustomerLocation) int64 { return l.CustomerAccountID }, stringOf[*model.CustomerAccount]),
			related("installation_contact", store.Contacts, installer, stringOf[*model.Contact]),
			related("install_contact_number", store.Contacts, installer, contactPhone),
		},
		display:  []string{"partner", "address", "installation_contact", "install_contact_number"},
		observer: observer,
	}
}

func hardwareVersionsResource(store *repository.Store, observer Observer) *Entity[model.HardwareVersion] {
	return &Entity[model.HardwareVersion]{
		name:  EntityHardwareVersions,
		label: "hardware version",
		table: store.HardwareVersions,
		id:    func(h *model.HardwareVersion) int64 { return h.ID },
		columns: []Column[model.HardwareVersion]{
			display[model.HardwareVersion](),
			field("name", func(h *model.HardwareVersion) interface{} { return h.Name }),
			field("version", func(h *model.HardwareVersion) interface{} { return h.Version }),
		},
		display:  []string{"name", "version"},
		observer: observer,
	}
}

func softwareVersionsResource(store *repository.Store, observer Observer) *Entity[model.SoftwareVersion] {
	return &Entity[model.SoftwareVersion]{
		name:  EntitySoftwareVersions,
		label: "software version",
		table: store.SoftwareVersions,
		id:    func(s *model.SoftwareVersion) int64 { return s.ID },
		columns: []Column[model.SoftwareVersion]{
			display[model.SoftwareVersion](),
			field("name", func(s *model.SoftwareVersion) interface{} { return s.Name }),
			field("version", func(s *model.SoftwareVersion) interface{} { return s.Version }),
		},
		display:  []string{"name", "version"},
		observer: observer,
	}
}

// deviceLabel is the display form of a device, which includes its location.
func deviceLabel(store *repository.Store) func(ctx context.Context, d *model.Device) (string, error) {
	return func(ctx context.Context, d *model.Device) (string, error) {
		if d.Location == nil {
			loc, err := store.CustomerLocations.Get(ctx, d.LocationID)
			if err != nil {
				return "", err
			}
			d.Location = loc
		}
		return d.String(), nil
	}
}

func devicesResource(store *repository.Store, observer Observer) *Entity[model.Device] {
	label := deviceLabel(store)

	return &Entity[model.Device]{
		name:  EntityDevices,
		label: "device",
		table: store.Devices,
		id:    func(d *model.Device) int64 { return d.ID },
		columns: []Column[model.Device]{
			{
				Name: "display",
				Value: func(ctx context.Context, d *model.Device) (interface{}, error) {
					return label(ctx, d)
				},
			},
			field("serial_number", func(d *model.Device) interface{} { return d.SerialNumber }),
			field("hardware_version_id", func(d *model.Device) interface{} { return d.HardwareVersionID }),
			field("software_version_id", func(d *model.Device) interface{} { return d.SoftwareVersionID }),
			field("location_id", func(d *model.Device) interface{} { return d.LocationID }),
			field("register_date", func(d *model.Device) interface{} { return d.RegisterDate }),
			related("model", store.HardwareVersions,
				func(d *model.Device) int64 { return d.HardwareVersionID }, stringOf[*model.HardwareVersion]),
			related("software", store.SoftwareVersions,
				func(d *model.Device) int64 { return d.SoftwareVersionID }, stringOf[*model.SoftwareVersion]),
			link("location_link", EntityCustomerLocations, store.CustomerLocations,
				func(d *model.Device) int64 { return d.LocationID }, stringLabel[model.CustomerLocation]),
		},
		display: []string{"serial_number", "model", "software", "register_date", "location_link"},
		filters: map[string]FilterSpec{
			"model": {Column: "hardware_version_id", Parse: parseID},
		},
		// The location is always loaded from the store, never taken from input.
		prepare:  func(d *model.Device) { d.Location = nil },
		observer: observer,
	}
}

func deviceDataResource(store *repository.Store, observer Observer) *Entity[model.DeviceData] {
	return &Entity[model.DeviceData]{
		name:  EntityDeviceData,
		label: "device data",
		table: store.DeviceData,
		id:    func(d *model.DeviceData) int64 { return d.ID },
		columns: []Column[model.DeviceData]{
			display[model.DeviceData](),
			field("device_id", func(d *model.DeviceData) interface{} { return d.DeviceID }),
			field("recorded_at", func(d *model.DeviceData) interface{} { return d.RecordedAt }),
			field("cpu", func(d *model.DeviceData) interface{} { return d.CPU }),
			field("memory", func(d *model.DeviceData) interface{} { return d.Memory }),
			link("device_link", EntityDevices, store.Devices,
				func(d *model.DeviceData) int64 { return d.DeviceID }, deviceLabel(store)),
		},
		display: []string{"recorded_at", "device_link", "cpu", "memory"},
		filters: map[string]FilterSpec{
			"device": {Column: "device_id", Parse: parseID},
		},
		defaults: (*model.DeviceData).ApplyDefaults,
		prepare: func(d *model.DeviceData) {
			if d.RecordedAt.IsZero() {
				d.RecordedAt = time.Now().UTC()
			}
		},
		observer: observer,
	}
}

func parseID(raw string) (interface{}, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%q is not a valid id", raw)
	}
	return id, nil
}
