package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"device-fleet-api/internal/model"
)

// Field length caps, matching the varchar sizes of the schema
const (
	ContactFieldMaxLength = 100
	NameMaxLength         = 200
	AddressMaxLength      = 200
	CityMaxLength         = 200
	VersionNameMaxLength  = 100
	HardwareVersionMaxLen = 50
	SoftwareVersionMaxLen = 100
	SerialNumberMaxLength = 200
)

// Constraint names reported with each FieldError
const (
	ConstraintRequired  = "required"
	ConstraintMaxLength = "max_length"
	ConstraintMinValue  = "min_value"
	ConstraintMaxValue  = "max_value"
	ConstraintUnique    = "unique"
)

// FieldError describes one violated constraint on one field.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is the set of field errors found on a record.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Details flattens the errors into field -> message, the shape used by the
// JSON error envelope. When a field has several errors the first one wins.
func (e Errors) Details() map[string]string {
	details := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := details[fe.Field]; !ok {
			details[fe.Field] = fe.Message
		}
	}
	return details
}

// Has reports whether field violated constraint.
func (e Errors) Has(field, constraint string) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Constraint == constraint {
			return true
		}
	}
	return false
}

// Err returns nil for an empty set so callers can `return errs.Err()`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// NewFieldError builds a single-field Errors value.
func NewFieldError(field, constraint, message string) Errors {
	return Errors{{Field: field, Constraint: constraint, Message: message}}
}

func (e *Errors) add(field, constraint, format string, args ...interface{}) {
	*e = append(*e, FieldError{Field: field, Constraint: constraint, Message: fmt.Sprintf(format, args...)})
}

// MaxLength checks a string against a character cap.
func (e *Errors) MaxLength(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		e.add(field, ConstraintMaxLength, "ensure this value has at most %d characters (it has %d)", max, utf8.RuneCountInString(value))
	}
}

// Required checks that a string is not blank.
func (e *Errors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, ConstraintRequired, "this field is required")
	}
}

// Reference checks that a foreign key has been set.
func (e *Errors) Reference(field string, id int64) {
	if id <= 0 {
		e.add(field, ConstraintRequired, "this field is required")
	}
}

// IntRange checks an inclusive integer bound.
func (e *Errors) IntRange(field string, value, min, max int) {
	switch {
	case value < min:
		e.add(field, ConstraintMinValue, "ensure this value is greater than or equal to %d", min)
	case value > max:
		e.add(field, ConstraintMaxValue, "ensure this value is less than or equal to %d", max)
	}
}

// ValidateContact validates a Contact record
func ValidateContact(c *model.Contact) error {
	var errs Errors
	errs.Required("first_name", c.FirstName)
	errs.MaxLength("first_name", c.FirstName, ContactFieldMaxLength)
	errs.Required("last_name", c.LastName)
	errs.MaxLength("last_name", c.LastName, ContactFieldMaxLength)
	errs.MaxLength("phone_number", c.PhoneNumber, ContactFieldMaxLength)
	errs.MaxLength("email_address", c.EmailAddress, ContactFieldMaxLength)
	if c.DateAdded.IsZero() {
		errs.add("date_added", ConstraintRequired, "this field is required")
	}
	return errs.Err()
}

// ValidateCustomerAccount validates a CustomerAccount record
func ValidateCustomerAccount(a *model.CustomerAccount) error {
	var errs Errors
	errs.Required("name", a.Name)
	errs.MaxLength("name", a.Name, NameMaxLength)
	errs.Reference("sales_contact_id", a.SalesContactID)
	return errs.Err()
}

// ValidateSupplier validates a Supplier record
func ValidateSupplier(s *model.Supplier) error {
	var errs Errors
	errs.MaxLength("name", s.Name, NameMaxLength)
	errs.Reference("supply_contact_id", s.SupplyContactID)
	return errs.Err()
}

// ValidatePart validates a Part record
func ValidatePart(p *model.Part) error {
	var errs Errors
	errs.MaxLength("name", p.Name, NameMaxLength)
	errs.Reference("supplier_id", p.SupplierID)
	return errs.Err()
}

// ValidateService validates a Service record
func ValidateService(s *model.Service) error {
	var errs Errors
	errs.MaxLength("name", s.Name, NameMaxLength)
	errs.Reference("supplier_id", s.SupplierID)
	return errs.Err()
}

// ValidateCustomerLocation validates a CustomerLocation record
func ValidateCustomerLocation(l *model.CustomerLocation) error {
	var errs Errors
	errs.MaxLength("address", l.Address, AddressMaxLength)
	errs.MaxLength("city", l.City, CityMaxLength)
	errs.Reference("customer_account_id", l.CustomerAccountID)
	errs.Reference("installation_contact_id", l.InstallationContactID)
	return errs.Err()
}

// ValidateHardwareVersion validates a HardwareVersion record
func ValidateHardwareVersion(h *model.HardwareVersion) error {
	var errs Errors
	errs.MaxLength("name", h.Name, VersionNameMaxLength)
	errs.MaxLength("version", h.Version, HardwareVersionMaxLen)
	return errs.Err()
}

// ValidateSoftwareVersion validates a SoftwareVersion record
func ValidateSoftwareVersion(s *model.SoftwareVersion) error {
	var errs Errors
	errs.MaxLength("name", s.Name, VersionNameMaxLength)
	errs.MaxLength("version", s.Version, SoftwareVersionMaxLen)
	return errs.Err()
}

// ValidateDevice validates a Device record. Serial number uniqueness is
// checked by the store.
func ValidateDevice(d *model.Device) error {
	var errs Errors
	errs.Required("serial_number", d.SerialNumber)
	errs.MaxLength("serial_number", d.SerialNumber, SerialNumberMaxLength)
	errs.Reference("hardware_version_id", d.HardwareVersionID)
	errs.Reference("software_version_id", d.SoftwareVersionID)
	errs.Reference("location_id", d.LocationID)
	if d.RegisterDate.IsZero() {
		errs.add("register_date", ConstraintRequired, "this field is required")
	}
	return errs.Err()
}

// ValidateDeviceData validates a telemetry sample. CPU and memory must both
// lie in [model.MinUsage, model.MaxUsage].
func ValidateDeviceData(d *model.DeviceData) error {
	var errs Errors
	errs.Reference("device_id", d.DeviceID)
	errs.IntRange("cpu", d.CPU, model.MinUsage, model.MaxUsage)
	errs.IntRange("memory", d.Memory, model.MinUsage, model.MaxUsage)
	if d.RecordedAt.IsZero() {
		errs.add("recorded_at", ConstraintRequired, "this field is required")
	}
	return errs.Err()
}
