package repository

import (
	"errors"
	"fmt"

	"device-fleet-api/pkg/validation"

	"github.com/lib/pq"
)

// Custom errors for better error handling
var (
	ErrNotFound         = errors.New("record not found")
	ErrNoSamples        = fmt.Errorf("%w: device has no telemetry samples", ErrNotFound)
	ErrDuplicateSerial  = errors.New("device with this serial number already exists")
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// PostgreSQL error codes the store translates
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqStringTooLong       = "22001"
)

// checkConstraintFields maps named CHECK constraints of the schema to the
// field they guard.
var checkConstraintFields = map[string]validation.FieldError{
	"device_data_cpu_min":          {Field: "cpu", Constraint: validation.ConstraintMinValue, Message: "ensure this value is greater than or equal to 1"},
	"device_data_cpu_max":          {Field: "cpu", Constraint: validation.ConstraintMaxValue, Message: "ensure this value is less than or equal to 100"},
	"device_data_memory_min":       {Field: "memory", Constraint: validation.ConstraintMinValue, Message: "ensure this value is greater than or equal to 1"},
	"device_data_memory_max":       {Field: "memory", Constraint: validation.ConstraintMaxValue, Message: "ensure this value is less than or equal to 100"},
	"customer_accounts_name_check": {Field: "name", Constraint: validation.ConstraintRequired, Message: "this field is required"},
}

// translateError turns driver errors into the package's error kinds. Anything
// it does not recognise is wrapped with the operation that failed.
func translateError(err error, op string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		if pqErr.Constraint == "devices_serial_number_key" {
			return fmt.Errorf("%w: %s", ErrDuplicateSerial, pqErr.Detail)
		}
		return validation.NewFieldError(pqErr.Column, validation.ConstraintUnique, pqErr.Message)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInvalidReference, pqErr.Detail)
	case pqCheckViolation:
		if fe, ok := checkConstraintFields[pqErr.Constraint]; ok {
			return validation.Errors{fe}
		}
		return validation.NewFieldError(pqErr.Column, pqErr.Constraint, pqErr.Message)
	case pqStringTooLong:
		return validation.NewFieldError(pqErr.Column, validation.ConstraintMaxLength, pqErr.Message)
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
