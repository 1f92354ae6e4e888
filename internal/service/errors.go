package service

import (
	"context"
	"errors"

	"device-fleet-api/internal/repository"
	apperrors "device-fleet-api/pkg/errors"
	"device-fleet-api/pkg/validation"
)

// MapStoreError converts a repository error into an AppError. resource names
// the record kind in user-facing messages. Errors that already are AppErrors
// pass through untouched.
func MapStoreError(err error, resource string) error {
	if err == nil {
		return nil
	}

	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return apperrors.NewAppErrorWithCause(apperrors.ErrorCodeValidation, "Validation failed", err).
			WithFieldDetails(verrs.Details())
	case errors.Is(err, repository.ErrDuplicateSerial):
		return apperrors.UniquenessError(resource, "serial_number", err)
	case errors.Is(err, repository.ErrNoSamples):
		return apperrors.NewAppErrorWithCause(apperrors.ErrorCodeNotFound, "no telemetry recorded for device", err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFoundErrorWithCause(resource, err)
	case errors.Is(err, repository.ErrInvalidReference):
		return apperrors.InvalidReferenceError("referenced record does not exist", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.TimeoutErrorWithCause(resource+" query", err)
	}

	return apperrors.DatabaseError("failed to access "+resource, err)
}
