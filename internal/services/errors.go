package services

import (
	"errors"

	"github.com/fathima-sithara/konga-enrollment/internal/utils"
)

var (
	ErrForbidden           = errors.New("forbidden")
	ErrEmailTaken          = errors.New("email already enrolled")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotRelinkable       = errors.New("enrollee is not awaiting a relink")
	ErrPaymentNotCollected = errors.New("payment has not been collected")
	ErrInvalidTeam         = errors.New("team must be left, right or none")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInternal            = errors.New("internal error")
)

// ValidationError carries every failing field of a payload.
type ValidationError struct {
	Fields []utils.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Fields[0].Message
}

func validationErr(err error) error {
	fields := utils.FormatValidationErrors(err)
	if fields == nil {
		return err
	}
	return &ValidationError{Fields: fields}
}
