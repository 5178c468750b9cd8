package contract

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrSchemaViolation  = errors.New("model response violates schema")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStoreUnavailable = errors.New("persistence store unavailable")
)
