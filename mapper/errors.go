package mapper

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is matched by every UnsupportedOperationError
	ErrUnsupportedOperation = errors.New("operation is not supported by the gateway")

	// ErrUnknownGateway is returned when no mapper is registered for an identifier
	ErrUnknownGateway = errors.New("gateway is not registered")

	// ErrUnknownOperation is returned by the service for an operation name it cannot dispatch
	ErrUnknownOperation = errors.New("unknown operation")
)

// UnsupportedOperationError signals that the bank API has no endpoint for the operation.
// It is an integration error, not a declined transaction.
type UnsupportedOperationError struct {
	Gateway   string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", e.Gateway, e.Operation)
}

// Is makes errors.Is(err, ErrUnsupportedOperation) true
func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// NotSupported builds the error returned by mapper methods the bank does not implement
func NotSupported(gateway, operation string) error {
	return &UnsupportedOperationError{Gateway: gateway, Operation: operation}
}

// IsUnsupported reports whether err signals an unsupported operation
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}
