package messages

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaLoad matches every *SchemaLoadError.
	ErrSchemaLoad = errors.New("schema load failed")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedMessage is returned by a Router that has neither a handler
	// nor a default for the dispatched message type.
	ErrUnsupportedMessage = errors.New("unsupported message type")
	// ErrUnexpectedMessage is returned by routers built with Expect when any
	// other message type arrives.
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

// SchemaLoadError reports a schema document that could not be read, parsed or
// indexed. It is fatal: callers surface it and stop.
type SchemaLoadError struct {
	Path string
	Err  error
}

func (e *SchemaLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load schema: %v", e.Err)
	}
	return fmt.Sprintf("load schema %s: %v", e.Path, e.Err)
}

func (e *SchemaLoadError) Unwrap() error { return e.Err }

func (e *SchemaLoadError) Is(target error) bool { return target == ErrSchemaLoad }

// ValidationError reports a malformed or unknown identifier or payload passed
// to a registry operation.
type ValidationError struct {
	Op     string // operation that rejected the input, e.g. "MessageTypeToWireName"
	Value  string // offending input, may be empty
	Reason string
	// NotFound is set when the input was well formed but is not in the schema.
	NotFound bool
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(op, value, reason string) *ValidationError {
	return &ValidationError{Op: op, Value: value, Reason: reason}
}

func notFound(op, value, reason string) *ValidationError {
	return &ValidationError{Op: op, Value: value, Reason: reason, NotFound: true}
}

// IsNotFound reports whether err is a ValidationError for a well-formed name
// that the schema does not define.
func IsNotFound(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.NotFound
}
