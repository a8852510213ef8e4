package onebusaway

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindCommunication  ErrorKind = "communication"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// APIError is returned by every Client request that fails
type APIError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(kind ErrorKind, cause error, message string) *APIError {
	return &APIError{
		Kind:    kind,
		Message: message,
		Err:     cause,
	}
}

func kindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return ""
}

func IsAuthentication(err error) bool {
	return kindOf(err) == ErrorKindAuthentication
}

func IsCommunication(err error) bool {
	return kindOf(err) == ErrorKindCommunication
}
