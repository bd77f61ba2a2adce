package gateway

import "errors"

// ErrBackend matches every gateway failure with errors.Is.
var ErrBackend = errors.New("something bad happened; please try again later")

// BackendError is the single failure signal of the gateway. The backend
// offers no error taxonomy, so transport errors and non-2xx responses all
// surface with the same message; Op and Status are kept for logs.
type BackendError struct {
	Op     string
	Status int
	Err    error
}

func (e *BackendError) Error() string {
	return ErrBackend.Error()
}

func (e *BackendError) Unwrap() []error {
	return []error{ErrBackend, e.Err}
}
