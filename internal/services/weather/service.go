package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus is matched by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected provider status")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the provider answers with a non-200 status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("OpenWeatherAPI error: status %s", e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// ClientFault reports whether the provider rejected the request itself
// (unknown city, bad key) rather than failing to serve it.
func (e *StatusError) ClientFault() bool {
	return e.Code >= http.StatusBadRequest && e.Code < http.StatusInternalServerError
}
