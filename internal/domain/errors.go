package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrBusy              = errors.New("a dish is already being styled")
	ErrMissingCredential = errors.New("image service API key is not configured")
	ErrNoImageReturned   = errors.New("image service returned no image data")
)

// TransportError reports a failed call to the image service: network
// failure, non-success status, or a malformed response.
type TransportError struct {
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "image service: " + e.Detail
	}
	return "image service: " + e.Detail + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
