// Package cacheerr defines the error taxonomy shared across cachebolt's
// cache, storage, and origin-forwarding packages.
package cacheerr

import "errors"

// Sentinel errors identifying broad failure classes. Use errors.Is to test
// for these; wrap them with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrCacheMiss indicates the requested fingerprint was not present in
	// either cache tier.
	ErrCacheMiss = errors.New("cacheerr: cache miss")

	// ErrAdmissionRejected indicates the admission controller's semaphore
	// was full and the request was rejected without reaching the origin.
	ErrAdmissionRejected = errors.New("cacheerr: admission rejected")

	// ErrDecode indicates a durable record failed to decode (corrupt gzip,
	// invalid JSON, bad base64).
	ErrDecode = errors.New("cacheerr: decode failure")
)

// ConfigError wraps a failure loading or validating configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return "config error (" + e.Path + "): " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BackendInitError wraps a failure constructing a DurableStore backend.
type BackendInitError struct {
	Backend string
	Err     error
}

func (e *BackendInitError) Error() string {
	return "backend init error (" + e.Backend + "): " + e.Err.Error()
}

func (e *BackendInitError) Unwrap() error { return e.Err }

// TransportError wraps a failure reaching or reading from the origin.
type TransportError struct {
	URI string
	Err error
}

func (e *TransportError) Error() string {
	return "transport error (" + e.URI + "): " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// DurableIOError wraps a failure reading from or writing to a durable
// backend, distinct from decode failures.
type DurableIOError struct {
	Backend string
	Op      string
	Err     error
}

func (e *DurableIOError) Error() string {
	return "durable io error (" + e.Backend + " " + e.Op + "): " + e.Err.Error()
}

func (e *DurableIOError) Unwrap() error { return e.Err }
