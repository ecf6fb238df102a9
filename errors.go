package prometheus

import "errors"

// Sentinel errors for common failure scenarios.
var (
	// Store errors
	ErrGuildNotFound   = errors.New("prometheus: guild not found")
	ErrWelcomeNotFound = errors.New("prometheus: welcome settings not found")
	ErrAlreadyExists   = errors.New("prometheus: already exists")
	ErrStoreClosed     = errors.New("prometheus: store is closed")
	ErrMigrationFailed = errors.New("prometheus: migration failed")

	// Cache errors
	ErrCacheMiss = errors.New("prometheus: cache miss")

	// Config errors
	ErrConfigCreated = errors.New("prometheus: default config written, fill it in and restart")
	ErrConfigUnset   = errors.New("prometheus: config still holds the default values")

	// Upstream service errors
	ErrClassifier = errors.New("prometheus: intent classification failed")
	ErrLinkCheck  = errors.New("prometheus: link check failed")

	// Wiring errors
	ErrNoPlatform = errors.New("prometheus: no platform configured")
)

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGuildNotFound) ||
		errors.Is(err, ErrWelcomeNotFound) ||
		errors.Is(err, ErrCacheMiss)
}

// IsAlreadyExists reports whether err is a duplicate-key error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsUpstream reports whether err came from an outbound HTTP service.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrClassifier) || errors.Is(err, ErrLinkCheck)
}
