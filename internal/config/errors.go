package config

import "errors"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidAddr is returned when the listen address is empty.
	ErrInvalidAddr = errors.New("listen address must not be empty")

	// ErrInvalidDelay is returned when a simulated delay is negative.
	ErrInvalidDelay = errors.New("simulated delays must not be negative")

	// ErrInvalidSessionTTL is returned when the session TTL is negative.
	ErrInvalidSessionTTL = errors.New("session ttl must not be negative")
)
