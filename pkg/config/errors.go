package config

import "fmt"

// NotFoundError indicates that no override file exists for the requested
// environment in the resolver's config directory.
type NotFoundError struct {
	Environment string
	Dir         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration for environment %q not found in %s", e.Environment, e.Dir)
}

// ParseError indicates that an override file exists but could not be parsed.
// A malformed file is never silently replaced by defaults.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse configuration file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
