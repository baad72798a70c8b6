// Package services defines the shared error taxonomy used across pipeline
// components. Errors are tagged with sentinel markers so callers can classify
// failures (transient vs permanent, validation vs configuration) without
// string matching.
package services
