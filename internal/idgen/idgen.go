package idgen

import "github.com/google/uuid"

// NewFunc generates a raw identifier. Override in tests for determinism.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// WithPrefix returns a new identifier qualified by prefix, e.g. "task/<uuid>".
func WithPrefix(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "/" + New()
}
