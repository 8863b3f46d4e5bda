// Package idgen wraps the UUID generator so that task identifiers can be
// stubbed in tests. Callers should treat identifiers as opaque strings.
package idgen
