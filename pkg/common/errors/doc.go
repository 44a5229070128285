// Package errors defines the sentinel and structured errors shared by the
// fanflow packages.
//
// Argument problems are reported as *ValidationError, which matches
// ErrInvalidArgument under errors.Is. Failures of a running operation are
// wrapped in *OperationError so the failing module and operation are kept
// alongside the cause.
package errors
