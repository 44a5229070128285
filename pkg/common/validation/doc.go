// Package validation provides the argument checks shared by fanflow
// constructors and entry points.
//
// Every check returns a *errors.ValidationError, so callers can match any
// failure with errors.Is(err, errors.ErrInvalidArgument).
package validation
