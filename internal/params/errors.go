package params

import "errors"

// #region errors
var (
	// ErrInvalidInput marks a non-positive day count or a non-finite numeric input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownParameter marks a parameter name that no stage recognises.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidParameter marks a recognised parameter whose value breaks a stage constraint.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// #endregion errors
