package pdf

import "errors"

// Errors callers branch on. Wrap them with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrInvalidOptions is returned when tool options fail to decode or validate
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNoInput is returned when a tool is run without the files it needs
	ErrNoInput = errors.New("no input files")

	// ErrWrongPassword is returned when a protected PDF cannot be opened with the given password
	ErrWrongPassword = errors.New("incorrect password")
)
