package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNothingToGenerate = errors.New("nothing to generate: add a description or reference images")
	ErrUploadLimit       = errors.New("upload limit reached")
	ErrUnsupportedFile   = errors.New("unsupported file")
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrOperationInFlight = errors.New("operation already in flight")
	ErrNoResult          = errors.New("no generated image")
	ErrProviderFailure   = errors.New("provider failure")
)

// IsValidation reports whether err belongs to the validation class:
// bad or missing user input, rejected before any upstream call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNothingToGenerate) ||
		errors.Is(err, ErrUploadLimit) ||
		errors.Is(err, ErrUnsupportedFile) ||
		errors.Is(err, ErrUnknownPreset)
}

// IsService reports whether err belongs to the service class: a transport
// or provider failure, including a response without the expected output.
func IsService(err error) bool {
	return errors.Is(err, ErrProviderFailure)
}
