package providers

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrProviderLoad matches every *ProviderLoadError.
	ErrProviderLoad = errors.New("providers: provider load failed")

	// ErrSessionRelease is reported when a session could not be released cleanly.
	ErrSessionRelease = errors.New("providers: session release failed")

	// ErrNoUsableProvider is returned when both the requested provider and the cpu fallback
	// failed to load.
	ErrNoUsableProvider = errors.New("providers: no usable execution provider")
)

// AttemptError records one failed entry of a provider chain.
type AttemptError struct {
	Provider ExecutionProvider
	Backend  Backend
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s (%s backend): %v", e.Provider, e.Backend, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// ProviderLoadError is returned when every attempt of a provider's chain failed.
type ProviderLoadError struct {
	Provider ExecutionProvider
	Attempts []*AttemptError
}

func (e *ProviderLoadError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return fmt.Sprintf("load provider %s: %s", e.Provider, strings.Join(parts, "; "))
}

// Is matches ErrProviderLoad.
func (e *ProviderLoadError) Is(target error) bool {
	return target == ErrProviderLoad
}

// Unwrap exposes the individual attempt failures.
func (e *ProviderLoadError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// ReleaseError is returned when a session's native resources could not be freed.
type ReleaseError struct {
	Provider ExecutionProvider
	Err      error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrSessionRelease, e.Provider, e.Err)
}

// Is matches ErrSessionRelease.
func (e *ReleaseError) Is(target error) bool {
	return target == ErrSessionRelease
}

func (e *ReleaseError) Unwrap() error { return e.Err }

// FallbackError is returned when a provider and its cpu fallback both failed.
type FallbackError struct {
	Requested error
	Fallback  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%v: %v; cpu fallback: %v", ErrNoUsableProvider, e.Requested, e.Fallback)
}

// Is matches ErrNoUsableProvider.
func (e *FallbackError) Is(target error) bool {
	return target == ErrNoUsableProvider
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Requested, e.Fallback}
}
