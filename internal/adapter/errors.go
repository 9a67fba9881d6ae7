package adapter

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to killswitch and flight-mode callers.
var (
	ErrGeneral    = errors.New("GENERAL")
	ErrInProgress = errors.New("IN_PROGRESS")
	ErrEmergency  = errors.New("EMERGENCY")
)

// RemoteErrorMappings maps error names returned over the telephony bus to a
// kind. Names not listed map to ErrGeneral.
var RemoteErrorMappings = map[string]error{
	"org.ofono.Error.InProgress":      ErrInProgress,
	"org.ofono.Error.EmergencyActive": ErrEmergency,
}

// DeviceError wraps a kind with the radio type or device it concerns.
type DeviceError struct {
	Code     error  // ErrGeneral, ErrInProgress or ErrEmergency
	Context  string // radio type or device the failure concerns
	Original error  // backend error, may be nil
}

func (e *DeviceError) Error() string {
	if e.Original == nil {
		return fmt.Sprintf("%v: %s", e.Code, e.Context)
	}
	return fmt.Sprintf("%v: %s: %v", e.Code, e.Context, e.Original)
}

func (e *DeviceError) Unwrap() []error {
	if e.Original == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Original}
}

// NewError builds a DeviceError. A nil code means ErrGeneral.
func NewError(code error, context string, original error) *DeviceError {
	if code == nil {
		code = ErrGeneral
	}
	return &DeviceError{Code: code, Context: context, Original: original}
}

// Errorf builds a General error with a formatted context.
func Errorf(format string, args ...interface{}) *DeviceError {
	return NewError(ErrGeneral, fmt.Sprintf(format, args...), nil)
}

// NormalizeRemoteError maps a named remote failure to a DeviceError.
func NormalizeRemoteError(name, context string, original error) *DeviceError {
	code, ok := RemoteErrorMappings[name]
	if !ok {
		code = ErrGeneral
	}
	return NewError(code, context, original)
}

// KindOf returns the kind carried by err: ErrInProgress, ErrEmergency or
// ErrGeneral for anything else. It returns nil for a nil error.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInProgress):
		return ErrInProgress
	case errors.Is(err, ErrEmergency):
		return ErrEmergency
	default:
		return ErrGeneral
	}
}
