package booter

import (
	"errors"
	"fmt"
	"io/fs"
)

// Status is a platform status code, using the UEFI numbering so the codes
// printed on failure match what firmware documentation lists
type Status uint64

const errorBit Status = 1 << 63

// Status codes reported by loaders
const (
	StatusSuccess           Status = 0
	StatusLoadError                = errorBit | 1
	StatusInvalidParameter         = errorBit | 2
	StatusUnsupported              = errorBit | 3
	StatusDeviceError              = errorBit | 7
	StatusOutOfResources           = errorBit | 9
	StatusNotFound                 = errorBit | 14
	StatusAccessDenied             = errorBit | 15
	StatusAborted                  = errorBit | 21
	StatusSecurityViolation        = errorBit | 26
)

var statusNames = map[Status]string{
	StatusSuccess:           "Success",
	StatusLoadError:         "Load Error",
	StatusInvalidParameter:  "Invalid Parameter",
	StatusUnsupported:       "Unsupported",
	StatusDeviceError:       "Device Error",
	StatusOutOfResources:    "Out of Resources",
	StatusNotFound:          "Not Found",
	StatusAccessDenied:      "Access Denied",
	StatusAborted:           "Aborted",
	StatusSecurityViolation: "Security Violation",
}

// IsError returns true if the status denotes a failure
func (s Status) IsError() bool {
	return s&errorBit != 0
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status 0x%x", uint64(s))
}

// Error makes a Status usable as an error
func (s Status) Error() string {
	return s.String()
}

// Invocation steps reported in InvokeError
const (
	OpOpen  = "open"
	OpLoad  = "load"
	OpStart = "start"
)

// ErrNotFound is matched by errors.Is when the image file does not exist
var ErrNotFound = errors.New("image not found")

// InvokeError reports a failed handoff: which step failed, for which path,
// and the platform status
type InvokeError struct {
	Op     string
	Path   string
	Status Status
	Err    error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("cannot %s image %s: %v (%v)", e.Op, e.Path, e.Err, e.Status)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// Is reports a missing image as ErrNotFound
func (e *InvokeError) Is(target error) bool {
	return target == ErrNotFound && e.Status == StatusNotFound
}

// StatusOf returns the platform status carried by err. Errors that carry
// none map to StatusLoadError, a nil error to StatusSuccess.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie.Status
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	if errors.Is(err, fs.ErrNotExist) {
		return StatusNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return StatusAccessDenied
	}
	return StatusLoadError
}
