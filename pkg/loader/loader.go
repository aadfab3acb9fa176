// Package loader provides the platform loader service used to hand off to
// a boot image.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/izhank216/MultiEFI/pkg/booter"
)

// ErrUnexpectedReturn is returned when starting an image returned without
// an error, i.e. the handoff silently did not happen
var ErrUnexpectedReturn = errors.New("unexpectedly returned from the loaded image")

// resolve turns a DevicePath into a host path below root
func resolve(root string, dp booter.DevicePath) (string, error) {
	p := string(dp)
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: invalid device path %q", booter.StatusInvalidParameter, p)
	}
	return filepath.Join(root, filepath.FromSlash(p)), nil
}

// statusError attaches a platform status to err
type statusError struct {
	status booter.Status
	err    error
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() []error {
	return []error{e.status, e.err}
}

func withStatus(status booter.Status, err error) error {
	return &statusError{status: status, err: err}
}
