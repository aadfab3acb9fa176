//go:build !linux

package loader

import (
	"fmt"
	"runtime"

	"github.com/izhank216/MultiEFI/pkg/booter"
)

// KexecLoader is only available on Linux
type KexecLoader struct {
	Root    string
	Measure bool
}

// NewKexecLoader returns a loader that always fails on this platform
func NewKexecLoader(root string) *KexecLoader {
	return &KexecLoader{Root: root}
}

// LoadImage always fails on this platform
func (kl *KexecLoader) LoadImage(src booter.ImageSource) (booter.Handle, error) {
	return 0, withStatus(booter.StatusUnsupported, fmt.Errorf("kexec is not supported on %s", runtime.GOOS))
}

// StartImage always fails on this platform
func (kl *KexecLoader) StartImage(h booter.Handle) error {
	return withStatus(booter.StatusUnsupported, fmt.Errorf("kexec is not supported on %s", runtime.GOOS))
}
