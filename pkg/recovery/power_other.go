//go:build !linux

package recovery

import (
	"fmt"
	"runtime"
)

func syncAll() error {
	return nil
}

func powerCycle(reboot bool) error {
	return fmt.Errorf("power cycle is not supported on %s", runtime.GOOS)
}
