package recovery

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncAll flushes the console and the filesystems
func syncAll() error {
	for _, f := range []*os.File{
		os.Stdout,
		os.Stderr,
	} {
		// consoles may not support fsync
		f.Sync() //nolint:errcheck
	}
	unix.Sync()
	return nil
}

// powerCycle implements linux based shutdown
// behaviour
func powerCycle(reboot bool) error {
	if reboot {
		return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
	}
	return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
}
