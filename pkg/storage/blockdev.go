package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/siderolabs/go-retry/retry"
)

// LinuxMountsPath is the standard mountpoint list path
var LinuxMountsPath = "/proc/mounts"

// Mountpoint holds one entry of the mount table
type Mountpoint struct {
	Device string
	Path   string
	FsType string
}

// GetMounts returns the current mount table
func GetMounts() ([]Mountpoint, error) {
	f, err := os.Open(LinuxMountsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mounts []Mountpoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, Mountpoint{
			Device: unescape(fields[0]),
			Path:   unescape(fields[1]),
			FsType: fields[2],
		})
	}
	return mounts, scanner.Err()
}

// unescape decodes the octal escapes (\040 for space) used in the mount
// table
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				sb.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// GetMountpointByDevice returns the mount path of a device, or nil and an
// error if it is not mounted. Symlinks like /dev/disk/by-uuid/... are
// resolved first.
func GetMountpointByDevice(devicePath string) (*string, error) {
	mounts, err := GetMounts()
	if err != nil {
		return nil, err
	}
	candidates := []string{devicePath}
	if resolved, err := filepath.EvalSymlinks(devicePath); err == nil && resolved != devicePath {
		candidates = append(candidates, resolved)
	}
	for _, m := range mounts {
		for _, dev := range candidates {
			if m.Device == dev {
				p := m.Path
				return &p, nil
			}
		}
	}
	return nil, fmt.Errorf("device %s is not mounted", devicePath)
}

// WaitForMountpoint polls the mount table until the device shows up or
// timeout expires. Boot volumes may be mounted by a concurrent init step.
func WaitForMountpoint(devicePath string, timeout time.Duration) (string, error) {
	var mountpoint string
	err := retry.Constant(timeout, retry.WithUnits(100*time.Millisecond)).Retry(func() error {
		p, err := GetMountpointByDevice(devicePath)
		if err != nil {
			return retry.ExpectedError(err)
		}
		mountpoint = *p
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("waiting for %s: %w", devicePath, err)
	}
	return mountpoint, nil
}
