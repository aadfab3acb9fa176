package vpd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

var (
	// VpdDir is where the kernel exposes the firmware VPD partitions
	VpdDir = "/sys/firmware/vpd"
)

// Keys read by the loader. Values live in the read-write partition so they
// can be changed from the running OS.
const (
	TimeoutKey  = "multiefi_timeout"
	ProductKey  = "multiefi_product"
	StrategyKey = "multiefi_strategy"
)

func getBaseDir(readOnly bool) string {
	if readOnly {
		return path.Join(VpdDir, "ro")
	}
	return path.Join(VpdDir, "rw")
}

// Get returns the raw value of a VPD key
func Get(key string, readOnly bool) ([]byte, error) {
	return os.ReadFile(path.Join(getBaseDir(readOnly), key))
}

// GetString returns a VPD value with surrounding whitespace and NUL
// padding removed. A missing key is reported with ok set to false and no
// error.
func GetString(key string) (value string, ok bool, err error) {
	buf, err := Get(key, false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00")), true, nil
}

// GetTimeout reads the menu timeout in seconds
func GetTimeout() (time.Duration, bool, error) {
	value, ok, err := GetString(TimeoutKey)
	if err != nil || !ok {
		return 0, false, err
	}
	secs, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %v", TimeoutKey, value, err)
	}
	if secs == 0 {
		return 0, false, fmt.Errorf("invalid %s %q: must be positive", TimeoutKey, value)
	}
	return time.Duration(secs) * time.Second, true, nil
}
