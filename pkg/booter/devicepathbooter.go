package booter

import (
	"log"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
)

// StrategyDevicePath hands the path to the Loader without opening it
const StrategyDevicePath = "devicepath"

// DevicePathBooter implements the Booter interface by turning the entry
// path into a DevicePath and letting the Loader resolve it. A missing file
// surfaces as a load failure.
type DevicePathBooter struct {
	Loader Loader
}

// TypeName returns the name of the booter type
func (db *DevicePathBooter) TypeName() string {
	return StrategyDevicePath
}

// Boot loads and starts the image. On success it does not return.
func (db *DevicePathBooter) Boot(entry bootconfig.BootEntry) error {
	p, err := NormalizePath(entry.Path)
	if err != nil {
		return &InvokeError{Op: OpLoad, Path: entry.Path, Status: StatusInvalidParameter, Err: err}
	}
	log.Printf("Loading device path %s", p)
	h, err := db.Loader.LoadImage(DevicePath(p))
	if err != nil {
		return &InvokeError{Op: OpLoad, Path: entry.Path, Status: StatusOf(err), Err: err}
	}
	return start(db.Loader, h, entry.Path)
}
