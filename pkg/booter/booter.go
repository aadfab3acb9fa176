package booter

import (
	"fmt"
	"io/fs"
	"log"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
)

// Booter is an interface that defines how a boot entry is handed off to.
// Implementations differ in how the entry path is resolved before the
// image is given to the Loader.
type Booter interface {
	Boot(entry bootconfig.BootEntry) error
	TypeName() string
}

// Handle identifies an image loaded by a Loader
type Handle uint64

// ImageSource is what a Loader loads an image from: either a DevicePath or
// a *FileSource
type ImageSource interface {
	String() string
}

// DevicePath is a volume-relative path the Loader resolves by itself
type DevicePath string

func (dp DevicePath) String() string {
	return string(dp)
}

// FileSource is an image file already opened on the boot volume
type FileSource struct {
	Path string
	File fs.File
}

func (s *FileSource) String() string {
	return s.Path
}

// Loader is the platform service that loads and starts images
type Loader interface {
	// LoadImage loads the image into memory and returns its handle
	LoadImage(src ImageSource) (Handle, error)
	// StartImage transfers control to a loaded image. It only returns if
	// the handoff failed or the image gave control back.
	StartImage(h Handle) error
}

// NullBooter is a dummy booter that does nothing. It is used for dry runs
type NullBooter struct {
}

// TypeName returns the name of the booter type
func (nb *NullBooter) TypeName() string {
	return "null"
}

// Boot logs the entry and returns
func (nb *NullBooter) Boot(entry bootconfig.BootEntry) error {
	log.Printf("Null booter does nothing, would boot %q from %s", entry.Name, entry.Path)
	return nil
}

// NewBooter returns the Booter implementing the named strategy: "file"
// (the default if name is empty), "devicepath" or "null"
func NewBooter(name string, loader Loader, volume fs.FS) (Booter, error) {
	switch name {
	case "", StrategyFile:
		if volume == nil {
			return nil, fmt.Errorf("strategy %q needs a boot volume", StrategyFile)
		}
		return &FileBooter{Loader: loader, Volume: volume}, nil
	case StrategyDevicePath:
		return &DevicePathBooter{Loader: loader}, nil
	case "null":
		return &NullBooter{}, nil
	default:
		return nil, fmt.Errorf("unknown boot strategy %q", name)
	}
}
