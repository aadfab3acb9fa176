package bootconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"path"
)

// DefaultProduct is the product name used to build the configuration path
var DefaultProduct = "MultiEFI"

// ErrConfigMissing is returned when the configuration file cannot be opened
var ErrConfigMissing = errors.New("configuration missing")

// ConfigPath returns the volume-relative path of the configuration file
// for a product, i.e. EFI/<product>/<product>.cfg
func ConfigPath(product string) string {
	return path.Join("EFI", product, product+".cfg")
}

// Loader reads the boot menu from a boot volume
type Loader struct {
	// Volume is the root directory of the boot volume
	Volume fs.FS
	// Path of the configuration file inside Volume. If empty,
	// ConfigPath(DefaultProduct) is used.
	Path string
	// Measure, if set, is called with the raw content of the configuration
	// file, up to MaxConfigSize bytes past what parsing consumed
	Measure func(data []byte, info string)
}

// Load opens the configuration file and parses it. A file that cannot be
// opened yields an error wrapping ErrConfigMissing; a file with no valid
// records yields an empty Menu and no error.
func (l *Loader) Load() (*Menu, error) {
	cfgPath := l.Path
	if cfgPath == "" {
		cfgPath = ConfigPath(DefaultProduct)
	}
	f, err := l.Volume.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigMissing, cfgPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing %s: %v", cfgPath, err)
		}
	}()

	var r io.Reader = f
	var raw bytes.Buffer
	if l.Measure != nil {
		r = io.TeeReader(f, &raw)
	}
	menu := Parse(r)
	if l.Measure != nil {
		// parsing stops early on a full menu, the measurement covers the file
		if _, err := io.Copy(io.Discard, io.LimitReader(r, int64(MaxConfigSize))); err != nil {
			log.Printf("Error reading %s for measurement: %v", cfgPath, err)
		}
		l.Measure(raw.Bytes(), cfgPath)
	}
	return menu, nil
}
