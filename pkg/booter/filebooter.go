package booter

import (
	"errors"
	"io/fs"
	"log"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
)

// StrategyFile opens the image through the volume before loading it
const StrategyFile = "file"

// FileBooter implements the Booter interface by opening the entry path on
// the boot volume and handing the open file to the Loader. A missing image
// is reported before any load is attempted.
type FileBooter struct {
	Loader Loader
	Volume fs.FS
}

// TypeName returns the name of the booter type
func (fb *FileBooter) TypeName() string {
	return StrategyFile
}

// Boot opens, loads and starts the image. On success it does not return.
func (fb *FileBooter) Boot(entry bootconfig.BootEntry) error {
	p, err := NormalizePath(entry.Path)
	if err != nil {
		return &InvokeError{Op: OpOpen, Path: entry.Path, Status: StatusInvalidParameter, Err: err}
	}
	f, err := fb.Volume.Open(p)
	if err != nil {
		return &InvokeError{Op: OpOpen, Path: entry.Path, Status: StatusOf(err), Err: err}
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close() //nolint:errcheck
		return &InvokeError{Op: OpOpen, Path: entry.Path, Status: StatusNotFound, Err: errors.New("is a directory")}
	}

	log.Printf("Loading %s", p)
	h, err := fb.Loader.LoadImage(&FileSource{Path: p, File: f})
	// the loader keeps its own copy of the image
	if cerr := f.Close(); cerr != nil {
		log.Printf("Error closing %s: %v", p, cerr)
	}
	if err != nil {
		return &InvokeError{Op: OpLoad, Path: entry.Path, Status: StatusOf(err), Err: err}
	}
	return start(fb.Loader, h, entry.Path)
}

func start(loader Loader, h Handle, entryPath string) error {
	log.Printf("Starting %s", entryPath)
	if err := loader.StartImage(h); err != nil {
		return &InvokeError{Op: OpStart, Path: entryPath, Status: StatusOf(err), Err: err}
	}
	return nil
}
