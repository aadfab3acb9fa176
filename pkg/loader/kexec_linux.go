package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/u-root/u-root/pkg/boot/kexec"
	"golang.org/x/sys/unix"

	"github.com/izhank216/MultiEFI/pkg/booter"
	"github.com/izhank216/MultiEFI/pkg/tpm"
)

// KexecLoader loads images with kexec_file_load and starts them by
// rebooting into them. The running kernel verifies the image format (and
// its signature when lockdown is active).
type KexecLoader struct {
	// Root is where the boot volume is mounted. DevicePath sources are
	// resolved below it.
	Root string
	// Measure extends each image into tpm.ImagePCR before it is loaded
	Measure bool

	mu     sync.Mutex
	next   booter.Handle
	loaded booter.Handle

	// replaced in tests
	fileLoad func(kernel, ramfs *os.File, cmdline string) error
	reboot   func() error
}

// NewKexecLoader returns a loader for a boot volume mounted at root
func NewKexecLoader(root string) *KexecLoader {
	return &KexecLoader{
		Root:     root,
		fileLoad: kexec.FileLoad,
		reboot:   kexec.Reboot,
	}
}

// LoadImage loads the image into the kernel's kexec segment. Only one
// image can be loaded at a time; loading another replaces it.
func (kl *KexecLoader) LoadImage(src booter.ImageSource) (booter.Handle, error) {
	f, err := kl.open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck

	if kl.Measure {
		data, err := io.ReadAll(f)
		if err != nil {
			return 0, withStatus(booter.StatusDeviceError, fmt.Errorf("cannot read %s: %w", src, err))
		}
		tpm.TryMeasureData(tpm.ImagePCR, data, src.String())
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, withStatus(booter.StatusDeviceError, fmt.Errorf("cannot seek %s: %w", src, err))
		}
	}

	// images are started without arguments
	if err := kl.fileLoad(f, nil, ""); err != nil {
		return 0, withStatus(statusFromErrno(err), fmt.Errorf("kexec_file_load %s: %w", src, err))
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.next++
	kl.loaded = kl.next
	log.Printf("Loaded %s as image %d", src, kl.loaded)
	return kl.loaded, nil
}

// StartImage reboots into the loaded image. It only returns on failure.
func (kl *KexecLoader) StartImage(h booter.Handle) error {
	kl.mu.Lock()
	loaded := kl.loaded
	kl.mu.Unlock()
	if h == 0 || h != loaded {
		return withStatus(booter.StatusInvalidParameter, fmt.Errorf("image %d is not loaded", h))
	}
	if err := kl.reboot(); err != nil {
		return withStatus(statusFromErrno(err), fmt.Errorf("kexec reboot: %w", err))
	}
	return withStatus(booter.StatusAborted, ErrUnexpectedReturn)
}

// open returns a seekable *os.File for the image. Files that are not
// backed by the host filesystem are copied into a memfd.
func (kl *KexecLoader) open(src booter.ImageSource) (*os.File, error) {
	switch s := src.(type) {
	case booter.DevicePath:
		p, err := resolve(kl.Root, s)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, withStatus(statusFromErrno(err), err)
		}
		return f, nil
	case *booter.FileSource:
		if f, ok := s.File.(*os.File); ok {
			// the caller closes its handle, keep our own
			return os.Open(f.Name())
		}
		return copyToMemfd(s)
	default:
		return nil, withStatus(booter.StatusUnsupported, fmt.Errorf("unsupported image source %T", src))
	}
}

func copyToMemfd(s *booter.FileSource) (*os.File, error) {
	fd, err := unix.MemfdCreate("image", 0)
	if err != nil {
		return nil, withStatus(booter.StatusOutOfResources, fmt.Errorf("memfdCreate: %w", err))
	}
	memfd := os.NewFile(uintptr(fd), s.Path)
	if _, err := io.Copy(memfd, s.File); err != nil {
		memfd.Close() //nolint:errcheck
		return nil, withStatus(booter.StatusDeviceError, fmt.Errorf("cannot read %s: %w", s.Path, err))
	}
	if _, err := memfd.Seek(0, io.SeekStart); err != nil {
		memfd.Close() //nolint:errcheck
		return nil, withStatus(booter.StatusDeviceError, fmt.Errorf("cannot seek %s: %w", s.Path, err))
	}
	return memfd, nil
}

// statusFromErrno maps a kernel error to a platform status
func statusFromErrno(err error) booter.Status {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return booter.StatusOf(err)
	}
	switch errno {
	case unix.ENOENT, unix.ENOTDIR:
		return booter.StatusNotFound
	case unix.EPERM, unix.EACCES:
		return booter.StatusAccessDenied
	case unix.EKEYREJECTED, unix.EBADMSG:
		return booter.StatusSecurityViolation
	case unix.ENOEXEC:
		return booter.StatusUnsupported
	case unix.ENOMEM, unix.EBUSY:
		return booter.StatusOutOfResources
	case unix.EINVAL:
		return booter.StatusInvalidParameter
	default:
		return booter.StatusDeviceError
	}
}
