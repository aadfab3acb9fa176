package loader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/izhank216/MultiEFI/pkg/booter"
	"github.com/izhank216/MultiEFI/pkg/tpm"
)

type fakeKexec struct {
	images    []string
	loadErr   error
	rebootErr error
	rebooted  int
}

func newTestLoader(t *testing.T, fk *fakeKexec) *KexecLoader {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "EFI", "linux"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "EFI", "linux", "bootx64.efi"), []byte("MZlinux"), 0o644))
	kl := NewKexecLoader(root)
	kl.fileLoad = func(kernel, ramfs *os.File, cmdline string) error {
		require.Nil(t, ramfs)
		require.Empty(t, cmdline)
		data, err := io.ReadAll(kernel)
		require.NoError(t, err)
		fk.images = append(fk.images, string(data))
		return fk.loadErr
	}
	kl.reboot = func() error {
		fk.rebooted++
		return fk.rebootErr
	}
	return kl
}

func TestLoadDevicePath(t *testing.T) {
	fk := &fakeKexec{rebootErr: unix.EPERM}
	kl := newTestLoader(t, fk)
	h, err := kl.LoadImage(booter.DevicePath("EFI/linux/bootx64.efi"))
	require.NoError(t, err)
	require.Equal(t, booter.Handle(1), h)
	require.Equal(t, []string{"MZlinux"}, fk.images)

	err = kl.StartImage(h)
	require.Error(t, err)
	require.Equal(t, 1, fk.rebooted)
	require.Equal(t, booter.StatusAccessDenied, booter.StatusOf(err))
}

func TestLoadDevicePathNotFound(t *testing.T) {
	kl := newTestLoader(t, &fakeKexec{})
	_, err := kl.LoadImage(booter.DevicePath("EFI/gone/bootx64.efi"))
	require.Equal(t, booter.StatusNotFound, booter.StatusOf(err))

	_, err = kl.LoadImage(booter.DevicePath("../escape.efi"))
	require.Equal(t, booter.StatusInvalidParameter, booter.StatusOf(err))
}

func TestLoadFileSource(t *testing.T) {
	fk := &fakeKexec{}
	kl := newTestLoader(t, fk)

	// a file not backed by the host filesystem goes through a memfd
	volume := fstest.MapFS{"EFI/win/boot.efi": &fstest.MapFile{Data: []byte("MZwindows")}}
	f, err := volume.Open("EFI/win/boot.efi")
	require.NoError(t, err)
	defer f.Close()
	h, err := kl.LoadImage(&booter.FileSource{Path: "EFI/win/boot.efi", File: f})
	require.NoError(t, err)
	require.Equal(t, []string{"MZwindows"}, fk.images)

	// a host file is reopened
	hf, err := os.DirFS(kl.Root).Open("EFI/linux/bootx64.efi")
	require.NoError(t, err)
	defer hf.Close()
	h2, err := kl.LoadImage(&booter.FileSource{Path: "EFI/linux/bootx64.efi", File: hf})
	require.NoError(t, err)
	require.Equal(t, []string{"MZwindows", "MZlinux"}, fk.images)

	// only the most recent image can be started
	require.Equal(t, booter.StatusInvalidParameter, booter.StatusOf(kl.StartImage(h)))
	err = kl.StartImage(h2)
	require.True(t, errors.Is(err, ErrUnexpectedReturn))
	require.Equal(t, booter.StatusAborted, booter.StatusOf(err))
}

func TestLoadRejected(t *testing.T) {
	fk := &fakeKexec{loadErr: unix.EKEYREJECTED}
	kl := newTestLoader(t, fk)
	_, err := kl.LoadImage(booter.DevicePath("EFI/linux/bootx64.efi"))
	require.Equal(t, booter.StatusSecurityViolation, booter.StatusOf(err))
	require.Equal(t, booter.StatusInvalidParameter, booter.StatusOf(kl.StartImage(1)))
}

func TestLoadMeasures(t *testing.T) {
	var measured []byte
	old := tpm.OpenMeasurer
	defer func() { tpm.OpenMeasurer = old }()
	tpm.OpenMeasurer = func() (tpm.Measurer, func() error, error) {
		return measureFunc(func(pcr uint32, data []byte) error {
			require.Equal(t, tpm.ImagePCR, pcr)
			measured = append([]byte(nil), data...)
			return nil
		}), func() error { return nil }, nil
	}

	fk := &fakeKexec{}
	kl := newTestLoader(t, fk)
	kl.Measure = true
	_, err := kl.LoadImage(booter.DevicePath("EFI/linux/bootx64.efi"))
	require.NoError(t, err)
	require.Equal(t, "MZlinux", string(measured))
	// the loader still sees the whole image
	require.Equal(t, []string{"MZlinux"}, fk.images)
}

type measureFunc func(pcr uint32, data []byte) error

func (f measureFunc) Measure(pcr uint32, data []byte) error {
	return f(pcr, data)
}
