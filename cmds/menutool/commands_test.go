package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
)

const testConfig = "Linux=\\EFI\\linux\\bootx64.efi\nWindows=\\EFI\\Microsoft\\Boot\\bootmgfw.efi\n"

func TestShowMenu(t *testing.T) {
	var out bytes.Buffer
	menu := bootconfig.Parse(strings.NewReader(testConfig))
	require.NoError(t, ShowMenu(&out, menu, false))
	require.Equal(t, "1. Linux\t\\EFI\\linux\\bootx64.efi\n2. Windows\t\\EFI\\Microsoft\\Boot\\bootmgfw.efi\n", out.String())

	out.Reset()
	require.NoError(t, ShowMenu(&out, menu, true))
	require.Contains(t, out.String(), `"name": "Windows"`)

	out.Reset()
	require.NoError(t, ShowMenu(&out, bootconfig.NewMenu(), true))
	require.Equal(t, "[]\n", out.String())
}

func TestCheckVolume(t *testing.T) {
	volume := fstest.MapFS{
		"EFI/MultiEFI/MultiEFI.cfg": &fstest.MapFile{Data: []byte(testConfig)},
		"EFI/linux/bootx64.efi":     &fstest.MapFile{Data: []byte("MZ")},
	}
	var out bytes.Buffer
	err := CheckVolume(&out, volume, bootconfig.ConfigPath("MultiEFI"))
	require.True(t, errors.Is(err, ErrMissingImages))
	require.Contains(t, out.String(), "1. Linux\t\\EFI\\linux\\bootx64.efi\tok\n")
	require.Contains(t, out.String(), "2. Windows")
	require.Contains(t, out.String(), "MISSING")

	volume["EFI/Microsoft/Boot/bootmgfw.efi"] = &fstest.MapFile{Data: []byte("MZ")}
	out.Reset()
	require.NoError(t, CheckVolume(&out, volume, bootconfig.ConfigPath("MultiEFI")))
}

func TestCheckVolumeWithoutConfig(t *testing.T) {
	var out bytes.Buffer
	err := CheckVolume(&out, fstest.MapFS{}, bootconfig.ConfigPath("MultiEFI"))
	require.True(t, errors.Is(err, bootconfig.ErrConfigMissing))

	err = CheckVolume(&out, fstest.MapFS{"EFI/MultiEFI/MultiEFI.cfg": &fstest.MapFile{}}, bootconfig.ConfigPath("MultiEFI"))
	require.Error(t, err)
}
