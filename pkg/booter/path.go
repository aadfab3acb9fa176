package booter

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// NormalizePath converts an entry path as written in the configuration,
// e.g. \EFI\linux\bootx64.efi, into a path relative to the volume root,
// e.g. EFI/linux/bootx64.efi
func NormalizePath(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid image path %q", p)
	}
	return clean, nil
}
