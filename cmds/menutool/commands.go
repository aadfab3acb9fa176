package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/izhank216/MultiEFI/pkg/bootconfig"
	"github.com/izhank216/MultiEFI/pkg/booter"
)

func showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <config-file>",
		Short: "Print the boot menu a configuration file produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", bootconfig.ErrConfigMissing, err)
			}
			defer f.Close()
			return ShowMenu(cmd.OutOrStdout(), bootconfig.Parse(f), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entries as JSON")
	return cmd
}

func checkCmd() *cobra.Command {
	var product string
	cmd := &cobra.Command{
		Use:   "check <volume-root>",
		Short: "Check that every entry of the boot menu points to an existing image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return CheckVolume(cmd.OutOrStdout(), os.DirFS(args[0]), bootconfig.ConfigPath(product))
		},
	}
	cmd.Flags().StringVar(&product, "product", bootconfig.DefaultProduct, "Product name used to find the configuration file")
	return cmd
}

// ShowMenu prints the menu the way the selector numbers it, with the
// image path of each entry
func ShowMenu(w io.Writer, menu *bootconfig.Menu, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		entries := menu.Entries()
		if entries == nil {
			entries = []bootconfig.BootEntry{}
		}
		return enc.Encode(entries)
	}
	if menu.Len() == 0 {
		fmt.Fprintln(w, "No boot entries")
		return nil
	}
	for idx, entry := range menu.Entries() {
		fmt.Fprintf(w, "%d. %s\t%s\n", idx+1, entry.Name, entry.Path)
	}
	return nil
}

// ErrMissingImages is returned by CheckVolume when an entry points to a
// file that does not exist
var ErrMissingImages = errors.New("some boot images are missing")

// CheckVolume loads the menu from a boot volume and reports, for each
// entry, whether its image exists
func CheckVolume(w io.Writer, volume fs.FS, cfgPath string) error {
	loader := bootconfig.Loader{Volume: volume, Path: cfgPath}
	menu, err := loader.Load()
	if err != nil {
		return err
	}
	if menu.Len() == 0 {
		return fmt.Errorf("%s: no boot entries", cfgPath)
	}
	missing := 0
	for idx, entry := range menu.Entries() {
		status := "ok"
		p, err := booter.NormalizePath(entry.Path)
		if err == nil {
			var info fs.FileInfo
			info, err = fs.Stat(volume, p)
			if err == nil && info.IsDir() {
				err = errors.New("is a directory")
			}
		}
		if err != nil {
			status = fmt.Sprintf("MISSING (%v)", err)
			missing++
		}
		fmt.Fprintf(w, "%d. %s\t%s\t%s\n", idx+1, entry.Name, entry.Path, status)
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d of %d", ErrMissingImages, missing, menu.Len())
	}
	return nil
}
