package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	// HelpText is the command line help
	HelpText = "A tool for inspecting MultiEFI boot menus"
)

var goversion string

var rootCmd = &cobra.Command{
	Use:           "menutool",
	Short:         HelpText,
	Version:       goversion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(showCmd(), checkCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
