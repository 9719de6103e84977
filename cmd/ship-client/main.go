package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flexiblepower/shipproto-go/pkg/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "ship-client",
	Short:   "SHIP connection-establishment client",
	Version: version.String(),
	Long: `ship-client dials a SHIP (Smart Home IP) server over TLS WebSocket and
drives the connection through CMI, CSH, CSHP, and PIN before handing the
resulting data channel to the configured application.`,
	RunE: runConnect,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file (default: environment-cascaded lookup under ./config)")
}
