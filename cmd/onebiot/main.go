// Onebiot is the connectivity agent for 1biot devices.
//
// It joins the configured WiFi network or falls back to its own access
// point, announces itself over mDNS and serves the control API used to
// configure the device.
//
// Usage:
//
//	onebiot run [flags]
//
// See 'onebiot --help' for the other commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onebiot/onebiot/internal/config"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/platform"
	"github.com/onebiot/onebiot/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errRestartExit) {
			os.Exit(platform.ExitRestart)
		}
		os.Exit(1)
	}
}

// Global flags.
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "onebiot",
	Short: "1biot device connectivity agent",
	Long: `The onebiot agent brings a 1biot device online.

It connects to the configured WiFi network, falls back to an access point
when that fails, announces the device over mDNS and serves the HTTP control
API used to change the WiFi, access point, mDNS and admin settings.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Agent settings file (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the settings file")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the settings file and initializes logging from it.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := settings.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Initialize(level); err != nil {
		return nil, err
	}
	return settings, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
