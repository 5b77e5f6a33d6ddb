package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/onebiot/onebiot/internal/config"
	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/discovery"
	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/orchestrator"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/router"
	"github.com/onebiot/onebiot/internal/ui"
)

var errRestartExit = errors.New("restart requested, exiting for the service manager")

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

// Run command flags.
var (
	runPort      int
	runDriver    string
	runMemory    bool
	runNoEnforce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connectivity agent",
	Long: `Bring the device online and serve the control API until interrupted.

The agent mounts its storage, loads the device record, joins the configured
WiFi network or starts the access point, announces itself over mDNS and
serves the control API. When neither network comes up the agent restarts
itself unless --no-enforce is given.`,
	Example: `  # Run with the settings file
  onebiot run

  # Try it out without touching the host network
  onebiot run --driver sim --memory --port 8080 --log-level debug`,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().IntVar(&runPort, "port", 0, "Control API port (overrides the settings file)")
	runCmd.Flags().StringVar(&runDriver, "driver", "", "Radio driver: sim or nmcli (overrides the settings file)")
	runCmd.Flags().BoolVar(&runMemory, "memory", false, "Keep the device record in memory only")
	runCmd.Flags().BoolVar(&runNoEnforce, "no-enforce", false, "Do not restart when no network comes up")
}

func runAgent(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		settings.HTTP.Port = runPort
	}
	if runDriver != "" {
		settings.Radio.Driver = runDriver
	}
	if runMemory {
		settings.Storage.Memory = true
	}
	if runNoEnforce {
		settings.Loop.Enforce = false
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := buildAgent(settings)
	err = orch.Run(ctx, settings.Loop.Enforce)
	if errors.Is(err, orchestrator.ErrRestarted) {
		return errRestartExit
	}
	return err
}

var scanTimeout int

var scanCmd = &cobra.Command{
	Use:   "scan [name]",
	Short: "Find onebiot devices on the local network",
	Long: `Browse mDNS for onebiot agents and list them.

With a name argument the command waits for that device only.`,
	Example: `  # List devices
  onebiot scan

  # Wait up to 30 seconds for a device
  onebiot scan kitchen --timeout 30`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	if _, err := loadSettings(); err != nil {
		return err
	}
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	ctx := cmd.Context()

	var devices []*discovery.Device
	if len(args) == 1 {
		fmt.Printf("Waiting for %s (timeout: %ds)...\n\n", args[0], scanTimeout)
		device, err := scanner.WaitForDevice(ctx, args[0])
		if err != nil {
			fmt.Println(ui.NewFailureResult("Device not found", err,
				"Check that the agent is running with discovery enabled",
				"Try a longer --timeout").Render())
			return err
		}
		devices = append(devices, device)
	} else {
		fmt.Printf("Scanning for onebiot devices (timeout: %ds)...\n\n", scanTimeout)
		found, err := scanner.ScanForDevices(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		devices = found
	}

	if len(devices) == 0 {
		fmt.Println(ui.NewWarningResult("No devices found").Render())
		return nil
	}

	table := ui.NewTable("NAME", "CLIENT", "MODE", "URL")
	for _, device := range devices {
		table.AddRow(device.Hostname, device.ClientName, device.Mode, device.BaseURL())
	}
	fmt.Println(table)
	return nil
}

var networksTimeout int

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List WiFi networks visible to the radio",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		drv := newDriver(settings)
		if err := drv.StartScan(); err != nil {
			return fmt.Errorf("scan failed to start: %w", err)
		}
		defer drv.ClearScan()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(networksTimeout)*time.Second)
		defer cancel()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			state, nets := drv.Scan()
			switch state {
			case radio.ScanFailed:
				return errors.New("scan failed")
			case radio.ScanDone:
				if len(nets) > router.MaxNetworks {
					nets = nets[:router.MaxNetworks]
				}
				if len(nets) == 0 {
					fmt.Println(ui.NewWarningResult("No WiFi networks found").Render())
					return nil
				}
				table := ui.NewTable("SSID", "RSSI", "CHANNEL", "ENCRYPTION")
				for _, n := range nets {
					table.AddRow(n.SSID, fmt.Sprintf("%d dBm", n.RSSI), fmt.Sprint(n.Channel), n.Encryption)
				}
				fmt.Println(table)
				return nil
			}
			select {
			case <-ctx.Done():
				return faults.NewTimeoutError("networks", "scan did not finish", ctx.Err())
			case <-ticker.C:
			}
		}
	},
}

func init() {
	networksCmd.Flags().IntVar(&networksTimeout, "timeout", 15, "Scan timeout in seconds")
}

var credentialsUser string

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Set the control API admin user and password",
	Long: `Set the admin credentials stored in the device record.

The password is prompted twice and never taken from the command line. The
running agent picks the change up after a restart.`,
	Example: `  onebiot credentials --user admin`,
	RunE:    runCredentials,
}

func init() {
	credentialsCmd.Flags().StringVar(&credentialsUser, "user", "", "Admin user name")
	_ = credentialsCmd.MarkFlagRequired("user")
}

func runCredentials(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := mountStore(settings)
	if err != nil {
		return err
	}
	if err := store.Load(); err != nil && !faults.IsNotFound(err) {
		return fmt.Errorf("device record unreadable (try 'onebiot recover'): %w", err)
	}

	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := deviceconfig.ValidateCredentials(credentialsUser, password); err != nil {
		return err
	}
	store.SetCredentialsUser(credentialsUser)
	store.SetCredentialsPassword(password)
	if !store.Dirty() {
		fmt.Println(ui.NewWarningResult("Credentials unchanged").Render())
		return nil
	}
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Println(ui.NewSuccessResult("Credentials has been changed.").
		AddDetail("User", credentialsUser).
		AddDetail("Record", store.Path()).
		Render())
	return nil
}

var stdinReader = bufio.NewReader(os.Stdin)

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Restore the device record from its backup",
	Long: `Restore the device record from the backup left behind by an
interrupted save.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		store, err := mountStore(settings)
		if err != nil {
			return err
		}
		if !store.HasBackup() {
			fmt.Println(ui.NewWarningResult("No backup to recover").Render())
			return nil
		}
		if err := store.RecoverBackup(); err != nil {
			fmt.Println(ui.NewFailureResult("Recovery failed", err,
				"The backup may be corrupted; remove it and configure the device again").Render())
			return err
		}
		fmt.Println(ui.NewSuccessResult("Device record recovered").
			AddDetail("Record", store.Path()).
			AddDetail("Backup", store.BackupPath()).
			Render())
		return nil
	},
}

func mountStore(settings *config.Settings) (*deviceconfig.Store, error) {
	if settings.Storage.Memory {
		return nil, errors.New("storage.memory is set; there is no persistent record to edit")
	}
	fsys := openStorage(settings)
	if err := fsys.Mount(); err != nil {
		return nil, faults.NewIOError("mount", "storage is not available", err)
	}
	return openStore(settings, fsys), nil
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the agent settings file",
}

var settingsForce bool

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a settings file with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !settingsForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		saved, err := config.Default().Save(path)
		if err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult("Settings written").AddDetail("Path", saved).Render())
		return nil
	},
}

func init() {
	settingsInitCmd.Flags().BoolVar(&settingsForce, "force", false, "Overwrite an existing file")
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}
