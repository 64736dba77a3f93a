package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sysspeed/host/config"
)

var (
	version    = "dev"
	configPath string
	deviceFlag string
	simulate   bool
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clockctl",
	Short: "clockctl - clock and power controller tool",
	Long: `clockctl connects to the clock controller firmware over its serial link.
It reads and reprograms the PLL, switches speed presets, samples the awake/asleep
load and can run as a monitor exporting Prometheus metrics.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/clockctl/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&deviceFlag, "device", "d", "", "Serial device (overrides serial.device)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use an in-process simulated controller")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides logging.level)")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		loaded.Serial.Device = deviceFlag
	}
	if cmd.Flags().Changed("simulate") {
		loaded.Serial.Simulate = simulate
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	cfg = loaded
	logger = setupLogger(cfg.Logging)
	return nil
}

// commandContext bounds one exchange with the controller
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Serial.CommandTimeout)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
