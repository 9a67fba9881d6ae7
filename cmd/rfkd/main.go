// Command rfkd is the radio killswitch daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/radio-control/rfkd/internal/config"
	"github.com/radio-control/rfkd/internal/daemon"
)

// Version is the daemon version.
const Version = "0.9.0"

var (
	configPath string
	debug      bool
	listen     string
)

var rootCmd = &cobra.Command{
	Use:   "rfkd",
	Short: "rfkd - radio killswitch daemon",
	Long: `rfkd arbitrates the soft block state of every radio on the system:
kernel rfkill devices, telephony modems and vendor WLAN drivers. It keeps
per-type state across restarts and implements flight mode with rollback.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "configuration file (default $RFKD_CONFIG)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log every kernel event")
	rootCmd.Flags().StringVar(&listen, "listen", "", "control API address, overrides the configuration")
}

func run(cmd *cobra.Command, _ []string) error {
	log.Printf("Starting rfkd v%s", Version)

	// Step 1: configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("debug") {
		cfg.Log.Debug = debug
	}
	if listen != "" {
		cfg.API.Listen = listen
	}

	// Step 2: logging
	logOut := daemon.SetupLogging(cfg.Log)
	defer logOut.Close()
	log.Printf("Configuration loaded: persist=%t forceSync=%t strictFlightMode=%t",
		cfg.Killswitch.Persist, cfg.Killswitch.ForceSync, cfg.Killswitch.StrictFlightMode)

	// Step 3: run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daemon.New(cfg).Run(ctx); err != nil {
		return err
	}
	log.Println("rfkd shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
