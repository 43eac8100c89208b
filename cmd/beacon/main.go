// Command beacon runs and exercises the VisionUI event beacon.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vincentbai/visionui-beacon/internal/config"
	"github.com/vincentbai/visionui-beacon/internal/logger"
	"github.com/vincentbai/visionui-beacon/internal/transport"
)

const version = "0.3.0"

var (
	cfg   config.Config
	log   logger.Logger
	debug bool

	rootCmd = &cobra.Command{
		Use:           "beacon",
		Short:         "VisionUI site event beacon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := cfg.Log.Level
			if debug {
				level = "debug"
			}
			l, err := logger.New(logger.Config{Level: level, Development: debug})
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCommand(), trackCommand(), auditCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "beacon version %s\n", version)
		},
	})
}

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()
	cfg = config.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newDispatcher builds the collector channel selected by configuration.
func newDispatcher() *transport.Dispatcher {
	sender := transport.NewHTTPSender(cfg.Collector.URL, cfg.Collector.Timeout)
	return transport.NewDispatcher(sender, transport.Options{
		Beacon:     cfg.Transport.Mode == config.ModeBeacon,
		BufferSize: cfg.Transport.BufferSize,
	}, log)
}
