package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vincentbai/visionui-beacon/internal/database"
	"github.com/vincentbai/visionui-beacon/internal/logger"
	"github.com/vincentbai/visionui-beacon/internal/server"
)

var originPatterns []string

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tab bridge that tracks connected pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
	cmd.Flags().StringSliceVar(&originPatterns, "origin", nil, "host patterns allowed to open the tab socket")
	return cmd
}

func runServe() error {
	databasePath, err := tabDatabasePath()
	if err != nil {
		return err
	}

	db, err := database.NewDatabase(databasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	dispatcher := newDispatcher()
	defer dispatcher.Close()

	log.Info("Tab storage ready", logger.String("path", databasePath), logger.String("channel", dispatcher.Channel()))

	srv := server.NewServer(db, dispatcher, log, server.Options{
		Address:        cfg.Server.Address,
		ScrollQuiet:    cfg.Scroll.Debounce,
		TabTTL:         cfg.Storage.TabTTL,
		SweepEvery:     cfg.Storage.SweepEvery,
		OriginPatterns: originPatterns,
	})
	return srv.Start()
}

// tabDatabasePath is the configured storage path, or tabs.db in the
// application directory.
func tabDatabasePath() (string, error) {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path, nil
	}
	dir, err := applicationDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tabs.db"), nil
}

// applicationDirectory returns the platform-specific app data dir, creating it.
func applicationDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(homeDirectory, "Library", "Application Support", "VisionUIBeacon")
	case "windows":
		dir = filepath.Join(homeDirectory, "AppData", "Roaming", "VisionUIBeacon")
	default: // linux and others
		dir = filepath.Join(homeDirectory, ".local", "share", "VisionUIBeacon")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create application directory: %w", err)
	}
	return dir, nil
}
