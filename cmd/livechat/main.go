// livechat is a terminal client and local sandbox backend for the live chat widget.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/livechat/internal/config"
	"github.com/ashureev/livechat/internal/store"
)

var (
	version = "0.1.0"
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "livechat",
		Short:         "Live chat widget client and sandbox backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Debug("No .env file found, using environment variables")
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			// Logs go to stderr so the chat transcript on stdout stays readable.
			slog.SetDefault(cfg.NewLogger(os.Stderr))
			return nil
		},
	}

	root.AddCommand(chatCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(deviceIDCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openStore opens the device identity store, creating the sqlite directory if needed.
func openStore() (store.KV, error) {
	opts := cfg.StoreOptions()
	if opts.Driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	kv, err := store.New(opts)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}
	return kv, nil
}

func closeStore(kv store.KV) {
	if err := kv.Close(); err != nil {
		slog.Error("Failed to close device store", "error", err)
	}
}
