// Command financectl prints finance reports straight from a ledger backend
// and issues API tokens.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"consultcrm/internal/backend"
	"consultcrm/internal/config"
)

var (
	backendType string
	dataDir     string
	sqlitePath  string
	databaseURL string
	refDate     string
	asJSON      bool
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "financectl",
	Short:         "Inspect the financial health of the ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cfg := config.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&backendType, "backend", cfg.DataBackend, "Ledger backend: memory, sqlite or postgres")
	flags.StringVar(&dataDir, "data-dir", cfg.DataDir, "Seed directory for the memory backend")
	flags.StringVar(&sqlitePath, "sqlite-path", cfg.SQLiteDBPath, "SQLite database file")
	flags.StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "Postgres connection URL")
	flags.StringVar(&refDate, "date", "", "Reference date YYYY-MM-DD (default: today)")
	flags.BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(metricsCmd, forecastCmd, analyticsCmd, checkCmd, newTokenCmd(cfg))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func backendConfig() backend.Config {
	return backend.Config{
		Type:        backend.Type(backendType),
		DataDir:     dataDir,
		SQLitePath:  sqlitePath,
		DatabaseURL: databaseURL,
	}
}
