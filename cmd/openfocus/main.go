package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/baiirun/openfocus/internal/cache"
	"github.com/baiirun/openfocus/internal/config"
	"github.com/baiirun/openfocus/internal/db"
	"github.com/baiirun/openfocus/internal/logging"
	"github.com/baiirun/openfocus/internal/model"
)

var (
	flagDB       string
	flagConfig   string
	flagNoCache  bool
	flagLogLevel string
	flagJSON     bool

	cfg    = config.Default()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "openfocus",
	Short: "Read and write OmniFocus task documents",
	Long: `A CLI for OmniFocus documents. A document is a directory of zip archives
chained by their filenames; openfocus folds the chain into a snapshot of
tasks and appends new archives when tasks change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// setup loads config and applies persistent flag overrides.
func setup() error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagDB != "" {
		loaded.Database = flagDB
	}
	if flagNoCache {
		loaded.Cache.Enabled = false
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
	}

	l, err := logging.New(os.Stderr, loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidArgument, err)
	}
	cfg = loaded
	logger = l
	return nil
}

// openCache opens the configured cache. Failures only cost speed, so they
// are logged and a nil cache is returned.
func openCache() *cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	path := cfg.Cache.Path
	if path == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			logger.Warn("cache disabled", "error", err)
			return nil
		}
		path = p
	}
	c, err := cache.Open(path)
	if err != nil {
		logger.Warn("cache disabled", "path", path, "error", err)
		return nil
	}
	return c
}

// dbOptions builds db options from config. The returned func releases the
// cache.
func dbOptions() (db.Options, func()) {
	opts := db.Options{Logger: logger, DeferFold: !cfg.Write.Fold}
	c := openCache()
	if c == nil {
		return opts, func() {}
	}
	opts.Cache = c
	return opts, func() { _ = c.Close() }
}

func databasePath() (string, error) {
	if cfg.Database == "" {
		return "", fmt.Errorf("%w: no database configured (use --db or set database in the config file)", model.ErrInvalidArgument)
	}
	return cfg.Database, nil
}

// openDB opens the configured document.
func openDB() (*db.DB, func(), error) {
	path, err := databasePath()
	if err != nil {
		return nil, nil, err
	}
	opts, release := dbOptions()
	database, err := db.OpenWith(path, opts)
	if err != nil {
		release()
		return nil, nil, err
	}
	return database, release, nil
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a new document with an empty root archive",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := databasePath()
		if len(args) == 1 {
			path, err = args[0], nil
		}
		if err != nil {
			return err
		}

		opts, release := dbOptions()
		defer release()
		database, err := db.Init(path, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized document at %s (root %s)\n", database.Path(), database.Head())
		return nil
	},
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrParse):
		return 2
	case errors.Is(err, model.ErrNotFound):
		return 3
	case errors.Is(err, model.ErrInvalidChain):
		return 4
	case errors.Is(err, model.ErrInvalidArgument):
		return 5
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "document directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/openfocus/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "decode every archive instead of using the cache")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
