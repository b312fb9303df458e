package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"evfmap/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *slog.Logger
)

// errThreshold is returned when a reported diagnostic reaches output.fail_severity.
// The message has already been printed by then.
var errThreshold = errors.New("diagnostics at or above the failure severity")

var rootCmd = &cobra.Command{
	Use:   "evfmap",
	Short: "Map compiler event-file diagnostics back to original source lines",
	Long: `evfmap reads compiler event-file listings, rebuilds the mapping from
generated-unit lines to the original source lines, and reports diagnostics
grouped by original source path.

Example usage:
  evfmap map MAIN.evfevent         # Map one listing
  evfmap map --format json - < x   # Map a listing from stdin
  evfmap scan .                    # Map every listing under the current directory`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger = setupLogging(cfg.Logging)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errThreshold) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./evfmap.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func setupLogging(lc config.LoggingConfig) *slog.Logger {
	var lvl slog.Level
	switch lc.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}
