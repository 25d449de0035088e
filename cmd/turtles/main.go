package main

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/sqweek/dialog"

	"github.com/QEStudios/MusicTurtles/config"
	"github.com/QEStudios/MusicTurtles/metrics"
)

var (
	logger   *log.Logger
	stats    *metrics.SentryMetrics
	settings config.Config

	configPath string
	expr       string
)

var rootCmd = &cobra.Command{
	Use:   "turtles",
	Short: "Compose and play music strings",
	Long: `turtles reads a music string, or a grammar whose start symbol expands to
one, composes it into tracks and plays it or writes it out.

A source is given as a file argument, as --expr, on standard input, or picked
in a file dialog when none of those are given on an interactive terminal.

Examples:
  turtles parse -e ":4c [x2][:4e :4g]"
  turtles compose song.mt -o song.json
  turtles play song.mt --loop
  turtles ports`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if settings, err = loadConfig(); err != nil {
			return err
		}
		return initSentry(settings.SentryDSN)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default turtles.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&expr, "expr", "e", "", "music string or grammar to use instead of a file")
	rootCmd.AddCommand(parseCmd, composeCmd, playCmd, portsCmd)
}

func main() {
	// Standard output carries composed music.
	logger = log.New(os.Stderr, "", log.Ldate|log.Ltime)

	// A missing .env is fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	sentry.Flush(2 * time.Second)
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			logger.Printf("User cancelled the file dialog")
			os.Exit(1)
		}
		logger.Fatalf("%v", err)
	}
}

const defaultConfigPath = "turtles.yaml"

// loadConfig reads --config, or turtles.yaml in the working directory if it
// exists, or falls back to the defaults.
func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	c, err := config.Load(path)
	if err != nil {
		return c, err
	}
	logger.Printf("Loaded config from %s", path)
	return c, nil
}

// initSentry enables span reporting when a DSN is set in the config or in the
// SENTRY_DSN environment variable.
func initSentry(dsn string) error {
	if dsn == "" {
		dsn = os.Getenv("SENTRY_DSN")
	}
	if dsn == "" {
		stats = metrics.NewSentryMetrics(false)
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	}); err != nil {
		return err
	}
	stats = metrics.NewSentryMetrics(true)
	return nil
}
