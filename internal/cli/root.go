// Package cli implements the estate-pricer command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/lithammer/dedent"
	"github.com/raine/estate-pricer/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logFile    string
	debug      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var logCloser io.Closer

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Identify and price the items in an estate-sale listing",
		Long: dedent.Dedent(`
			estate-pricer runs each photo of an estate-sale listing through a vision
			model, merges duplicate detections across photos and looks up recent
			sold prices on eBay for what it finds.

			Credentials are read from the environment, from the env file written by
			"estate-pricer setup" and from ./.env.`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnvFile()
			closer, err := setupLogging(cmd.ErrOrStderr(), flags.logFile, flags.debug)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "also write logs to this file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newAnalyzeCmd(flags),
		newServeCmd(flags),
		newCompsCmd(flags),
		newSetupCmd(),
	)

	return cmd
}

// setupLogging sends console logs to w and, when path is set, a colourless
// copy to that file.
func setupLogging(w io.Writer, path string, debug bool) (io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	consoleWriter := zerolog.ConsoleWriter{Out: w}
	if path == "" {
		log.Logger = log.Output(consoleWriter)
		return nil, nil
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Debug().Str("logFile", path).Msg("logging to file")
	return logFile, nil
}

// loadConfig loads the YAML config and credentials.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
