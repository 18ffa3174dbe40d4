package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/berth-ci/berth-cmd/internal/flagtypes"
	"github.com/berth-ci/berth-cmd/pkg/config"
	"github.com/iver-wharf/wharf-core/v2/pkg/app"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger/consolepretty"
	"github.com/spf13/cobra"
)

var log = logger.NewScoped("BERTH")

var isLoggingInitialized bool
var loglevel = flagtypes.LogLevel(logger.LevelInfo)
var rootConfig config.Config

var rootCmd = &cobra.Command{
	SilenceErrors: true,
	SilenceUsage:  true,
	Use:           "berth",
	Short:         "CI application to run .berth-ci.yml pipelines on the local machine",
	Long: `Berth runs CI pipelines defined in .berth-ci.yml files on the local
machine, storing job logs, statuses, and artifacts on disk.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		rootConfig, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func execute(version app.Version) {
	rootCmd.Version = versionString(version)
	if err := rootCmd.Execute(); err != nil {
		initLoggingIfNeeded()
		log.Error().Message(err.Error())
		os.Exit(1)
	}
}

func versionString(v app.Version) string {
	var sb strings.Builder
	if v.Version != "" {
		sb.WriteString(v.Version)
	} else {
		sb.WriteString("v0.0.0")
	}
	if v.BuildRef != 0 {
		fmt.Fprintf(&sb, " #%d", v.BuildRef)
	}
	if v.BuildGitCommit != "" && v.BuildGitCommit != "HEAD" {
		fmt.Fprintf(&sb, " (%s)", v.BuildGitCommit)
	}
	if v.BuildDate != (time.Time{}) {
		sb.WriteString(" built ")
		sb.WriteString(v.BuildDate.Format(time.RFC1123))
	}
	return sb.String()
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.InitDefaultVersionFlag()
	rootCmd.PersistentFlags().Var(&loglevel, "loglevel", "Sets the logging level")
	rootCmd.RegisterFlagCompletionFunc("loglevel", flagtypes.CompleteLogLevel)
}

func initLoggingIfNeeded() {
	if !isLoggingInitialized {
		initLogging()
	}
}

func initLogging() {
	logConfig := consolepretty.DefaultConfig
	if loglevel.Level() != logger.LevelDebug {
		logConfig.DisableCaller = true
		logConfig.DisableDate = true
		logConfig.ScopeMinLengthAuto = false
	}
	logger.AddOutput(loglevel.Level(), consolepretty.New(logConfig))
	log.Debug().WithStringer("loglevel", loglevel.Level()).Message("Setting log-level.")
	isLoggingInitialized = true
}
